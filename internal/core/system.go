package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/librescoot/librefsm"

	"wordclock-service/internal/logger"
	"wordclock-service/internal/messaging"
	"wordclock-service/internal/types"
)

// Debounce thresholds, seconds. Both counters saturate at their threshold
// and reset to zero whenever a command is processed.
const (
	SaveDelaySeconds  = 10
	CheckDelaySeconds = 30
)

// ClockSystem is the control core of the appliance. It owns the mode
// stack, the per-mode handlers and the power state machine, and is the
// single entry point for the command pipeline and the four scheduler
// ticks. One mutex serializes all of them: the design assumes at most
// one of a tick handler or the command dispatcher runs at any instant.
type ClockSystem struct {
	logger *logger.Logger
	mu     sync.Mutex

	display     Display
	brightness  Brightness
	color       ColorEngine
	timeSrc     TimeSource
	cfgStore    ConfigStore
	accessories AccessoryIO
	redis       MessagingClient

	machine  *librefsm.Machine
	stack    *ModeStack
	handlers map[types.Mode]Handler

	// Debounce counters, once-per-second resolution
	saveDelay  int
	checkDelay int

	// AutoOff bookkeeping
	ambientLightSaved bool
	previewRunning    bool
	previewStep       int

	initialized bool
}

// NewClockSystem wires the control core to its collaborators. Handlers
// and their working data are allocated once here; Enter re-initializes
// the data on every activation.
func NewClockSystem(display Display, brightness Brightness, color ColorEngine,
	timeSrc TimeSource, cfgStore ConfigStore, accessories AccessoryIO,
	redis MessagingClient, l *logger.Logger) *ClockSystem {

	s := &ClockSystem{
		logger:      l.WithTag("clock"),
		display:     display,
		brightness:  brightness,
		color:       color,
		timeSrc:     timeSrc,
		cfgStore:    cfgStore,
		accessories: accessories,
		redis:       redis,
	}

	s.handlers = map[types.Mode]Handler{
		types.ModeNormal:        &normalMode{sys: s},
		types.ModeDemo:          &demoMode{sys: s},
		types.ModePulse:         &pulseMode{sys: s},
		types.ModeHueCycle:      &hueCycleMode{sys: s},
		types.ModeSetSystemTime: &setSystemTimeMode{sys: s},
		types.ModeSetOnOffTime:  &setOnOffTimeMode{sys: s},
		types.ModeEnterTime:     &enterTimeMode{sys: s},
		types.ModeShowNumber:    &showNumberMode{sys: s},
		types.ModeIrTrain:       &irTrainMode{sys: s},
	}
	s.stack = NewModeStack(l, s.handlerFor, s.renderCurrentTime)
	return s
}

func (s *ClockSystem) handlerFor(mode types.Mode) Handler {
	return s.handlers[mode]
}

// Start brings the system up: power FSM, saved base mode, messaging
// listeners. The scheduler ticks are driven by the host loop afterwards.
func (s *ClockSystem) Start() error {
	s.logger.Infof("Starting wordclock system")

	s.redis.SetCallbacks(messaging.Callbacks{
		CommandCallback:    s.handleCommandRequest,
		RawIrCallback:      s.HandleRawTrainingFrame,
		NumberCallback:     s.ShowNumber,
		TimeSampleCallback: s.OnNewTimeSample,
		SettingsCallback:   s.handleSettingsUpdate,
		VariantCallback:    s.handleVariantRequest,
		TrainCallback:      s.StartIrTraining,
	})

	if err := s.redis.Connect(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if err := s.initFSM(context.Background()); err != nil {
		return fmt.Errorf("failed to start power FSM: %w", err)
	}

	s.mu.Lock()
	cfg := s.cfgStore.Config()
	base := cfg.BaseMode
	if _, ok := s.handlers[base]; !ok || base == types.ModeNone {
		s.logger.Warnf("Saved base mode %q unknown, falling back to word display", base)
		base = types.ModeNormal
	}
	s.stack.Push(base, nil)
	if cfg.PulseLayer && pulseCompatible(base) {
		s.stack.Push(types.ModePulse, nil)
	}
	s.initialized = true
	s.mu.Unlock()

	if err := s.brightness.PowerOn(); err != nil {
		s.logger.Warnf("Failed to power on brightness output: %v", err)
	}
	s.publishMode()

	if err := s.redis.StartListening(); err != nil {
		return fmt.Errorf("failed to start Redis listeners: %w", err)
	}

	s.logger.Infof("System started, base mode %s", base)
	return nil
}

// Shutdown persists configuration and releases the collaborators.
func (s *ClockSystem) Shutdown() {
	s.mu.Lock()
	if err := s.cfgStore.Save(); err != nil {
		s.logger.Errorf("Failed to save configuration on shutdown: %v", err)
	}
	s.mu.Unlock()

	if err := s.brightness.PowerOff(); err != nil {
		s.logger.Warnf("Failed to power off brightness output: %v", err)
	}
	if s.redis != nil {
		s.redis.Close()
	}
}

// OnNewTimeSample takes a fresh time-of-day sample from the time source.
// The activation-window check only ever runs here, and only once the
// check-delay counter has saturated, so that a burst of user commands
// cannot be immediately overridden by the window.
func (s *ClockSystem) OnNewTimeSample(t types.TimeOfDay) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil
	}
	if s.checkDelay < CheckDelaySeconds {
		return nil
	}
	if windowSaysOff(s.cfgStore.Config(), t) {
		s.sendPowerEvent(evWindowOff)
	} else {
		s.sendPowerEvent(evWindowOn)
	}
	return nil
}

// windowSaysOff reports "off" when t falls inside any configured window.
func windowSaysOff(cfg *types.Config, t types.TimeOfDay) bool {
	for _, w := range cfg.Windows {
		if w.Contains(t) {
			return true
		}
	}
	return false
}

// renderCurrentTime repaints the current time without blink, the safe
// default after stack shrinks and power-on transitions.
func (s *ClockSystem) renderCurrentTime() {
	s.display.RenderTime(s.timeSrc.Now(), 0)
}

// markDirty resets both debounce counters. Every processed command lands
// here, handled or not.
func (s *ClockSystem) markDirty() {
	s.saveDelay = 0
	s.checkDelay = 0
}

// persistNow saves immediately, bypassing the debounce. Used by the
// on/off command so a power cut right after cannot lose the choice.
func (s *ClockSystem) persistNow() {
	if err := s.cfgStore.Save(); err != nil {
		s.logger.Errorf("Failed to save configuration: %v", err)
	}
}

func (s *ClockSystem) publishMode() {
	if err := s.redis.PublishMode(s.stack.Top()); err != nil {
		s.logger.Warnf("Failed to publish mode: %v", err)
	}
}

// handleSettingsUpdate re-reads a single settings field after an external
// edit (settings pub/sub channel).
func (s *ClockSystem) handleSettingsUpdate(setting string) error {
	s.logger.Debugf("Handling settings update: %s", setting)

	value, err := s.redis.GetSettingsField(setting)
	if err != nil {
		return fmt.Errorf("failed to read setting %s: %w", setting, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := s.cfgStore.Config()

	switch setting {
	case "clock.auto-off-preview":
		cfg.AutoOffPreview = value == "enabled"
		s.logger.Infof("Auto-off preview set to %v", cfg.AutoOffPreview)
	case "clock.pulse-interval":
		var interval int
		if _, err := fmt.Sscanf(value, "%d", &interval); err != nil {
			return fmt.Errorf("invalid pulse interval %q: %w", value, err)
		}
		cfg.PulseInterval = clampPulseInterval(interval)
		s.logger.Infof("Pulse interval set to %d", cfg.PulseInterval)
	default:
		s.logger.Debugf("Ignoring unknown setting %s", setting)
	}
	return nil
}

// handleVariantRequest forwards a display-variant selection to the
// display module.
func (s *ClockSystem) handleVariantRequest(name string) error {
	s.logger.Debugf("Handling display variant request: %s", name)
	return s.display.SelectVariant(name)
}

// ShowNumber pushes the number display mode on top of the current mode.
func (s *ClockSystem) ShowNumber(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stack.Push(types.ModeShowNumber, n) {
		return fmt.Errorf("show-number refused")
	}
	return nil
}
