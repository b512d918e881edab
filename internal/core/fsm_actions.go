package core

import (
	"context"

	"github.com/librescoot/librefsm"

	"wordclock-service/internal/fsm"
	"wordclock-service/internal/types"
)

// Ensure ClockSystem implements fsm.Actions
var _ fsm.Actions = (*ClockSystem)(nil)

// Internal aliases so power events read naturally at the call sites.
const (
	evOnOff     = fsm.EvOnOff
	evWindowOn  = fsm.EvWindowOn
	evWindowOff = fsm.EvWindowOff
)

// stateIDToPowerState converts a librefsm StateID to types.PowerState
func stateIDToPowerState(id librefsm.StateID) types.PowerState {
	switch id {
	case fsm.StateNormalOn:
		return types.PowerNormalOn
	case fsm.StateAutoOff:
		return types.PowerAutoOff
	case fsm.StateManualOff:
		return types.PowerManualOff
	case fsm.StateOverrideOn:
		return types.PowerOverrideOn
	default:
		return types.PowerState(string(id))
	}
}

// initFSM initializes and starts the librefsm power machine
func (s *ClockSystem) initFSM(ctx context.Context) error {
	def := fsm.NewDefinition(s)
	machine, err := def.Build()
	if err != nil {
		return err
	}
	s.machine = machine

	s.machine.OnStateChange(func(from, to librefsm.StateID) {
		oldState := stateIDToPowerState(from)
		newState := stateIDToPowerState(to)
		s.logger.Infof("Power transition: %s -> %s", oldState, newState)

		// Publish directly with the known new state; querying the machine
		// here would deadlock against the FSM mutex.
		if err := s.redis.PublishPowerState(newState); err != nil {
			s.logger.Errorf("Failed to publish power state: %v", err)
		}
	})

	if err := s.machine.Start(ctx); err != nil {
		return err
	}

	s.logger.Infof("Power state machine started")
	return nil
}

// sendPowerEvent drives the power machine synchronously. Events without a
// transition in the current state are the table's "stay" rows; a refusal
// is expected there and only logged.
func (s *ClockSystem) sendPowerEvent(event librefsm.EventID) {
	if err := s.machine.SendSync(librefsm.Event{ID: event}); err != nil {
		s.logger.Debugf("Power event %s ignored: %v", event, err)
	}
}

// PowerState returns the current power state.
func (s *ClockSystem) PowerState() types.PowerState {
	if s.machine == nil {
		return types.PowerNormalOn
	}
	return stateIDToPowerState(s.machine.CurrentState())
}

// === State Entry Actions ===

func (s *ClockSystem) EnterNormalOn(c *librefsm.Context) error {
	s.logger.Debugf("FSM: EnterNormalOn")
	return s.enterOnState(stateIDToPowerState(c.FromState))
}

func (s *ClockSystem) EnterOverrideOn(c *librefsm.Context) error {
	s.logger.Debugf("FSM: EnterOverrideOn")
	return s.enterOnState(stateIDToPowerState(c.FromState))
}

// enterOnState applies the shared side effects of both "on" states:
// output back on, immediate redisplay, and the ambient-light accessory
// restored if AutoOff had cleared it.
func (s *ClockSystem) enterOnState(prev types.PowerState) error {
	if prev == types.PowerAutoOff {
		s.stopPreview()
		if s.ambientLightSaved {
			if err := s.accessories.Set(AccessoryAmbientLight, true); err != nil {
				s.logger.Warnf("Failed to restore ambient light: %v", err)
			}
			s.ambientLightSaved = false
		}
	}
	if err := s.brightness.PowerOn(); err != nil {
		s.logger.Errorf("Failed to power on brightness output: %v", err)
		return err
	}
	s.renderCurrentTime()
	return nil
}

func (s *ClockSystem) EnterAutoOff(c *librefsm.Context) error {
	s.logger.Debugf("FSM: EnterAutoOff")

	// Snapshot and clear the ambient light strip for the night window
	if s.accessories.Get(AccessoryAmbientLight) {
		s.ambientLightSaved = true
		if err := s.accessories.Set(AccessoryAmbientLight, false); err != nil {
			s.logger.Warnf("Failed to clear ambient light: %v", err)
		}
	}

	if s.cfgStore.Config().AutoOffPreview {
		s.startPreview()
		return nil
	}
	if err := s.brightness.PowerOff(); err != nil {
		s.logger.Errorf("Failed to power off brightness output: %v", err)
		return err
	}
	return nil
}

func (s *ClockSystem) EnterManualOff(c *librefsm.Context) error {
	s.logger.Debugf("FSM: EnterManualOff")
	s.stopPreview()
	if err := s.brightness.PowerOff(); err != nil {
		s.logger.Errorf("Failed to power off brightness output: %v", err)
		return err
	}
	return nil
}

// === AutoOff preview animation ===

// startPreview arms the low-key animation that replaces the active
// mode's second ticks while AutoOff holds the display.
func (s *ClockSystem) startPreview() {
	s.previewRunning = true
	s.previewStep = 0
	s.logger.Infof("Auto-off preview animation started")
}

func (s *ClockSystem) stopPreview() {
	if s.previewRunning {
		s.logger.Debugf("Auto-off preview animation stopped")
	}
	s.previewRunning = false
}

// advancePreview walks a single corner LED around the face and breathes
// the ambient light strip in opposition, one step per second.
func (s *ClockSystem) advancePreview() {
	s.previewStep++
	s.display.RenderRaw(s.display.CornerMask(s.previewStep%4), 0)
	if err := s.accessories.Set(AccessoryAmbientLight, s.previewStep%2 == 0); err != nil {
		s.logger.Debugf("Preview ambient light step failed: %v", err)
	}
}
