package core

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/librescoot/librefsm"

	"wordclock-service/internal/fsm"
	"wordclock-service/internal/logger"
	"wordclock-service/internal/messaging"
	"wordclock-service/internal/types"
)

// Mock Display
type mockDisplay struct {
	renderedTimes []types.TimeOfDay
	renderedBlink []uint32
	rawFrames     []struct{ state, blink uint32 }
	variants      []string
	variantErr    error
}

func (m *mockDisplay) RenderTime(t types.TimeOfDay, blinkMask uint32) {
	m.renderedTimes = append(m.renderedTimes, t)
	m.renderedBlink = append(m.renderedBlink, blinkMask)
}

func (m *mockDisplay) RenderRaw(stateMask uint32, blinkMask uint32) {
	m.rawFrames = append(m.rawFrames, struct{ state, blink uint32 }{stateMask, blinkMask})
}

func (m *mockDisplay) HoursMask() uint32     { return 0x1 }
func (m *mockDisplay) MinutesMask() uint32   { return 0x2 }
func (m *mockDisplay) TimeSetMask() uint32   { return 0x4 }
func (m *mockDisplay) IndicatorMask() uint32 { return 0x8 }

func (m *mockDisplay) NumberMask(n int) uint32    { return 0x100 | uint32(n) }
func (m *mockDisplay) GroupMask(group int) uint32 { return 0x200 | uint32(group) }
func (m *mockDisplay) CornerMask(n int) uint32    { return 0x400 | uint32(n) }

func (m *mockDisplay) SelectVariant(name string) error {
	m.variants = append(m.variants, name)
	return m.variantErr
}

// Mock Brightness
type mockBrightness struct {
	locks      []int
	releases   int
	ups        int
	downs      int
	calibrates int
	powered    bool
	stepErr    error
}

func (m *mockBrightness) Lock(value int)              { m.locks = append(m.locks, value) }
func (m *mockBrightness) Release()                    { m.releases++ }
func (m *mockBrightness) StepUp() error               { m.ups++; return m.stepErr }
func (m *mockBrightness) StepDown() error             { m.downs++; return m.stepErr }
func (m *mockBrightness) CalibrateFromAmbient() error { m.calibrates++; return nil }
func (m *mockBrightness) PowerOn() error              { m.powered = true; return nil }
func (m *mockBrightness) PowerOff() error             { m.powered = false; return nil }
func (m *mockBrightness) Max() int                    { return 15 }

// Mock ColorEngine
type mockColor struct {
	setCalls []struct{ r, g, b uint8 }
}

func (m *mockColor) SetRGB(r, g, b uint8) {
	m.setCalls = append(m.setCalls, struct{ r, g, b uint8 }{r, g, b})
}

func (m *mockColor) HueToRGB(hue int) (uint8, uint8, uint8) {
	return uint8(hue % 256), 0, 0
}

func (m *mockColor) PulseWaveform(step int) int { return step % 16 }

// Mock TimeSource
type mockTimeSource struct {
	now      types.TimeOfDay
	setTimes []types.TimeOfDay
	setOK    bool
	resyncs  int
}

func (m *mockTimeSource) Now() types.TimeOfDay { return m.now }

func (m *mockTimeSource) SetTime(t types.TimeOfDay) bool {
	m.setTimes = append(m.setTimes, t)
	return m.setOK
}

func (m *mockTimeSource) Resync() error { m.resyncs++; return nil }

// Mock ConfigStore
type mockConfigStore struct {
	cfg   *types.Config
	saves int
}

func (m *mockConfigStore) Config() *types.Config { return m.cfg }
func (m *mockConfigStore) Save() error           { m.saves++; return nil }

// Mock AccessoryIO
type mockAccessories struct {
	states map[string]bool
}

func (m *mockAccessories) Set(line string, on bool) error { m.states[line] = on; return nil }
func (m *mockAccessories) Get(line string) bool           { return m.states[line] }
func (m *mockAccessories) Toggle(line string) error       { m.states[line] = !m.states[line]; return nil }

// Mock MessagingClient
type mockMessagingClient struct {
	callbacks messaging.Callbacks

	publishedPower []types.PowerState
	publishedModes []types.Mode
	sendCommands   []struct{ channel, command string }
	settingsFields map[string]string
}

func newMockMessagingClient() *mockMessagingClient {
	return &mockMessagingClient{settingsFields: make(map[string]string)}
}

func (m *mockMessagingClient) SetCallbacks(callbacks messaging.Callbacks) { m.callbacks = callbacks }
func (m *mockMessagingClient) Connect() error                             { return nil }
func (m *mockMessagingClient) StartListening() error                      { return nil }
func (m *mockMessagingClient) Close() error                               { return nil }

func (m *mockMessagingClient) PublishPowerState(state types.PowerState) error {
	m.publishedPower = append(m.publishedPower, state)
	return nil
}

func (m *mockMessagingClient) PublishMode(mode types.Mode) error {
	m.publishedModes = append(m.publishedModes, mode)
	return nil
}

func (m *mockMessagingClient) GetSettingsField(field string) (string, error) {
	return m.settingsFields[field], nil
}

func (m *mockMessagingClient) SendCommand(channel, command string) error {
	m.sendCommands = append(m.sendCommands, struct{ channel, command string }{channel, command})
	return nil
}

type testMocks struct {
	display     *mockDisplay
	brightness  *mockBrightness
	color       *mockColor
	timeSrc     *mockTimeSource
	cfgStore    *mockConfigStore
	accessories *mockAccessories
	redis       *mockMessagingClient
}

func newTestLogger() *logger.Logger {
	return logger.NewLogger(log.New(io.Discard, "", 0), logger.LogLevelError)
}

// Test helper
func newTestClockSystem() (*ClockSystem, *testMocks) {
	l := newTestLogger()
	m := &testMocks{
		display:     &mockDisplay{},
		brightness:  &mockBrightness{},
		color:       &mockColor{},
		timeSrc:     &mockTimeSource{now: types.TimeOfDay{Hour: 12, Minute: 0, Second: 0}, setOK: true},
		cfgStore:    &mockConfigStore{cfg: types.DefaultConfig()},
		accessories: &mockAccessories{states: make(map[string]bool)},
		redis:       newMockMessagingClient(),
	}
	system := NewClockSystem(m.display, m.brightness, m.color, m.timeSrc,
		m.cfgStore, m.accessories, m.redis, l)
	return system, m
}

// startTestSystem brings the system into its normal running shape without
// touching Redis: power FSM up, word display as base mode.
func startTestSystem(t *testing.T, system *ClockSystem) {
	t.Helper()
	if err := system.initFSM(context.Background()); err != nil {
		t.Fatalf("Failed to initialize FSM: %v", err)
	}
	system.stack.Push(types.ModeNormal, nil)
	system.initialized = true
}

// ===== Basic Construction Tests =====

func TestNewClockSystem(t *testing.T) {
	system, m := newTestClockSystem()

	if system == nil {
		t.Fatal("NewClockSystem returned nil")
	}
	if system.display != m.display {
		t.Error("display not set correctly")
	}
	if system.redis != m.redis {
		t.Error("redis not set correctly")
	}
	if len(system.handlers) != 9 {
		t.Errorf("Expected 9 mode handlers, got %d", len(system.handlers))
	}
}

// ===== Power State Machine Tests =====

func TestPowerTransitionTable(t *testing.T) {
	tests := []struct {
		name  string
		start librefsm.StateID
		event librefsm.EventID
		want  types.PowerState
	}{
		{"NormalOn window off", fsm.StateNormalOn, fsm.EvWindowOff, types.PowerAutoOff},
		{"NormalOn window on stays", fsm.StateNormalOn, fsm.EvWindowOn, types.PowerNormalOn},
		{"NormalOn on/off", fsm.StateNormalOn, fsm.EvOnOff, types.PowerManualOff},
		{"AutoOff window on", fsm.StateAutoOff, fsm.EvWindowOn, types.PowerNormalOn},
		{"AutoOff window off stays", fsm.StateAutoOff, fsm.EvWindowOff, types.PowerAutoOff},
		{"AutoOff on/off overrides", fsm.StateAutoOff, fsm.EvOnOff, types.PowerOverrideOn},
		{"ManualOff window on stays", fsm.StateManualOff, fsm.EvWindowOn, types.PowerManualOff},
		{"ManualOff window off stays", fsm.StateManualOff, fsm.EvWindowOff, types.PowerManualOff},
		{"ManualOff on/off", fsm.StateManualOff, fsm.EvOnOff, types.PowerNormalOn},
		{"OverrideOn window on reverts", fsm.StateOverrideOn, fsm.EvWindowOn, types.PowerNormalOn},
		{"OverrideOn window off stays", fsm.StateOverrideOn, fsm.EvWindowOff, types.PowerOverrideOn},
		{"OverrideOn on/off", fsm.StateOverrideOn, fsm.EvOnOff, types.PowerManualOff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			system, _ := newTestClockSystem()
			startTestSystem(t, system)

			if system.machine.CurrentState() != tt.start {
				if err := system.machine.SetState(tt.start); err != nil {
					t.Fatalf("Failed to seed state %s: %v", tt.start, err)
				}
			}

			system.sendPowerEvent(tt.event)

			if got := system.PowerState(); got != tt.want {
				t.Errorf("%s + %s: expected %s, got %s", tt.start, tt.event, tt.want, got)
			}
		})
	}
}

func TestOnOffCommandTogglesPower(t *testing.T) {
	system, m := newTestClockSystem()
	startTestSystem(t, system)

	system.HandleCommand(types.CmdOnOff)
	if got := system.PowerState(); got != types.PowerManualOff {
		t.Fatalf("Expected ManualOff after on/off, got %s", got)
	}
	if m.brightness.powered {
		t.Error("Brightness output should be off in ManualOff")
	}

	system.HandleCommand(types.CmdOnOff)
	if got := system.PowerState(); got != types.PowerNormalOn {
		t.Fatalf("Expected NormalOn after second on/off, got %s", got)
	}
	if !m.brightness.powered {
		t.Error("Brightness output should be back on in NormalOn")
	}
}

func TestOnOffCommandSavesImmediately(t *testing.T) {
	system, m := newTestClockSystem()
	startTestSystem(t, system)

	system.HandleCommand(types.CmdOnOff)
	if m.cfgStore.saves != 1 {
		t.Errorf("Expected immediate save after on/off, got %d saves", m.cfgStore.saves)
	}
}

func TestPowerTransitionsArePublished(t *testing.T) {
	system, m := newTestClockSystem()
	startTestSystem(t, system)

	system.HandleCommand(types.CmdOnOff)

	if len(m.redis.publishedPower) == 0 {
		t.Fatal("Expected power state publication")
	}
	last := m.redis.publishedPower[len(m.redis.publishedPower)-1]
	if last != types.PowerManualOff {
		t.Errorf("Expected published state ManualOff, got %s", last)
	}
}

// ===== Debounce Counter Tests =====

func TestDebouncedSaveFiresOnce(t *testing.T) {
	system, m := newTestClockSystem()
	startTestSystem(t, system)

	for i := 0; i < SaveDelaySeconds-1; i++ {
		system.TickSecond()
	}
	if m.cfgStore.saves != 0 {
		t.Fatalf("Save fired early: %d saves", m.cfgStore.saves)
	}

	system.TickSecond()
	if m.cfgStore.saves != 1 {
		t.Fatalf("Expected exactly one save at threshold, got %d", m.cfgStore.saves)
	}

	// Counter saturates: further ticks must not save again
	for i := 0; i < 2*SaveDelaySeconds; i++ {
		system.TickSecond()
	}
	if m.cfgStore.saves != 1 {
		t.Errorf("Saturated counter re-fired save: %d saves", m.cfgStore.saves)
	}
}

func TestCommandResetsDebounceCounters(t *testing.T) {
	system, _ := newTestClockSystem()
	startTestSystem(t, system)

	for i := 0; i < SaveDelaySeconds-1; i++ {
		system.TickSecond()
	}
	system.HandleCommand(types.CmdBrightnessUp)

	if system.saveDelay != 0 || system.checkDelay != 0 {
		t.Errorf("Expected counters reset after command, got save=%d check=%d",
			system.saveDelay, system.checkDelay)
	}
}

// ===== Activation Window Tests =====

func saturateCheckDelay(system *ClockSystem) {
	for i := 0; i < CheckDelaySeconds; i++ {
		system.TickSecond()
	}
}

func TestWindowCheckSuppressedWhileCounterLow(t *testing.T) {
	system, _ := newTestClockSystem()
	startTestSystem(t, system)

	// Inside the default 23:00-06:00 window, but the check-delay counter
	// has not saturated yet
	if err := system.OnNewTimeSample(types.TimeOfDay{Hour: 23, Minute: 30}); err != nil {
		t.Fatalf("OnNewTimeSample failed: %v", err)
	}
	if got := system.PowerState(); got != types.PowerNormalOn {
		t.Errorf("Window check ran before counter saturated: state %s", got)
	}
}

func TestWindowTurnsDisplayOffAndOn(t *testing.T) {
	system, _ := newTestClockSystem()
	startTestSystem(t, system)
	saturateCheckDelay(system)

	if err := system.OnNewTimeSample(types.TimeOfDay{Hour: 23, Minute: 30}); err != nil {
		t.Fatalf("OnNewTimeSample failed: %v", err)
	}
	if got := system.PowerState(); got != types.PowerAutoOff {
		t.Fatalf("Expected AutoOff inside window, got %s", got)
	}

	if err := system.OnNewTimeSample(types.TimeOfDay{Hour: 12, Minute: 0}); err != nil {
		t.Fatalf("OnNewTimeSample failed: %v", err)
	}
	if got := system.PowerState(); got != types.PowerNormalOn {
		t.Errorf("Expected NormalOn outside window, got %s", got)
	}
}

func TestWindowWrapsMidnight(t *testing.T) {
	system, m := newTestClockSystem()
	m.cfgStore.cfg.Windows = []types.Window{
		{Start: types.TimePoint{Hour: 22}, End: types.TimePoint{Hour: 6}},
	}
	startTestSystem(t, system)
	saturateCheckDelay(system)

	for _, tc := range []struct {
		time types.TimeOfDay
		want types.PowerState
	}{
		{types.TimeOfDay{Hour: 23, Minute: 30}, types.PowerAutoOff},
		{types.TimeOfDay{Hour: 5, Minute: 0}, types.PowerAutoOff},
		{types.TimeOfDay{Hour: 12, Minute: 0}, types.PowerNormalOn},
		{types.TimeOfDay{Hour: 6, Minute: 0}, types.PowerNormalOn},
	} {
		if err := system.OnNewTimeSample(tc.time); err != nil {
			t.Fatalf("OnNewTimeSample failed: %v", err)
		}
		if got := system.PowerState(); got != tc.want {
			t.Errorf("At %s: expected %s, got %s", tc.time, tc.want, got)
		}
	}
}

func TestOverrideHoldsThroughWindow(t *testing.T) {
	system, _ := newTestClockSystem()
	startTestSystem(t, system)
	saturateCheckDelay(system)

	system.OnNewTimeSample(types.TimeOfDay{Hour: 23, Minute: 30})
	system.HandleCommand(types.CmdOnOff)
	if got := system.PowerState(); got != types.PowerOverrideOn {
		t.Fatalf("Expected OverrideOn, got %s", got)
	}

	// Still inside the window: the override holds
	saturateCheckDelay(system)
	system.OnNewTimeSample(types.TimeOfDay{Hour: 23, Minute: 45})
	if got := system.PowerState(); got != types.PowerOverrideOn {
		t.Errorf("Override should survive an off-window sample, got %s", got)
	}

	// Window opens: back to NormalOn
	system.OnNewTimeSample(types.TimeOfDay{Hour: 7, Minute: 0})
	if got := system.PowerState(); got != types.PowerNormalOn {
		t.Errorf("Expected NormalOn once the window opened, got %s", got)
	}
}

// ===== AutoOff Side Effect Tests =====

func TestAutoOffSnapshotsAmbientLight(t *testing.T) {
	system, m := newTestClockSystem()
	startTestSystem(t, system)
	saturateCheckDelay(system)

	m.accessories.states[AccessoryAmbientLight] = true

	system.OnNewTimeSample(types.TimeOfDay{Hour: 23, Minute: 30})
	if m.accessories.states[AccessoryAmbientLight] {
		t.Error("Ambient light should be cleared in AutoOff")
	}

	system.OnNewTimeSample(types.TimeOfDay{Hour: 7, Minute: 0})
	if !m.accessories.states[AccessoryAmbientLight] {
		t.Error("Ambient light should be restored after AutoOff")
	}
}

func TestAutoOffPreviewReplacesModeTicks(t *testing.T) {
	system, m := newTestClockSystem()
	m.cfgStore.cfg.AutoOffPreview = true
	startTestSystem(t, system)
	saturateCheckDelay(system)

	system.OnNewTimeSample(types.TimeOfDay{Hour: 23, Minute: 30})
	if !system.previewRunning {
		t.Fatal("Preview should be running in AutoOff with the feature enabled")
	}
	if !m.brightness.powered {
		t.Error("Preview keeps the output powered")
	}

	rendered := len(m.display.renderedTimes)
	frames := len(m.display.rawFrames)

	system.TickSecond()
	system.TickSecond()

	if len(m.display.renderedTimes) != rendered {
		t.Error("Active mode ticked during preview")
	}
	if len(m.display.rawFrames) != frames+2 {
		t.Errorf("Expected 2 preview frames, got %d", len(m.display.rawFrames)-frames)
	}

	// Preview frames walk the corner LEDs
	last := m.display.rawFrames[len(m.display.rawFrames)-1]
	if last.state&0x400 == 0 {
		t.Errorf("Preview frame should be a corner mask, got 0x%x", last.state)
	}
}

func TestAutoOffWithoutPreviewPowersOff(t *testing.T) {
	system, m := newTestClockSystem()
	startTestSystem(t, system)
	saturateCheckDelay(system)

	system.OnNewTimeSample(types.TimeOfDay{Hour: 23, Minute: 30})
	if system.previewRunning {
		t.Error("Preview must stay off when the feature is disabled")
	}
	if m.brightness.powered {
		t.Error("Brightness output should be off in AutoOff")
	}
}

// ===== Global Command Fallback Tests =====

func TestBrightnessCommands(t *testing.T) {
	system, m := newTestClockSystem()
	startTestSystem(t, system)

	system.HandleCommand(types.CmdBrightnessUp)
	system.HandleCommand(types.CmdBrightnessUp)
	system.HandleCommand(types.CmdBrightnessDown)

	if m.brightness.ups != 2 || m.brightness.downs != 1 {
		t.Errorf("Expected 2 ups / 1 down, got %d / %d", m.brightness.ups, m.brightness.downs)
	}
}

func TestCalibrateCommand(t *testing.T) {
	system, m := newTestClockSystem()
	startTestSystem(t, system)

	system.HandleCommand(types.CmdCalibrate)
	if m.brightness.calibrates != 1 {
		t.Errorf("Expected 1 calibration, got %d", m.brightness.calibrates)
	}
}

func TestResyncCommand(t *testing.T) {
	system, m := newTestClockSystem()
	startTestSystem(t, system)

	system.HandleCommand(types.CmdResync)
	if m.timeSrc.resyncs != 1 {
		t.Errorf("Expected 1 resync, got %d", m.timeSrc.resyncs)
	}
}

func TestAccessoryToggleCommands(t *testing.T) {
	system, m := newTestClockSystem()
	startTestSystem(t, system)

	system.HandleCommand(types.CmdAmbientLight)
	system.HandleCommand(types.CmdBluetooth)
	system.HandleCommand(types.CmdAuxPower)
	system.HandleCommand(types.CmdAmbientLight)

	if m.accessories.states[AccessoryAmbientLight] {
		t.Error("Ambient light should be off after two toggles")
	}
	if !m.accessories.states[AccessoryBluetooth] {
		t.Error("Bluetooth should be on after one toggle")
	}
	if !m.accessories.states[AccessoryAuxPower] {
		t.Error("Aux power should be on after one toggle")
	}
}

func TestVariantCommandCyclesDisplay(t *testing.T) {
	system, m := newTestClockSystem()
	startTestSystem(t, system)

	system.HandleCommand(types.CmdVariant)
	if len(m.display.variants) != 1 || m.display.variants[0] != "" {
		t.Errorf("Expected one empty-name variant cycle, got %v", m.display.variants)
	}
}

func TestDemoToggle(t *testing.T) {
	system, _ := newTestClockSystem()
	startTestSystem(t, system)

	system.HandleCommand(types.CmdDemo)
	if system.stack.Top() != types.ModeDemo {
		t.Fatalf("Expected demo on top, got %s", system.stack.Top())
	}

	system.HandleCommand(types.CmdDemo)
	if system.stack.Top() != types.ModeNormal {
		t.Errorf("Expected demo popped, top is %s", system.stack.Top())
	}
	if system.stack.Depth() != 1 {
		t.Errorf("Expected depth 1 after demo toggle off, got %d", system.stack.Depth())
	}
}

func TestPulseToggleOnCompatibleBase(t *testing.T) {
	system, m := newTestClockSystem()
	startTestSystem(t, system)

	system.HandleCommand(types.CmdPulse)
	if system.stack.Top() != types.ModePulse {
		t.Fatalf("Expected pulse on top, got %s", system.stack.Top())
	}
	if !m.cfgStore.cfg.PulseLayer {
		t.Error("Pulse layer should be recorded in configuration")
	}

	system.HandleCommand(types.CmdPulse)
	if system.stack.Contains(types.ModePulse) {
		t.Error("Pulse should be popped by the second toggle")
	}
	if m.cfgStore.cfg.PulseLayer {
		t.Error("Pulse layer flag should be cleared")
	}
}

func TestPulseRefusedOnIncompatibleBase(t *testing.T) {
	system, _ := newTestClockSystem()
	if err := system.initFSM(context.Background()); err != nil {
		t.Fatalf("Failed to initialize FSM: %v", err)
	}
	system.stack.Push(types.ModeDemo, nil)
	system.initialized = true

	system.HandleCommand(types.CmdPulse)
	if system.stack.Contains(types.ModePulse) {
		t.Error("Pulse must not stack on a demo base mode")
	}
}

func TestBaseModePersistedAfterCommand(t *testing.T) {
	system, m := newTestClockSystem()
	startTestSystem(t, system)

	system.HandleCommand(types.CmdDemo)
	if m.cfgStore.cfg.BaseMode != types.ModeNormal {
		t.Errorf("Base mode should stay %s, got %s", types.ModeNormal, m.cfgStore.cfg.BaseMode)
	}
	if len(m.redis.publishedModes) == 0 {
		t.Fatal("Expected mode publication after command")
	}
	if last := m.redis.publishedModes[len(m.redis.publishedModes)-1]; last != types.ModeDemo {
		t.Errorf("Expected published mode demo, got %s", last)
	}
}

func TestUnknownCommandRejectedByAdapter(t *testing.T) {
	system, _ := newTestClockSystem()
	startTestSystem(t, system)

	if err := system.handleCommandRequest(types.Command("bogus")); err == nil {
		t.Error("Expected error for unknown command")
	}
}

// ===== Set System Time Flow =====

func TestSetSystemTimeFlow(t *testing.T) {
	system, m := newTestClockSystem()
	m.timeSrc.now = types.TimeOfDay{Hour: 10, Minute: 15, Second: 42}
	startTestSystem(t, system)

	system.HandleCommand(types.CmdSetSystemTime)

	want := []types.Mode{types.ModeNormal, types.ModeSetSystemTime, types.ModeEnterTime}
	got := system.stack.Modes()
	if len(got) != len(want) {
		t.Fatalf("Expected stack %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected stack %v, got %v", want, got)
		}
	}

	// Edit 10:15 down to 07:30
	system.HandleCommand(types.CmdDown)
	system.HandleCommand(types.CmdDown)
	system.HandleCommand(types.CmdDown)
	system.HandleCommand(types.CmdSetSystemTime) // hour -> minute
	for i := 0; i < 15; i++ {
		system.HandleCommand(types.CmdUp)
	}
	system.HandleCommand(types.CmdSetSystemTime) // finish

	if len(m.timeSrc.setTimes) != 1 {
		t.Fatalf("Expected one SetTime call, got %d", len(m.timeSrc.setTimes))
	}
	if set := m.timeSrc.setTimes[0]; set != (types.TimeOfDay{Hour: 7, Minute: 30, Second: 0}) {
		t.Errorf("Expected 07:30:00, got %s", set)
	}
	if system.stack.Depth() != 1 || system.stack.Top() != types.ModeNormal {
		t.Errorf("Expected bare word display after flow, stack %v", system.stack.Modes())
	}
}

func TestEnterTimeHourWrapsAround(t *testing.T) {
	system, m := newTestClockSystem()
	m.timeSrc.now = types.TimeOfDay{Hour: 23, Minute: 0}
	startTestSystem(t, system)

	system.HandleCommand(types.CmdSetSystemTime)
	system.HandleCommand(types.CmdUp)            // 23 -> 0
	system.HandleCommand(types.CmdSetSystemTime) // hour -> minute
	system.HandleCommand(types.CmdDown)          // 0 -> 59
	system.HandleCommand(types.CmdSetSystemTime) // finish

	if len(m.timeSrc.setTimes) != 1 {
		t.Fatalf("Expected one SetTime call, got %d", len(m.timeSrc.setTimes))
	}
	if set := m.timeSrc.setTimes[0]; set != (types.TimeOfDay{Hour: 0, Minute: 59, Second: 0}) {
		t.Errorf("Expected 00:59:00, got %s", set)
	}
}

func TestEnterTimeVetoesDisplacement(t *testing.T) {
	system, _ := newTestClockSystem()
	startTestSystem(t, system)

	system.HandleCommand(types.CmdSetSystemTime)
	depth := system.stack.Depth()

	// Time-mode replace needs every occupant's consent; the unfinished
	// edit refuses
	system.HandleCommand(types.CmdTimeMode)

	if system.stack.Depth() != depth || system.stack.Top() != types.ModeEnterTime {
		t.Errorf("Edit flow was displaced, stack %v", system.stack.Modes())
	}
}

func TestEnterTimeBlinksEditedField(t *testing.T) {
	system, m := newTestClockSystem()
	startTestSystem(t, system)

	system.HandleCommand(types.CmdSetSystemTime)

	if len(m.display.renderedBlink) == 0 {
		t.Fatal("Expected a blinking render")
	}
	blink := m.display.renderedBlink[len(m.display.renderedBlink)-1]
	if blink&m.display.HoursMask() == 0 || blink&m.display.TimeSetMask() == 0 {
		t.Errorf("Hour phase should blink hours plus the set indicator, got 0x%x", blink)
	}

	system.HandleCommand(types.CmdSetSystemTime) // hour -> minute
	blink = m.display.renderedBlink[len(m.display.renderedBlink)-1]
	if blink&m.display.MinutesMask() == 0 {
		t.Errorf("Minute phase should blink minutes, got 0x%x", blink)
	}
}

// ===== Set On/Off Time Flow =====

func TestSetOnOffTimeFlow(t *testing.T) {
	system, m := newTestClockSystem()
	startTestSystem(t, system)

	system.HandleCommand(types.CmdSetOnOffTime)
	if system.stack.Top() != types.ModeEnterTime {
		t.Fatalf("Expected enter-time on top, got %s", system.stack.Top())
	}

	// Window start: 23:00 -> 22:00, minutes stepped by 5 -> 22:30
	system.HandleCommand(types.CmdDown)
	system.HandleCommand(types.CmdSetOnOffTime)
	for i := 0; i < 6; i++ {
		system.HandleCommand(types.CmdUp)
	}
	system.HandleCommand(types.CmdSetOnOffTime)

	// Window end: keep 06:00 as is
	if system.stack.Top() != types.ModeEnterTime {
		t.Fatalf("Expected second enter-time flow, got %s", system.stack.Top())
	}
	system.HandleCommand(types.CmdSetOnOffTime)
	system.HandleCommand(types.CmdSetOnOffTime)

	// Toggle phase: flip the preview flag, then finish
	if system.stack.Top() != types.ModeSetOnOffTime {
		t.Fatalf("Expected toggle phase, got %s", system.stack.Top())
	}
	system.HandleCommand(types.CmdUp)
	system.HandleCommand(types.CmdSetOnOffTime)

	cfg := m.cfgStore.cfg
	if cfg.Windows[0].Start != (types.TimePoint{Hour: 22, Minute: 30}) {
		t.Errorf("Expected window start 22:30, got %s", cfg.Windows[0].Start)
	}
	if cfg.Windows[0].End != (types.TimePoint{Hour: 6, Minute: 0}) {
		t.Errorf("Expected window end 06:00, got %s", cfg.Windows[0].End)
	}
	if !cfg.AutoOffPreview {
		t.Error("Expected auto-off preview enabled by the toggle")
	}
	if system.stack.Depth() != 1 || system.stack.Top() != types.ModeNormal {
		t.Errorf("Expected bare word display after flow, stack %v", system.stack.Modes())
	}
}

// ===== Settings Update Tests =====

func TestSettingsUpdatePulseInterval(t *testing.T) {
	system, m := newTestClockSystem()
	startTestSystem(t, system)

	m.redis.settingsFields["clock.pulse-interval"] = "9"
	if err := system.handleSettingsUpdate("clock.pulse-interval"); err != nil {
		t.Fatalf("handleSettingsUpdate failed: %v", err)
	}
	if m.cfgStore.cfg.PulseInterval != 9 {
		t.Errorf("Expected pulse interval 9, got %d", m.cfgStore.cfg.PulseInterval)
	}

	m.redis.settingsFields["clock.pulse-interval"] = "999"
	if err := system.handleSettingsUpdate("clock.pulse-interval"); err != nil {
		t.Fatalf("handleSettingsUpdate failed: %v", err)
	}
	if m.cfgStore.cfg.PulseInterval != PulseIntervalMax {
		t.Errorf("Expected clamped interval %d, got %d", PulseIntervalMax, m.cfgStore.cfg.PulseInterval)
	}
}

func TestSettingsUpdateAutoOffPreview(t *testing.T) {
	system, m := newTestClockSystem()
	startTestSystem(t, system)

	m.redis.settingsFields["clock.auto-off-preview"] = "enabled"
	if err := system.handleSettingsUpdate("clock.auto-off-preview"); err != nil {
		t.Fatalf("handleSettingsUpdate failed: %v", err)
	}
	if !m.cfgStore.cfg.AutoOffPreview {
		t.Error("Expected auto-off preview enabled")
	}
}

func TestSettingsUpdateUnknownIgnored(t *testing.T) {
	system, _ := newTestClockSystem()
	startTestSystem(t, system)

	if err := system.handleSettingsUpdate("clock.no-such-setting"); err != nil {
		t.Errorf("Unknown setting should be ignored, got %v", err)
	}
}

// ===== Show Number =====

func TestShowNumberSelfQuits(t *testing.T) {
	system, m := newTestClockSystem()
	startTestSystem(t, system)

	if err := system.ShowNumber(7); err != nil {
		t.Fatalf("ShowNumber failed: %v", err)
	}
	if system.stack.Top() != types.ModeShowNumber {
		t.Fatalf("Expected show-number on top, got %s", system.stack.Top())
	}
	last := m.display.rawFrames[len(m.display.rawFrames)-1]
	if last.state != 0x100|7 {
		t.Errorf("Expected number mask for 7, got 0x%x", last.state)
	}

	for i := 0; i < showNumberSeconds; i++ {
		system.TickSecond()
	}
	if system.stack.Top() != types.ModeNormal {
		t.Errorf("Expected show-number gone, top is %s", system.stack.Top())
	}
}
