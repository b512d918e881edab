package core

import (
	"wordclock-service/internal/types"
)

const (
	// Demo multiplexes this many output groups in fast sub-mode
	DemoGroupCount = 8
	// Slow ticks between word-group advances in normal demo sub-mode
	demoStepTicks = 4

	// Bounds for the pulse update interval, in medium ticks
	PulseIntervalMin = 1
	PulseIntervalMax = 16

	// Seconds a number stays on the display
	showNumberSeconds = 3
)

// normalMode is the home mode: the plain word display. It repaints once
// per second so minute boundaries and corner LEDs stay current.
type normalMode struct {
	sys *ClockSystem
}

func (m *normalMode) Mode() types.Mode { return types.ModeNormal }

func (m *normalMode) Enter(param any) {
	m.sys.renderCurrentTime()
}

func (m *normalMode) TickSecond() {
	m.sys.renderCurrentTime()
}

// demoMode exercises the display. Fast sub-mode multiplexes the output
// groups at full brightness on every fast tick; normal sub-mode walks
// one word group ahead every few slow ticks.
type demoMode struct {
	sys       *ClockSystem
	fast      bool
	group     int
	slowTicks int
}

func (m *demoMode) Mode() types.Mode { return types.ModeDemo }

func (m *demoMode) Enter(param any) {
	m.fast = false
	m.group = 0
	m.slowTicks = 0
	m.sys.display.RenderRaw(m.sys.display.GroupMask(m.group), 0)
}

func (m *demoMode) HandleCommand(cmd types.Command) bool {
	switch cmd {
	case types.CmdUp, types.CmdDown:
		m.fast = !m.fast
		m.sys.logger.Infof("Demo sub-mode: fast=%v", m.fast)
		return true
	}
	return false
}

func (m *demoMode) TickFast() {
	if !m.fast {
		return
	}
	m.sys.brightness.Lock(m.sys.brightness.Max())
	m.sys.display.RenderRaw(m.sys.display.GroupMask(m.group), 0)
	m.group = (m.group + 1) % DemoGroupCount
}

func (m *demoMode) TickSlow() {
	if m.fast {
		return
	}
	m.slowTicks++
	if m.slowTicks < demoStepTicks {
		return
	}
	m.slowTicks = 0
	m.group = (m.group + 1) % DemoGroupCount
	m.sys.display.RenderRaw(m.sys.display.GroupMask(m.group), 0)
}

func (m *demoMode) Leave() {
	m.sys.brightness.Release()
}

// pulseMode layers a breathing brightness curve over the mode beneath
// it. Medium ticks sample the waveform at the configured interval; slow
// ticks are forwarded down the stack so the underlying display keeps
// animating.
type pulseMode struct {
	sys     *ClockSystem
	elapsed int
	step    int
}

func (m *pulseMode) Mode() types.Mode { return types.ModePulse }

func (m *pulseMode) Enter(param any) {
	m.elapsed = 0
	m.step = 0
}

func (m *pulseMode) HandleCommand(cmd types.Command) bool {
	cfg := m.sys.cfgStore.Config()
	switch cmd {
	case types.CmdUp:
		cfg.PulseInterval = clampPulseInterval(cfg.PulseInterval + 1)
	case types.CmdDown:
		cfg.PulseInterval = clampPulseInterval(cfg.PulseInterval - 1)
	default:
		return false
	}
	m.sys.logger.Infof("Pulse interval: %d", cfg.PulseInterval)
	return true
}

func (m *pulseMode) TickMedium() {
	m.elapsed++
	if m.elapsed < m.sys.cfgStore.Config().PulseInterval {
		return
	}
	m.elapsed = 0
	m.sys.brightness.Lock(m.sys.color.PulseWaveform(m.step))
	m.step++
}

func (m *pulseMode) TickSlow() {
	below := m.sys.stack.Below(types.ModePulse)
	if t, ok := m.sys.handlerFor(below).(SlowTicker); ok {
		t.TickSlow()
	}
}

func (m *pulseMode) Leave() {
	m.sys.brightness.Release()
}

// hueCycleMode sweeps the display color around the hue circle while the
// time display keeps running underneath its second tick.
type hueCycleMode struct {
	sys *ClockSystem
	hue int
}

func (m *hueCycleMode) Mode() types.Mode { return types.ModeHueCycle }

func (m *hueCycleMode) Enter(param any) {
	m.hue = 0
}

func (m *hueCycleMode) TickSlow() {
	m.hue = (m.hue + 1) % 360
	r, g, b := m.sys.color.HueToRGB(m.hue)
	m.sys.color.SetRGB(r, g, b)
}

func (m *hueCycleMode) TickSecond() {
	m.sys.renderCurrentTime()
}

// showNumberMode flashes a number (IR training slot, diagnostics) for a
// few seconds and removes itself.
type showNumberMode struct {
	sys       *ClockSystem
	number    int
	remaining int
}

func (m *showNumberMode) Mode() types.Mode { return types.ModeShowNumber }

func (m *showNumberMode) Enter(param any) {
	if n, ok := param.(int); ok {
		m.number = n
	} else {
		m.number = 0
	}
	m.remaining = showNumberSeconds
	m.sys.display.RenderRaw(m.sys.display.NumberMask(m.number), 0)
}

func (m *showNumberMode) TickSecond() {
	m.remaining--
	if m.remaining <= 0 {
		m.sys.stack.ReturnToParent(types.ModeShowNumber, nil)
	}
}
