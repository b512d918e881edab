package core

import (
	"wordclock-service/internal/types"
)

// Preview brightness used while editing a time at night, so the blink
// does not light up a bedroom.
const nightPreviewBrightness = 2

// EnterTimeParams seeds a time-entry flow.
type EnterTimeParams struct {
	// Seed is the starting value of the working buffer.
	Seed types.TimeOfDay
	// Trigger is the command that started the flow; repeating it
	// advances hour -> minute -> finish.
	Trigger types.Command
	// MinuteStep is the minute increment; 0 means 1.
	MinuteStep int
}

const (
	editingHour = iota
	editingMinute
)

// enterTimeMode is the reusable "enter a time" sub-flow. It edits a
// working copy of the caller's time, field by field, and refuses to be
// popped until the flow has finished, at which point it returns the
// edited value to its parent.
type enterTimeMode struct {
	sys      *ClockSystem
	buf      types.TimeOfDay
	trigger  types.Command
	step     int
	phase    int
	canLeave bool
}

func (m *enterTimeMode) Mode() types.Mode { return types.ModeEnterTime }

func (m *enterTimeMode) Enter(param any) {
	p, ok := param.(EnterTimeParams)
	if !ok {
		p = EnterTimeParams{Seed: m.sys.timeSrc.Now(), Trigger: types.CmdSetSystemTime}
	}
	m.buf = p.Seed
	m.buf.Second = 0
	m.trigger = p.Trigger
	m.step = p.MinuteStep
	if m.step <= 0 {
		m.step = 1
	}
	m.phase = editingHour
	m.canLeave = false

	// Day/night heuristic for the edit preview
	if m.buf.Hour >= 8 && m.buf.Hour < 20 {
		m.sys.brightness.Lock(m.sys.brightness.Max())
	} else {
		m.sys.brightness.Lock(nightPreviewBrightness)
	}
	m.render()
}

func (m *enterTimeMode) render() {
	blink := m.sys.display.HoursMask()
	if m.phase == editingMinute {
		blink = m.sys.display.MinutesMask()
	}
	m.sys.display.RenderTime(m.buf, blink|m.sys.display.TimeSetMask())
}

func (m *enterTimeMode) HandleCommand(cmd types.Command) bool {
	switch cmd {
	case types.CmdUp:
		m.adjust(1)
		return true
	case types.CmdDown:
		m.adjust(-1)
		return true
	case m.trigger:
		m.advance()
		return true
	}
	return false
}

func (m *enterTimeMode) adjust(dir int) {
	switch m.phase {
	case editingHour:
		m.buf.Hour = (m.buf.Hour + dir + 24) % 24
	case editingMinute:
		m.buf.Minute = (m.buf.Minute + dir*m.step + 60) % 60
	}
	m.render()
}

func (m *enterTimeMode) advance() {
	if m.phase == editingHour {
		m.phase = editingMinute
		m.render()
		return
	}
	m.canLeave = true
	m.sys.stack.ReturnToParent(types.ModeEnterTime, TimeResult{Time: m.buf})
}

func (m *enterTimeMode) MayLeave() bool { return m.canLeave }

func (m *enterTimeMode) Leave() {
	m.sys.brightness.Release()
}

// setSystemTimeMode drives one EnterTime flow seeded with the current
// time, then commits the result to the time source.
type setSystemTimeMode struct {
	sys      *ClockSystem
	canLeave bool
}

func (m *setSystemTimeMode) Mode() types.Mode { return types.ModeSetSystemTime }

func (m *setSystemTimeMode) Enter(param any) {
	m.canLeave = false
	m.sys.stack.PushSubstate(types.ModeSetSystemTime, types.ModeEnterTime, EnterTimeParams{
		Seed:    m.sys.timeSrc.Now(),
		Trigger: types.CmdSetSystemTime,
	})
}

func (m *setSystemTimeMode) SubstateFinished(child types.Mode, result SubstateResult) {
	if tr, ok := result.(TimeResult); ok {
		t := tr.Time
		t.Second = 0
		if !m.sys.timeSrc.SetTime(t) {
			m.sys.logger.Warnf("Time source rejected %s", t)
		} else {
			m.sys.logger.Infof("System time set to %s", t)
		}
	}
	m.canLeave = true
	m.sys.stack.ReturnToParent(types.ModeSetSystemTime, nil)
}

func (m *setSystemTimeMode) MayLeave() bool { return m.canLeave }

// setOnOffTimeMode walks every on/off window boundary through the
// EnterTime sub-flow in turn, then offers an Up/Down toggle for the
// auto-off preview flag before it lets go of the display.
type setOnOffTimeMode struct {
	sys         *ClockSystem
	index       int
	togglePhase bool
	canLeave    bool
}

func (m *setOnOffTimeMode) Mode() types.Mode { return types.ModeSetOnOffTime }

func (m *setOnOffTimeMode) Enter(param any) {
	m.index = 0
	m.togglePhase = false
	m.canLeave = false
	if len(m.sys.cfgStore.Config().Windows) == 0 {
		m.enterTogglePhase()
		return
	}
	m.pushEndpoint()
}

// endpoint i is window i/2, start for even i and end for odd i.
func (m *setOnOffTimeMode) pushEndpoint() {
	cfg := m.sys.cfgStore.Config()
	w := cfg.Windows[m.index/2]
	p := w.Start
	if m.index%2 == 1 {
		p = w.End
	}
	m.sys.stack.PushSubstate(types.ModeSetOnOffTime, types.ModeEnterTime, EnterTimeParams{
		Seed:       types.TimeOfDay{Hour: p.Hour, Minute: p.Minute},
		Trigger:    types.CmdSetOnOffTime,
		MinuteStep: 5,
	})
}

func (m *setOnOffTimeMode) SubstateFinished(child types.Mode, result SubstateResult) {
	cfg := m.sys.cfgStore.Config()
	if tr, ok := result.(TimeResult); ok {
		p := types.TimePoint{Hour: tr.Time.Hour, Minute: tr.Time.Minute}
		if m.index%2 == 0 {
			cfg.Windows[m.index/2].Start = p
		} else {
			cfg.Windows[m.index/2].End = p
		}
		m.sys.logger.Infof("Window boundary %d set to %s", m.index, p)
	}
	m.index++
	if m.index < 2*len(cfg.Windows) {
		m.pushEndpoint()
		return
	}
	m.enterTogglePhase()
}

func (m *setOnOffTimeMode) enterTogglePhase() {
	m.togglePhase = true
	m.canLeave = true
	m.renderFlag()
}

func (m *setOnOffTimeMode) renderFlag() {
	n := 0
	if m.sys.cfgStore.Config().AutoOffPreview {
		n = 1
	}
	m.sys.display.RenderRaw(m.sys.display.NumberMask(n), m.sys.display.TimeSetMask())
}

func (m *setOnOffTimeMode) HandleCommand(cmd types.Command) bool {
	if !m.togglePhase {
		return false
	}
	cfg := m.sys.cfgStore.Config()
	switch cmd {
	case types.CmdUp, types.CmdDown:
		cfg.AutoOffPreview = !cfg.AutoOffPreview
		m.sys.logger.Infof("Auto-off preview: %v", cfg.AutoOffPreview)
		m.renderFlag()
		return true
	case types.CmdSetOnOffTime:
		m.sys.stack.ReturnToParent(types.ModeSetOnOffTime, nil)
		return true
	}
	return false
}

func (m *setOnOffTimeMode) MayLeave() bool { return m.canLeave }
