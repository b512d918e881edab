package types

import "fmt"

// Mode identifies one interaction flow. The set is closed; modes carry no
// data themselves, their working state lives with the handler in core.
type Mode string

const (
	ModeNone          Mode = ""
	ModeNormal        Mode = "normal"
	ModeDemo          Mode = "demo"
	ModePulse         Mode = "pulse"
	ModeHueCycle      Mode = "hue-cycle"
	ModeSetSystemTime Mode = "set-system-time"
	ModeSetOnOffTime  Mode = "set-on-off-time"
	ModeEnterTime     Mode = "enter-time"
	ModeShowNumber    Mode = "show-number"
	ModeIrTrain       Mode = "ir-train"
)

// PowerState governs whether display output is suppressed and why.
type PowerState string

const (
	PowerNormalOn   PowerState = "normal-on"
	PowerAutoOff    PowerState = "auto-off"
	PowerManualOff  PowerState = "manual-off"
	PowerOverrideOn PowerState = "override-on"
)

// Command is an abstract user action, source-agnostic. The remote decoder
// and the serial channel both map into this set.
type Command string

const (
	CmdOnOff          Command = "on-off"
	CmdUp             Command = "up"
	CmdDown           Command = "down"
	CmdBrightnessUp   Command = "brightness-up"
	CmdBrightnessDown Command = "brightness-down"
	CmdTimeMode       Command = "time-mode"
	CmdSetSystemTime  Command = "set-system-time"
	CmdSetOnOffTime   Command = "set-on-off-time"
	CmdDemo           Command = "demo"
	CmdCalibrate      Command = "calibrate"
	CmdPulse          Command = "pulse"
	CmdHueCycle       Command = "hue-cycle"
	CmdResync         Command = "resync"
	CmdAmbientLight   Command = "ambient-light"
	CmdBluetooth      Command = "bluetooth"
	CmdAuxPower       Command = "aux-power"
	CmdVariant        Command = "variant"
)

// TimeOfDay is a wall-clock time with second resolution. The date lives
// with the time source; this core only ever reasons about times of day.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// TimePoint is one boundary of an on/off window, minute resolution.
type TimePoint struct {
	Hour   int
	Minute int
}

func (p TimePoint) String() string {
	return fmt.Sprintf("%02d:%02d", p.Hour, p.Minute)
}

// Window is a time-of-day interval during which output is suppressed.
// The interval wraps around midnight when the end hour is smaller than
// the start hour.
type Window struct {
	Start TimePoint
	End   TimePoint
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t TimeOfDay) bool {
	cur := t.Hour*60 + t.Minute
	start := w.Start.Hour*60 + w.Start.Minute
	end := w.End.Hour*60 + w.End.Minute
	if w.End.Hour < w.Start.Hour {
		return cur >= start || cur < end
	}
	return cur >= start && cur < end
}

// Config is the persistent appliance configuration. It is loaded once at
// startup and written back through the debounced save path.
type Config struct {
	BaseMode       Mode
	PulseLayer     bool
	Brightness     int
	PulseInterval  int // medium ticks between pulse waveform samples
	AutoOffPreview bool
	Windows        []Window
	IrAddress      uint16
	IrCodes        map[uint32]Command
}

// DefaultConfig returns the factory configuration: word display as base
// mode, one night window, untrained remote.
func DefaultConfig() *Config {
	return &Config{
		BaseMode:      ModeNormal,
		Brightness:    8,
		PulseInterval: 4,
		Windows: []Window{
			{Start: TimePoint{Hour: 23, Minute: 0}, End: TimePoint{Hour: 6, Minute: 0}},
		},
		IrCodes: make(map[uint32]Command),
	}
}
