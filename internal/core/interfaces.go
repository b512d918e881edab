package core

import (
	"wordclock-service/internal/messaging"
	"wordclock-service/internal/types"
)

// Display defines the word-mask rendering operations needed by ClockSystem.
// Masks are bitmasks over the word layout; bit assignments belong to the
// display module.
type Display interface {
	RenderTime(t types.TimeOfDay, blinkMask uint32)
	RenderRaw(stateMask uint32, blinkMask uint32)

	HoursMask() uint32
	MinutesMask() uint32
	TimeSetMask() uint32
	IndicatorMask() uint32
	NumberMask(n int) uint32
	GroupMask(group int) uint32
	CornerMask(n int) uint32

	SelectVariant(name string) error
}

// Brightness defines the PWM brightness control operations needed by
// ClockSystem. A lock pins the output value until released; stepping and
// calibration act on the unlocked base value.
type Brightness interface {
	Lock(value int)
	Release()
	StepUp() error
	StepDown() error
	CalibrateFromAmbient() error
	PowerOn() error
	PowerOff() error
	Max() int
}

// ColorEngine defines RGB output and waveform generation.
type ColorEngine interface {
	SetRGB(r, g, b uint8)
	HueToRGB(hue int) (r, g, b uint8)
	PulseWaveform(step int) int
}

// TimeSource defines the RTC/DCF77 collaborator.
type TimeSource interface {
	Now() types.TimeOfDay
	SetTime(t types.TimeOfDay) bool
	Resync() error
}

// ConfigStore owns the persistent configuration.
type ConfigStore interface {
	Config() *types.Config
	Save() error
}

// Accessory line names, shared with the hardware package mappings.
const (
	AccessoryAmbientLight = "ambient_light"
	AccessoryBluetooth    = "bluetooth"
	AccessoryAuxPower     = "aux_power"
)

// AccessoryIO defines the three GPIO accessory lines (ambient light strip,
// Bluetooth module, auxiliary power rail).
type AccessoryIO interface {
	Toggle(line string) error
	Set(line string, on bool) error
	Get(line string) bool
}

// MessagingClient defines the Redis messaging operations needed by ClockSystem
type MessagingClient interface {
	SetCallbacks(callbacks messaging.Callbacks)
	Connect() error
	StartListening() error
	Close() error

	// State publication for UIs
	PublishPowerState(state types.PowerState) error
	PublishMode(mode types.Mode) error

	// Settings
	GetSettingsField(field string) (string, error)

	// Commands to sibling services
	SendCommand(channel, command string) error
}
