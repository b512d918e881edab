package hardware

const (
	// PWM device driving the LED supply brightness
	PwmChipPath   = "/sys/class/pwm/pwmchip0/pwm0"
	PwmPeriodNs   = 1000000 // 1 kHz
	BrightnessMax = 15

	// Ambient light sensor (LDR) on the iio ADC
	LdrAdcDevice  = "iio:device0"
	LdrAdcChannel = 0
	LdrAdcMax     = 4095
)

var AccessoryMappings = map[string]struct {
	Chip int
	Line int
}{
	"ambient_light": {0, 17},
	"bluetooth":     {0, 22},
	"aux_power":     {0, 27},
}
