package display

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"wordclock-service/internal/logger"
)

var rgbLedPaths = [3]string{
	"/sys/class/leds/wordclock:red/brightness",
	"/sys/class/leds/wordclock:green/brightness",
	"/sys/class/leds/wordclock:blue/brightness",
}

// pulseCurve is the breathing waveform sampled by pulse mode, one
// brightness value per step. Rise is steeper than decay.
var pulseCurve = []int{
	2, 4, 7, 10, 13, 15, 14, 13, 11, 10, 8, 7, 5, 4, 3, 2,
}

// RgbEngine drives the RGB backlight channels through the leds sysfs
// class and provides the color math for hue cycling and pulsing.
type RgbEngine struct {
	logger *logger.Logger
	mu     sync.Mutex
}

func NewRgbEngine(log *logger.Logger) *RgbEngine {
	return &RgbEngine{logger: log.WithTag("Color")}
}

func (e *RgbEngine) SetRGB(r, g, b uint8) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, v := range [3]uint8{r, g, b} {
		if err := writeLedValue(rgbLedPaths[i], int(v)); err != nil {
			e.logger.Warnf("Failed to set RGB channel %d: %v", i, err)
			return
		}
	}
}

func writeLedValue(path string, value int) error {
	fd, err := unix.Open(path, unix.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer unix.Close(fd)

	if _, err := unix.Write(fd, []byte(fmt.Sprintf("%d", value))); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// HueToRGB converts a hue angle to full-saturation RGB. Hue wraps at
// 360 degrees.
func (e *RgbEngine) HueToRGB(hue int) (r, g, b uint8) {
	hue = ((hue % 360) + 360) % 360

	sector := hue / 60
	ramp := uint8(255 * (hue % 60) / 60)

	switch sector {
	case 0:
		return 255, ramp, 0
	case 1:
		return 255 - ramp, 255, 0
	case 2:
		return 0, 255, ramp
	case 3:
		return 0, 255 - ramp, 255
	case 4:
		return ramp, 0, 255
	default:
		return 255, 0, 255 - ramp
	}
}

// PulseWaveform returns the brightness sample for a pulse step.
func (e *RgbEngine) PulseWaveform(step int) int {
	n := len(pulseCurve)
	return pulseCurve[((step%n)+n)%n]
}
