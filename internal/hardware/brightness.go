package hardware

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"wordclock-service/internal/logger"
)

// PwmBrightness drives the LED supply through a sysfs PWM channel.
// The base value survives lock/unlock cycles; a lock pins the duty
// cycle until Release without touching the base value.
type PwmBrightness struct {
	logger      *logger.Logger
	mu          sync.Mutex
	chipPath    string
	dutyFd      int
	value       int
	locked      bool
	lockedValue int
	powered     bool
}

func NewPwmBrightness(log *logger.Logger) *PwmBrightness {
	return &PwmBrightness{
		logger:   log.WithTag("Brightness"),
		chipPath: PwmChipPath,
		dutyFd:   -1,
		value:    BrightnessMax / 2,
	}
}

func (b *PwmBrightness) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.writeAttr("period", PwmPeriodNs); err != nil {
		return err
	}

	fd, err := unix.Open(b.chipPath+"/duty_cycle", unix.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open PWM duty cycle: %w", err)
	}
	b.dutyFd = fd

	if err := b.writeAttr("enable", 1); err != nil {
		unix.Close(fd)
		b.dutyFd = -1
		return err
	}
	return b.apply()
}

func (b *PwmBrightness) writeAttr(name string, value int) error {
	fd, err := unix.Open(b.chipPath+"/"+name, unix.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open PWM %s: %w", name, err)
	}
	defer unix.Close(fd)

	if _, err := unix.Write(fd, []byte(fmt.Sprintf("%d", value))); err != nil {
		return fmt.Errorf("failed to write PWM %s: %w", name, err)
	}
	return nil
}

// apply pushes the effective value to the duty cycle file. Caller holds mu.
// The curve is quadratic so the low steps stay usable at night.
func (b *PwmBrightness) apply() error {
	if b.dutyFd < 0 {
		return nil
	}

	v := b.value
	if b.locked {
		v = b.lockedValue
	}
	if !b.powered {
		v = 0
	}

	duty := PwmPeriodNs * v * v / (BrightnessMax * BrightnessMax)
	if _, err := unix.Write(b.dutyFd, []byte(fmt.Sprintf("%d", duty))); err != nil {
		return fmt.Errorf("failed to write PWM duty cycle: %w", err)
	}
	return nil
}

func (b *PwmBrightness) Lock(value int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.locked = true
	b.lockedValue = clamp(value, 0, BrightnessMax)
	if err := b.apply(); err != nil {
		b.logger.Warnf("Failed to apply locked brightness: %v", err)
	}
}

func (b *PwmBrightness) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.locked = false
	if err := b.apply(); err != nil {
		b.logger.Warnf("Failed to restore brightness: %v", err)
	}
}

func (b *PwmBrightness) StepUp() error {
	return b.step(1)
}

func (b *PwmBrightness) StepDown() error {
	return b.step(-1)
}

func (b *PwmBrightness) step(dir int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	next := clamp(b.value+dir, 1, BrightnessMax)
	if next == b.value {
		return nil
	}
	b.value = next
	b.logger.Debugf("Brightness stepped to %d", b.value)
	return b.apply()
}

// CalibrateFromAmbient rescales the base value from the LDR reading.
func (b *PwmBrightness) CalibrateFromAmbient() error {
	raw, err := ReadAdcValue(LdrAdcDevice, LdrAdcChannel)
	if err != nil {
		return fmt.Errorf("ambient calibration failed: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.value = clamp(raw*BrightnessMax/LdrAdcMax, 1, BrightnessMax)
	b.logger.Infof("Calibrated brightness from ambient: raw=%d value=%d", raw, b.value)
	return b.apply()
}

func (b *PwmBrightness) PowerOn() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.powered = true
	return b.apply()
}

func (b *PwmBrightness) PowerOff() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.powered = false
	return b.apply()
}

func (b *PwmBrightness) Max() int {
	return BrightnessMax
}

func (b *PwmBrightness) Cleanup() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dutyFd >= 0 {
		unix.Close(b.dutyFd)
		b.dutyFd = -1
	}
	if err := b.writeAttr("enable", 0); err != nil {
		b.logger.Warnf("Failed to disable PWM: %v", err)
	}
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
