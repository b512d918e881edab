package hardware

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"

	"wordclock-service/internal/logger"
)

// AccessoryLines drives the simple on/off outputs hanging off the clock:
// the ambient light strip, the bluetooth module supply and the aux
// power output on the back of the case.
type AccessoryLines struct {
	logger *logger.Logger
	mu     sync.RWMutex
	chips  map[int]*gpiocdev.Chip
	lines  map[string]*gpiocdev.Line
	states map[string]bool
}

func NewAccessoryLines(log *logger.Logger) *AccessoryLines {
	return &AccessoryLines{
		logger: log.WithTag("Accessory"),
		chips:  make(map[int]*gpiocdev.Chip),
		lines:  make(map[string]*gpiocdev.Line),
		states: make(map[string]bool),
	}
}

func (a *AccessoryLines) Initialize() error {
	for name, mapping := range AccessoryMappings {
		chip, ok := a.chips[mapping.Chip]
		if !ok {
			var err error
			chip, err = gpiocdev.NewChip(fmt.Sprintf("gpiochip%d", mapping.Chip))
			if err != nil {
				return fmt.Errorf("failed to open GPIO chip %d: %w", mapping.Chip, err)
			}
			a.chips[mapping.Chip] = chip
		}

		line, err := chip.RequestLine(mapping.Line,
			gpiocdev.AsOutput(0),
			gpiocdev.WithConsumer("wordclock-service"))
		if err != nil {
			return fmt.Errorf("failed to request GPIO line %d: %w", mapping.Line, err)
		}

		a.lines[name] = line
		a.states[name] = false
		a.logger.Debugf("Configured accessory output %s: chip=%d, line=%d", name, mapping.Chip, mapping.Line)
	}
	return nil
}

func (a *AccessoryLines) Set(name string, on bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	line, ok := a.lines[name]
	if !ok {
		return fmt.Errorf("unknown accessory output: %s", name)
	}

	value := 0
	if on {
		value = 1
	}
	if err := line.SetValue(value); err != nil {
		return fmt.Errorf("failed to set %s: %w", name, err)
	}
	a.states[name] = on
	a.logger.Debugf("Accessory %s set to %v", name, on)
	return nil
}

func (a *AccessoryLines) Get(name string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.states[name]
}

func (a *AccessoryLines) Toggle(name string) error {
	return a.Set(name, !a.Get(name))
}

func (a *AccessoryLines) Cleanup() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for name, line := range a.lines {
		line.Close()
		a.logger.Debugf("Closed GPIO line for %s", name)
	}
	for id, chip := range a.chips {
		chip.Close()
		a.logger.Debugf("Closed GPIO chip %d", id)
	}
}
