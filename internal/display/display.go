package display

import (
	"fmt"
	"sync"

	"wordclock-service/internal/logger"
	"wordclock-service/internal/types"
)

// Variant names. Wessi reads quarter past / quarter to; ossi reads
// viertel / dreiviertel against the coming hour.
const (
	VariantWessi = "wessi"
	VariantOssi  = "ossi"
)

var variants = []string{VariantWessi, VariantOssi}

type WordDisplay struct {
	logger  *logger.Logger
	mu      sync.Mutex
	writer  FrameWriter
	variant int

	haveTime  bool
	lastTime  types.TimeOfDay
	lastBlink uint32
}

func NewWordDisplay(log *logger.Logger, writer FrameWriter) *WordDisplay {
	return &WordDisplay{
		logger: log.WithTag("Display"),
		writer: writer,
	}
}

func (d *WordDisplay) RenderTime(t types.TimeOfDay, blinkMask uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.haveTime = true
	d.lastTime = t
	d.lastBlink = blinkMask
	d.writeFrame(d.timeMask(t), blinkMask)
}

func (d *WordDisplay) RenderRaw(stateMask uint32, blinkMask uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.haveTime = false
	d.writeFrame(stateMask, blinkMask)
}

func (d *WordDisplay) writeFrame(state, blink uint32) {
	if err := d.writer.WriteFrame(state, blink); err != nil {
		d.logger.Warnf("Failed to write frame: %v", err)
	}
}

// timeMask builds the word mask for a time under the current variant.
// Caller holds mu.
func (d *WordDisplay) timeMask(t types.TimeOfDay) uint32 {
	mask := WordIt | WordIs
	hourAhead := 0
	ossi := variants[d.variant] == VariantOssi

	switch (t.Minute / 5) * 5 {
	case 0:
		mask |= WordClock
	case 5:
		mask |= WordFive | WordPast
	case 10:
		mask |= WordTen | WordPast
	case 15:
		if ossi {
			mask |= WordQuarter
			hourAhead = 1
		} else {
			mask |= WordQuarter | WordPast
		}
	case 20:
		mask |= WordTwenty | WordPast
	case 25:
		mask |= WordFive | WordTo | WordHalf
		hourAhead = 1
	case 30:
		mask |= WordHalf
		hourAhead = 1
	case 35:
		mask |= WordFive | WordPast | WordHalf
		hourAhead = 1
	case 40:
		mask |= WordTwenty | WordTo
		hourAhead = 1
	case 45:
		if ossi {
			mask |= WordThreeQuarter
		} else {
			mask |= WordQuarter | WordTo
		}
		hourAhead = 1
	case 50:
		mask |= WordTen | WordTo
		hourAhead = 1
	case 55:
		mask |= WordFive | WordTo
		hourAhead = 1
	}

	mask |= hourWords[(t.Hour+hourAhead)%12]
	for i := 0; i < t.Minute%5; i++ {
		mask |= cornerWords[i]
	}
	return mask
}

func (d *WordDisplay) HoursMask() uint32 {
	var mask uint32
	for _, w := range hourWords {
		mask |= w
	}
	return mask
}

func (d *WordDisplay) MinutesMask() uint32 {
	return WordFive | WordTen | WordQuarter | WordTwenty | WordThreeQuarter |
		WordHalf | WordTo | WordPast | d.IndicatorMask()
}

func (d *WordDisplay) TimeSetMask() uint32 {
	return WordIt | WordIs
}

func (d *WordDisplay) IndicatorMask() uint32 {
	return CornerOne | CornerTwo | CornerThree | CornerFour
}

// NumberMask shows the ones digit with the matching hour word (zero as
// UHR) and counts tens on the corners.
func (d *WordDisplay) NumberMask(n int) uint32 {
	if n < 0 {
		n = -n
	}

	var mask uint32
	if digit := n % 10; digit == 0 {
		mask = WordClock
	} else {
		mask = hourWords[digit%12]
	}

	tens := n / 10
	if tens > 4 {
		tens = 4
	}
	for i := 0; i < tens; i++ {
		mask |= cornerWords[i]
	}
	return mask
}

func (d *WordDisplay) GroupMask(group int) uint32 {
	return demoGroups[((group%len(demoGroups))+len(demoGroups))%len(demoGroups)]
}

func (d *WordDisplay) CornerMask(n int) uint32 {
	return cornerWords[((n%4)+4)%4]
}

// SelectVariant switches the quarter-hour convention. An empty name
// cycles to the next variant. The face is redrawn immediately when a
// time is showing.
func (d *WordDisplay) SelectVariant(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if name == "" {
		d.variant = (d.variant + 1) % len(variants)
	} else {
		found := -1
		for i, v := range variants {
			if v == name {
				found = i
				break
			}
		}
		if found < 0 {
			return fmt.Errorf("unknown display variant: %s", name)
		}
		d.variant = found
	}

	d.logger.Infof("Display variant set to %s", variants[d.variant])
	if d.haveTime {
		d.writeFrame(d.timeMask(d.lastTime), d.lastBlink)
	}
	return nil
}

func (d *WordDisplay) Variant() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return variants[d.variant]
}
