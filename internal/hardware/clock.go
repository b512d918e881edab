package hardware

import (
	"sync"
	"time"

	"wordclock-service/internal/logger"
	"wordclock-service/internal/types"
)

// SystemClock keeps clock time as an offset from the system clock,
// so a user-set time survives without touching the system RTC. Resync
// drops the offset and asks the time source service for a fresh sample.
type SystemClock struct {
	logger *logger.Logger
	mu     sync.RWMutex
	offset time.Duration
	resync func() error
}

func NewSystemClock(log *logger.Logger, resync func() error) *SystemClock {
	return &SystemClock{
		logger: log.WithTag("Clock"),
		resync: resync,
	}
}

func (c *SystemClock) Now() types.TimeOfDay {
	c.mu.RLock()
	off := c.offset
	c.mu.RUnlock()

	now := time.Now().Add(off)
	return types.TimeOfDay{Hour: now.Hour(), Minute: now.Minute(), Second: now.Second()}
}

func (c *SystemClock) SetTime(t types.TimeOfDay) bool {
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 || t.Second < 0 || t.Second > 59 {
		return false
	}

	now := time.Now()
	target := time.Date(now.Year(), now.Month(), now.Day(), t.Hour, t.Minute, t.Second, 0, now.Location())

	c.mu.Lock()
	c.offset = target.Sub(now)
	c.mu.Unlock()

	c.logger.Infof("Clock time set to %s", t.String())
	return true
}

func (c *SystemClock) Resync() error {
	c.mu.Lock()
	c.offset = 0
	c.mu.Unlock()

	c.logger.Infof("Clock resynchronized to system time")
	if c.resync != nil {
		return c.resync()
	}
	return nil
}
