package core

import "wordclock-service/internal/types"

// The four scheduler ticks. The host loop (or a test at virtual time)
// calls these at fixed rates; none of them block. Fast, medium and slow
// route straight to the top-of-stack mode. The once-per-second tick also
// runs the autosave and auto-off bookkeeping.

func (s *ClockSystem) TickFast() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return
	}
	if t, ok := s.topHandler().(FastTicker); ok {
		t.TickFast()
	}
}

func (s *ClockSystem) TickMedium() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return
	}
	if t, ok := s.topHandler().(MediumTicker); ok {
		t.TickMedium()
	}
}

func (s *ClockSystem) TickSlow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return
	}
	if t, ok := s.topHandler().(SlowTicker); ok {
		t.TickSlow()
	}
}

// TickSecond advances the debounce counters (saturating), fires the
// debounced save the moment the persistence counter reaches its
// threshold, then either ticks the active mode or, while AutoOff holds
// the display with the preview feature enabled, advances the preview
// animation instead.
func (s *ClockSystem) TickSecond() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return
	}

	if s.saveDelay < SaveDelaySeconds {
		s.saveDelay++
		if s.saveDelay == SaveDelaySeconds {
			s.logger.Debugf("Persistence delay elapsed, saving configuration")
			s.persistNow()
		}
	}
	if s.checkDelay < CheckDelaySeconds {
		s.checkDelay++
	}

	if s.PowerState() != types.PowerAutoOff && !s.previewRunning {
		if t, ok := s.topHandler().(SecondTicker); ok {
			t.TickSecond()
		}
		return
	}
	if s.previewRunning {
		s.advancePreview()
	}
}

func (s *ClockSystem) topHandler() Handler {
	return s.handlerFor(s.stack.Top())
}
