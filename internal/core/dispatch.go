package core

import (
	"fmt"

	"wordclock-service/internal/types"
)

// HandleCommand runs one command through the dispatch pipeline: the
// universal on/off short-circuit, then the mode stack top to bottom,
// then the global fallback. Whatever happens, the base mode is persisted
// into configuration state and both debounce counters reset.
func (s *ClockSystem) HandleCommand(cmd types.Command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handleCommandLocked(cmd)
}

func (s *ClockSystem) handleCommandLocked(cmd types.Command) {
	defer s.markDirty()

	s.logger.Debugf("Command: %s", cmd)

	if cmd == types.CmdOnOff {
		s.sendPowerEvent(evOnOff)
		// Power choice survives an immediate power cut
		s.persistNow()
		return
	}

	handled := false
	for _, mode := range reversed(s.stack.Modes()) {
		if h, ok := s.handlerFor(mode).(CommandHandler); ok && h.HandleCommand(cmd) {
			s.logger.Debugf("Command %s handled by %s", cmd, mode)
			handled = true
			break
		}
	}
	if !handled {
		s.handleGlobalCommand(cmd)
	}

	s.persistBaseMode()
	s.publishMode()
}

// handleGlobalCommand applies the fallback semantics for commands no
// active mode consumed.
func (s *ClockSystem) handleGlobalCommand(cmd types.Command) {
	switch cmd {
	case types.CmdBrightnessUp:
		if err := s.brightness.StepUp(); err != nil {
			s.logger.Warnf("Brightness step up failed: %v", err)
		}

	case types.CmdBrightnessDown:
		if err := s.brightness.StepDown(); err != nil {
			s.logger.Warnf("Brightness step down failed: %v", err)
		}

	case types.CmdTimeMode:
		// Replace the whole stack with the word display
		s.stack.PushSubstate(types.ModeNone, types.ModeNormal, nil)

	case types.CmdSetSystemTime:
		s.stack.PushSubstate(s.stack.Bottom(), types.ModeSetSystemTime, nil)

	case types.CmdSetOnOffTime:
		s.stack.PushSubstate(s.stack.Bottom(), types.ModeSetOnOffTime, nil)

	case types.CmdDemo:
		s.toggleMode(types.ModeDemo)

	case types.CmdCalibrate:
		if err := s.brightness.CalibrateFromAmbient(); err != nil {
			s.logger.Warnf("Ambient calibration failed: %v", err)
		}

	case types.CmdPulse:
		if s.stack.Contains(types.ModePulse) {
			s.popMode(types.ModePulse)
		} else if pulseCompatible(s.stack.Bottom()) {
			s.stack.Push(types.ModePulse, nil)
		} else {
			s.logger.Debugf("Pulse not compatible with base mode %s, ignored", s.stack.Bottom())
		}

	case types.CmdHueCycle:
		s.toggleMode(types.ModeHueCycle)

	case types.CmdResync:
		if err := s.timeSrc.Resync(); err != nil {
			s.logger.Warnf("Time source resync failed: %v", err)
		}

	case types.CmdAmbientLight:
		s.toggleAccessory(AccessoryAmbientLight)

	case types.CmdBluetooth:
		s.toggleAccessory(AccessoryBluetooth)

	case types.CmdAuxPower:
		s.toggleAccessory(AccessoryAuxPower)

	case types.CmdVariant:
		if err := s.display.SelectVariant(""); err != nil {
			s.logger.Warnf("Display variant switch failed: %v", err)
		}

	default:
		// Unhandled commands fall through the whole chain with no effect
		s.logger.Debugf("Command %s unhandled", cmd)
	}
}

// toggleMode pushes mode on top, or pops it if it is already active.
func (s *ClockSystem) toggleMode(mode types.Mode) {
	if s.stack.Contains(mode) {
		s.popMode(mode)
		return
	}
	s.stack.Push(mode, nil)
}

func (s *ClockSystem) popMode(mode types.Mode) {
	idx, ok := s.stack.IndexOf(mode)
	if !ok || idx == 0 {
		return
	}
	if !s.stack.PopDownTo(idx) {
		s.logger.Infof("Pop of %s refused", mode)
		return
	}
	s.renderCurrentTime()
}

func (s *ClockSystem) toggleAccessory(line string) {
	if err := s.accessories.Toggle(line); err != nil {
		s.logger.Warnf("Failed to toggle %s: %v", line, err)
	}
}

// persistBaseMode records the bottom-of-stack mode and whether the pulse
// layer sits above it into configuration state. The actual write happens
// on the debounced save path.
func (s *ClockSystem) persistBaseMode() {
	cfg := s.cfgStore.Config()
	cfg.BaseMode = s.stack.Bottom()
	cfg.PulseLayer = s.stack.Contains(types.ModePulse)
}

// pulseCompatible reports whether the pulse layer may sit on this base
// mode. Only the word display exposes a steady frame worth pulsing.
func pulseCompatible(base types.Mode) bool {
	return base == types.ModeNormal
}

func clampPulseInterval(v int) int {
	if v < PulseIntervalMin {
		return PulseIntervalMin
	}
	if v > PulseIntervalMax {
		return PulseIntervalMax
	}
	return v
}

func reversed(modes []types.Mode) []types.Mode {
	for i, j := 0, len(modes)-1; i < j; i, j = i+1, j-1 {
		modes[i], modes[j] = modes[j], modes[i]
	}
	return modes
}

// handleCommandRequest adapts the messaging callback signature.
func (s *ClockSystem) handleCommandRequest(cmd types.Command) error {
	if !knownCommand(cmd) {
		return fmt.Errorf("unknown command: %s", cmd)
	}
	s.HandleCommand(cmd)
	return nil
}

func knownCommand(cmd types.Command) bool {
	switch cmd {
	case types.CmdOnOff, types.CmdUp, types.CmdDown,
		types.CmdBrightnessUp, types.CmdBrightnessDown,
		types.CmdTimeMode, types.CmdSetSystemTime, types.CmdSetOnOffTime,
		types.CmdDemo, types.CmdCalibrate, types.CmdPulse, types.CmdHueCycle,
		types.CmdResync, types.CmdAmbientLight, types.CmdBluetooth,
		types.CmdAuxPower, types.CmdVariant:
		return true
	}
	return false
}
