package core

import (
	"wordclock-service/internal/types"
)

// Seconds the training mode waits for the first frame before giving up.
const irTrainTimeoutSeconds = 30

// trainableCommands is the slot order a remote is taught in. One frame
// per slot; the address of the first frame binds the whole session.
var trainableCommands = []types.Command{
	types.CmdOnOff,
	types.CmdBrightnessUp,
	types.CmdBrightnessDown,
	types.CmdUp,
	types.CmdDown,
	types.CmdTimeMode,
	types.CmdSetSystemTime,
	types.CmdSetOnOffTime,
	types.CmdDemo,
	types.CmdPulse,
	types.CmdHueCycle,
	types.CmdCalibrate,
	types.CmdResync,
	types.CmdAmbientLight,
	types.CmdBluetooth,
	types.CmdAuxPower,
	types.CmdVariant,
}

// irTrainMode teaches the appliance a remote control. Training frames
// arrive through HandleRawTrainingFrame, not the command pipeline; the
// once-per-second tick only enforces the arming timeout.
type irTrainMode struct {
	sys     *ClockSystem
	started bool
	elapsed int
	slot    int
	addr    uint16
}

func (m *irTrainMode) Mode() types.Mode { return types.ModeIrTrain }

func (m *irTrainMode) Enter(param any) {
	m.started = false
	m.elapsed = 0
	m.slot = 0
	m.addr = 0
	m.sys.logger.Infof("IR training armed, %d slots", len(trainableCommands))
	m.sys.display.RenderRaw(m.sys.display.NumberMask(0), m.sys.display.TimeSetMask())
}

func (m *irTrainMode) TickSecond() {
	if m.started {
		return
	}
	m.elapsed++
	if m.elapsed >= irTrainTimeoutSeconds {
		m.sys.logger.Infof("IR training timed out, leaving")
		m.sys.stack.ReturnToParent(types.ModeIrTrain, nil)
	}
}

// train records one frame. Frames from a different address than the
// first one seen are discarded; training keeps waiting for the original
// remote.
func (m *irTrainMode) train(addr uint16, code uint32) {
	cfg := m.sys.cfgStore.Config()
	if !m.started {
		m.started = true
		m.addr = addr
		cfg.IrAddress = addr
		cfg.IrCodes = make(map[uint32]types.Command)
		m.sys.logger.Infof("IR training bound to address 0x%04x", addr)
	} else if addr != m.addr {
		m.sys.logger.Warnf("Discarding training frame from address 0x%04x (expected 0x%04x)", addr, m.addr)
		return
	}

	cfg.IrCodes[code] = trainableCommands[m.slot]
	m.sys.logger.Infof("Slot %d (%s) = code 0x%08x", m.slot, trainableCommands[m.slot], code)
	m.slot++

	if m.slot >= len(trainableCommands) {
		m.sys.logger.Infof("IR training complete")
		m.sys.persistNow()
		m.sys.stack.ReturnToParent(types.ModeIrTrain, nil)
		return
	}
	m.sys.display.RenderRaw(m.sys.display.NumberMask(m.slot%10), m.sys.display.TimeSetMask())
}

// StartIrTraining pushes the training mode on top of the current mode.
func (s *ClockSystem) StartIrTraining() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stack.Push(types.ModeIrTrain, nil)
	return nil
}

// HandleRawTrainingFrame takes a raw remote frame. While training is
// active the frame teaches the current slot; otherwise it is decoded
// against the trained table and fed into the command pipeline.
func (s *ClockSystem) HandleRawTrainingFrame(addr uint16, code uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stack.Top() == types.ModeIrTrain {
		if m, ok := s.handlerFor(types.ModeIrTrain).(*irTrainMode); ok {
			m.train(addr, code)
		}
		return nil
	}

	cfg := s.cfgStore.Config()
	if addr != cfg.IrAddress {
		s.logger.Debugf("Ignoring frame from unknown address 0x%04x", addr)
		return nil
	}
	cmd, ok := cfg.IrCodes[code]
	if !ok {
		s.logger.Debugf("Ignoring untrained code 0x%08x", code)
		return nil
	}
	s.handleCommandLocked(cmd)
	return nil
}
