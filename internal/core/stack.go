package core

import (
	"wordclock-service/internal/logger"
	"wordclock-service/internal/types"
)

// MaxStackDepth is the fixed capacity of the mode stack.
const MaxStackDepth = 10

// Handler is implemented by every mode. Enter re-initializes the mode's
// working data; it runs on every push, including a re-entry of the
// current top mode.
type Handler interface {
	Mode() types.Mode
	Enter(param any)
}

// Optional capabilities, discovered by type assertion. A mode that does
// not implement one simply gets no-op behavior for it.
type (
	// CommandHandler consumes commands before the global fallback.
	CommandHandler interface {
		HandleCommand(cmd types.Command) bool
	}

	// LeaveVetoer can refuse to be popped. Default is "may leave".
	LeaveVetoer interface {
		MayLeave() bool
	}

	// SubstateObserver receives the result of a finished child mode.
	SubstateObserver interface {
		SubstateFinished(child types.Mode, result SubstateResult)
	}

	// Leaver runs teardown when the mode is popped.
	Leaver interface {
		Leave()
	}

	FastTicker   interface{ TickFast() }
	MediumTicker interface{ TickMedium() }
	SlowTicker   interface{ TickSlow() }
	SecondTicker interface{ TickSecond() }
)

// SubstateResult is the closed set of values a finished sub-flow can hand
// back to its parent.
type SubstateResult interface{ substateResult() }

// TimeResult carries the time edited by an EnterTime flow.
type TimeResult struct {
	Time types.TimeOfDay
}

func (TimeResult) substateResult() {}

// ModeStack maintains the ordered stack of active modes. The bottom is
// the persistent home mode, the top receives ticks and commands. All
// operations fail fast with boolean returns; a failed operation leaves
// the stack untouched.
type ModeStack struct {
	logger    *logger.Logger
	modes     []types.Mode
	lastIndex map[types.Mode]int
	lookup    func(types.Mode) Handler
	afterPop  func()
}

// NewModeStack creates an empty stack. lookup resolves a mode to its
// handler; afterPop re-renders the display after ReturnToParent shrinks
// the stack.
func NewModeStack(l *logger.Logger, lookup func(types.Mode) Handler, afterPop func()) *ModeStack {
	return &ModeStack{
		logger:    l.WithTag("stack"),
		modes:     make([]types.Mode, 0, MaxStackDepth),
		lastIndex: make(map[types.Mode]int),
		lookup:    lookup,
		afterPop:  afterPop,
	}
}

// Top returns the mode currently receiving ticks and commands.
func (st *ModeStack) Top() types.Mode {
	if len(st.modes) == 0 {
		return types.ModeNone
	}
	return st.modes[len(st.modes)-1]
}

// Bottom returns the persistent home mode.
func (st *ModeStack) Bottom() types.Mode {
	if len(st.modes) == 0 {
		return types.ModeNone
	}
	return st.modes[0]
}

// Depth returns the number of active modes.
func (st *ModeStack) Depth() int {
	return len(st.modes)
}

// Modes returns a copy of the stack, bottom first.
func (st *ModeStack) Modes() []types.Mode {
	out := make([]types.Mode, len(st.modes))
	copy(out, st.modes)
	return out
}

// IndexOf returns the stack index mode last occupied and whether that
// index is currently valid (the mode is actually on the stack there).
func (st *ModeStack) IndexOf(mode types.Mode) (int, bool) {
	idx, ok := st.lastIndex[mode]
	if !ok || idx >= len(st.modes) || st.modes[idx] != mode {
		return 0, false
	}
	return idx, true
}

// Contains reports whether mode is anywhere on the stack.
func (st *ModeStack) Contains(mode types.Mode) bool {
	_, ok := st.IndexOf(mode)
	return ok
}

// Push makes mode the new top and runs its Enter. Re-pushing the current
// top does not grow the stack; Enter still runs with the new parameter,
// which is how a mode refreshes itself. Pushing a mode that already sits
// at a lower index is rejected: holding two index-table entries for the
// same mode would make its position ambiguous.
func (st *ModeStack) Push(mode types.Mode, param any) bool {
	if st.Top() != mode {
		if st.Contains(mode) {
			st.logger.Warnf("Rejecting push of %s: already on stack below top", mode)
			return false
		}
		if len(st.modes) >= MaxStackDepth {
			st.logger.Errorf("Rejecting push of %s: stack full", mode)
			return false
		}
		st.modes = append(st.modes, mode)
		st.lastIndex[mode] = len(st.modes) - 1
	}
	h := st.lookup(mode)
	if h == nil {
		st.logger.Errorf("No handler registered for mode %s", mode)
		return false
	}
	st.logger.Debugf("Entering %s (depth %d)", mode, len(st.modes))
	h.Enter(param)
	return true
}

// PushSubstate installs mode as the single active child of parent,
// replacing whatever child the parent currently has. parent ModeNone
// targets index 0 and resets the whole stack. Replacement needs the old
// occupants' consent to leave; if any refuses, nothing changes.
func (st *ModeStack) PushSubstate(parent, mode types.Mode, param any) bool {
	index := 0
	if parent != types.ModeNone {
		pidx, ok := st.IndexOf(parent)
		if !ok {
			st.logger.Warnf("Rejecting substate %s: parent %s not on stack", mode, parent)
			return false
		}
		index = pidx + 1
	}
	if len(st.modes) > index {
		if !st.PopDownTo(index) {
			st.logger.Infof("Substate %s refused: occupant vetoed leave", mode)
			return false
		}
	}
	return st.Push(mode, param)
}

// PopDownTo pops every mode from the top down to index inclusive. The
// operation is all-or-nothing: each affected mode is asked for leave
// permission first, and a single veto leaves the stack untouched.
func (st *ModeStack) PopDownTo(index int) bool {
	if index < 0 || index >= len(st.modes) {
		return false
	}
	for i := len(st.modes) - 1; i >= index; i-- {
		if v, ok := st.lookup(st.modes[i]).(LeaveVetoer); ok && !v.MayLeave() {
			st.logger.Infof("Leave refused by %s", st.modes[i])
			return false
		}
	}
	for i := len(st.modes) - 1; i >= index; i-- {
		if l, ok := st.lookup(st.modes[i]).(Leaver); ok {
			l.Leave()
		}
		st.logger.Debugf("Left %s", st.modes[i])
	}
	st.modes = st.modes[:index]
	return true
}

// ReturnToParent removes a finished mode (and any stragglers above it)
// without a leave-permission sweep, restores the time display as a safe
// default, then delivers the result to the new top. This is how a
// sub-flow hands its result back to its caller.
func (st *ModeStack) ReturnToParent(mode types.Mode, result SubstateResult) bool {
	idx, ok := st.IndexOf(mode)
	if !ok {
		st.logger.Warnf("ReturnToParent: %s not on stack", mode)
		return false
	}
	if idx == 0 {
		st.logger.Errorf("ReturnToParent: refusing to pop home mode %s", mode)
		return false
	}
	for i := len(st.modes) - 1; i >= idx; i-- {
		if l, ok := st.lookup(st.modes[i]).(Leaver); ok {
			l.Leave()
		}
	}
	st.modes = st.modes[:idx]
	if st.afterPop != nil {
		st.afterPop()
	}
	if obs, ok := st.lookup(st.Top()).(SubstateObserver); ok {
		obs.SubstateFinished(mode, result)
	}
	return true
}

// Below returns the mode directly beneath mode on the stack.
func (st *ModeStack) Below(mode types.Mode) types.Mode {
	idx, ok := st.IndexOf(mode)
	if !ok || idx == 0 {
		return types.ModeNone
	}
	return st.modes[idx-1]
}
