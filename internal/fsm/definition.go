package fsm

import "github.com/librescoot/librefsm"

// NewDefinition creates the power FSM definition. Events without a
// transition entry for the current state are ignored, which is how the
// "stay in state" rows of the power table are expressed: the window
// result never moves ManualOff, and an off-window never moves an
// already-on override.
func NewDefinition(actions Actions) *librefsm.Definition {
	return librefsm.NewDefinition().
		State(StateNormalOn,
			librefsm.WithOnEnter(actions.EnterNormalOn),
		).
		State(StateAutoOff,
			librefsm.WithOnEnter(actions.EnterAutoOff),
		).
		State(StateManualOff,
			librefsm.WithOnEnter(actions.EnterManualOff),
		).
		State(StateOverrideOn,
			librefsm.WithOnEnter(actions.EnterOverrideOn),
		).

		// From NormalOn
		Transition(StateNormalOn, EvWindowOff, StateAutoOff).
		Transition(StateNormalOn, EvOnOff, StateManualOff).

		// From AutoOff - the on/off command overrides the window until it
		// next reports "on"
		Transition(StateAutoOff, EvWindowOn, StateNormalOn).
		Transition(StateAutoOff, EvOnOff, StateOverrideOn).

		// From ManualOff - only the on/off command brings the display back
		Transition(StateManualOff, EvOnOff, StateNormalOn).

		// From OverrideOn - reverts to NormalOn once the window opens again
		Transition(StateOverrideOn, EvWindowOn, StateNormalOn).
		Transition(StateOverrideOn, EvOnOff, StateManualOff).

		// Initial state
		Initial(StateNormalOn)
}
