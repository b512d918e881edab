package fsm

import "github.com/librescoot/librefsm"

// Power states
const (
	StateNormalOn   librefsm.StateID = "normal-on"
	StateAutoOff    librefsm.StateID = "auto-off"
	StateManualOff  librefsm.StateID = "manual-off"
	StateOverrideOn librefsm.StateID = "override-on"
)

// Power events
const (
	// The universal on/off command, from remote or serial
	EvOnOff librefsm.EventID = "on-off"

	// Periodic activation-window check results
	EvWindowOn  librefsm.EventID = "window-on"
	EvWindowOff librefsm.EventID = "window-off"
)
