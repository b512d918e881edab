package fsm

import "github.com/librescoot/librefsm"

// Actions defines the interface for power state machine actions.
// ClockSystem implements this interface to apply the display and
// accessory side effects of each power transition.
type Actions interface {
	// State entry actions
	EnterNormalOn(c *librefsm.Context) error
	EnterOverrideOn(c *librefsm.Context) error
	EnterAutoOff(c *librefsm.Context) error
	EnterManualOff(c *librefsm.Context) error
}
