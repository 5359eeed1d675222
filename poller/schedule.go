package poller

import "time"

// Mode selects whether the active window is honoured.
type Mode int

const (
	ModeProd Mode = iota
	ModeDebug
)

// State is the scheduler state for the current hour.
type State int

const (
	StateDormant State = iota
	StateActive
)

func (s State) String() string {
	if s == StateActive {
		return "active"
	}
	return "dormant"
}

// Window is a half-open hour-of-day range [Start, End).
type Window struct {
	Start int
	End   int
}

// Contains reports whether hour falls inside the window.
func (w Window) Contains(hour int) bool {
	return w.Start <= hour && hour < w.End
}

// IntervalFor picks the state and sleep duration for the given hour. Inside
// the window, or in debug mode, it polls every active interval; outside it
// sleeps (24 - hour + start) hours.
func IntervalFor(hour int, window Window, mode Mode, active time.Duration) (State, time.Duration) {
	if mode == ModeDebug || window.Contains(hour) {
		return StateActive, active
	}
	return StateDormant, time.Duration(24-hour+window.Start) * time.Hour
}
