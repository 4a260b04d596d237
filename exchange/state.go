package exchange

import "fmt"

// State is the lifecycle state of a Session.
type State int

const (
	Idle State = iota
	Running
	StopRequested
	Stopped
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case StopRequested:
		return "stop requested"
	case Stopped:
		return "stopped"
	case Errored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Active reports whether a run loop owns the transport in this state.
func (s State) Active() bool {
	return s == Running || s == StopRequested
}
