package workflow

import "fmt"

// State is the coarse connection state reported to the rest of the application.
type State int

const (
	Disconnected State = iota
	// Partial means the link is open and streaming but identity or storage binding
	// is incomplete.
	Partial
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Partial:
		return "partial"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Phase is the fine grained progress through the connect dialog.
type Phase int

const (
	PhaseDisconnected Phase = iota
	PhaseSelecting
	PhaseDeviceChosen
	PhasePartial
	PhaseFolderOffered
	PhaseConnected
)

func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseSelecting:
		return "selecting"
	case PhaseDeviceChosen:
		return "device chosen"
	case PhasePartial:
		return "partial"
	case PhaseFolderOffered:
		return "folder offered"
	case PhaseConnected:
		return "connected"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// State maps the phase to its coarse state.
func (p Phase) State() State {
	switch {
	case p >= PhaseConnected:
		return Connected
	case p >= PhasePartial:
		return Partial
	default:
		return Disconnected
	}
}

// Event is delivered to observers after every transition.
type Event struct {
	State    State
	Phase    Phase
	Identity string
	// Err is the trigger of a disconnect, nil for explicit ones.
	Err error
	// Reconnect asks the surrounding application to run its reconnect policy.
	Reconnect bool
	// Explicit marks a user requested disconnect.
	Explicit bool
}
