package websocket

import "fmt"

// State is the lifecycle state of a Session.
//
//	Unconnected -> Listening -> Accepted -> Open -> Closed
//
// Accepted falls back to Listening when an attempt is rejected.
// Closed is terminal.
type State int32

// State constants.
const (
	StateUnconnected State = iota
	StateListening
	StateAccepted
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateListening:
		return "listening"
	case StateAccepted:
		return "accepted"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}
