// Package connection owns the chat and notification sockets of the signed-in
// user.
package connection

import "fmt"

// Stream identifies one of the backend's socket endpoints.
type Stream string

const (
	StreamChat          Stream = "chat"
	StreamNotifications Stream = "notifications"
)

// Streams lists every stream the client keeps open while signed in.
func Streams() []Stream {
	return []Stream{StreamChat, StreamNotifications}
}

// Valid reports whether s is a known stream.
func (s Stream) Valid() bool {
	return s == StreamChat || s == StreamNotifications
}

// State is the lifecycle position of a stream's socket:
// disconnected → connecting → open → (closed | errored) → disconnected.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosed
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON status payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for candidate := StateDisconnected; candidate <= StateErrored; candidate++ {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown connection state %q", text)
}
