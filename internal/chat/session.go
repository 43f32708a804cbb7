package chat

// Sink delivers events to the connection behind a session.
// Deliver must not block; it reports false when the event was dropped.
type Sink interface {
	Deliver(f Frame) bool
}

type State int

const (
	StateConnected State = iota // connected, no room yet
	StateInRoom
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateInRoom:
		return "in_room"
	}
	return "unknown"
}

// Session is one live connection tracked by the Registry.
// Its fields are only mutated under the registry lock.
type Session struct {
	id       string
	username string
	room     string
	joined   bool
	sink     Sink
}

func (s *Session) ID() string { return s.id }

func (s *Session) member() Member { return Member{ID: s.id, Username: s.username} }

func (s *Session) state() State {
	if !s.joined {
		return StateConnected
	}
	return StateInRoom
}
