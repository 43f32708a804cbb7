package chat

import "time"

// Outbound event names.
const (
	EventUserJoined        = "user_joined"
	EventUserLeft          = "user_left"
	EventReceiveMessage    = "receive_message"
	EventUserTyping        = "user_typing"
	EventUserStoppedTyping = "user_stopped_typing"
)

// Event is a named payload pushed to one session.
type Event struct {
	Name    string
	Payload any
}

// Frame is an event with its wire encoding. Data is nil when the registry
// has no Encoder; sinks then encode on their own.
type Frame struct {
	Event Event
	Data  []byte
}

// Encoder turns an event into wire bytes. The registry runs it once per
// broadcast, not once per recipient.
type Encoder func(Event) ([]byte, error)

// Member is one entry of a membership snapshot.
type Member struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// UsersBody is the body of user_joined and user_left.
type UsersBody struct {
	Users []Member `json:"users"`
}

// MessageBody is the body of receive_message.
type MessageBody struct {
	Message   string    `json:"message"`
	Username  string    `json:"username"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

type TypingBody struct {
	Username string `json:"username"`
}

type StoppedTypingBody struct{}

// Outbound is one broadcast produced by a registry transition.
type Outbound struct {
	Room       string
	Recipients []string // session ids
	Event      Event
}
