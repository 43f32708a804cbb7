package ws

import (
	"encoding/json"

	"chatrelay/internal/chat"
)

// Envelope wraps every WS frame.
type Envelope struct {
	Event string          `json:"event"`          // e.g. "join_room"
	Body  json.RawMessage `json:"body,omitempty"` // arbitrary JSON object
}

type outFrame struct {
	Event string `json:"event"`
	Body  any    `json:"body"`
}

func encodeFrame(event string, body any) ([]byte, error) {
	return json.Marshal(outFrame{Event: event, Body: body})
}

// EncodeEvent is the chat.Encoder for websocket peers.
func EncodeEvent(ev chat.Event) ([]byte, error) {
	return encodeFrame(ev.Name, ev.Payload)
}

// ──────────────────────────── Request DTOs ────────────────────────────────────

// JoinRoomRequest is the body for "join_room".
type JoinRoomRequest struct {
	Username string `json:"username" validate:"required"`
	Room     string `json:"room"     validate:"required"`
}

// SendMessageRequest is the body for "send_message".
type SendMessageRequest struct {
	Message string `json:"message"`
}

// TypingRequest is the body for "typing".
type TypingRequest struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

// StopTypingRequest is the body for "stop_typing".
type StopTypingRequest struct {
	Room string `json:"room"`
}

// ErrorBody is returned for failures.
type ErrorBody struct {
	Error string `json:"error"`
}
