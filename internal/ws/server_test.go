package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chatrelay/internal/chat"
	"chatrelay/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	Event string          `json:"event"`
	Body  json.RawMessage `json:"body"`
}

func newTestServer(t *testing.T, opts Options) (*chat.Registry, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := chat.NewRegistry(chat.WithEncoder(EncodeEvent))
	srv := NewWsServer(reg, opts)
	engine := gin.New()
	engine.GET("/ws", srv.Handle)

	ts := httptest.NewServer(engine)
	t.Cleanup(ts.Close)
	return reg, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func send(t *testing.T, c *websocket.Conn, event string, body any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	require.NoError(t, c.WriteJSON(Envelope{Event: event, Body: raw}))
}

func read(t *testing.T, c *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(3*time.Second)))
	var f frame
	require.NoError(t, c.ReadJSON(&f))
	return f
}

func readUsers(t *testing.T, c *websocket.Conn, event string) []chat.Member {
	t.Helper()
	f := read(t, c)
	require.Equal(t, event, f.Event, "body: %s", f.Body)
	var body chat.UsersBody
	require.NoError(t, json.Unmarshal(f.Body, &body))
	return body.Users
}

func usernames(ms []chat.Member) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Username)
	}
	return out
}

func TestWsServer_RoomLifecycle(t *testing.T) {
	reg, url := newTestServer(t, Options{})
	alice := dial(t, url)
	bob := dial(t, url)

	send(t, alice, EventJoinRoom, JoinRoomRequest{Username: "alice", Room: "General"})
	assert.Equal(t, []string{"alice"}, usernames(readUsers(t, alice, chat.EventUserJoined)))

	send(t, bob, EventJoinRoom, JoinRoomRequest{Username: "bob", Room: "General"})
	assert.Equal(t, []string{"alice", "bob"}, usernames(readUsers(t, alice, chat.EventUserJoined)))
	assert.Equal(t, []string{"alice", "bob"}, usernames(readUsers(t, bob, chat.EventUserJoined)))

	// typing reaches bob only
	send(t, alice, EventTyping, TypingRequest{Username: "alice", Room: "General"})
	f := read(t, bob)
	assert.Equal(t, chat.EventUserTyping, f.Event)
	assert.JSONEq(t, `{"username":"alice"}`, string(f.Body))

	send(t, alice, EventStopTyping, StopTypingRequest{Room: "General"})
	f = read(t, bob)
	assert.Equal(t, chat.EventUserStoppedTyping, f.Event)
	assert.JSONEq(t, `{}`, string(f.Body))

	// messages reach everyone, sender included; alice's next frame proves she
	// saw no typing echo
	before := time.Now().Add(-time.Second)
	send(t, alice, EventSendMessage, SendMessageRequest{Message: "hello"})
	for _, c := range []*websocket.Conn{alice, bob} {
		f := read(t, c)
		require.Equal(t, chat.EventReceiveMessage, f.Event)
		var msg chat.MessageBody
		require.NoError(t, json.Unmarshal(f.Body, &msg))
		assert.Equal(t, "hello", msg.Message)
		assert.Equal(t, "alice", msg.Username)
		assert.NotEmpty(t, msg.ID)
		assert.True(t, msg.Timestamp.After(before))
	}

	require.NoError(t, bob.Close())
	assert.Equal(t, []string{"alice"}, usernames(readUsers(t, alice, chat.EventUserLeft)))
	assert.Eventually(t, func() bool { return reg.SessionCount() == 1 }, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, alice.Close())
	assert.Eventually(t, func() bool { return len(reg.Rooms()) == 0 }, 3*time.Second, 10*time.Millisecond)
}

func TestWsServer_MessageWithoutRoomIsSilent(t *testing.T) {
	_, url := newTestServer(t, Options{})
	c := dial(t, url)

	send(t, c, EventSendMessage, SendMessageRequest{Message: "into the void"})
	send(t, c, EventJoinRoom, JoinRoomRequest{Username: "alice", Room: "General"})

	f := read(t, c)
	assert.Equal(t, chat.EventUserJoined, f.Event)
}

func TestWsServer_ErrorFrames(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"missing username", `{"event":"join_room","body":{"room":"General"}}`, "invalid_payload"},
		{"unknown event", `{"event":"dance"}`, "unknown_event"},
		{"not json", `hello`, "invalid_payload"},
	}

	_, url := newTestServer(t, Options{})
	c := dial(t, url)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(tc.raw)))
			f := read(t, c)
			require.Equal(t, EventError, f.Event)
			var body ErrorBody
			require.NoError(t, json.Unmarshal(f.Body, &body))
			assert.True(t, strings.HasPrefix(body.Error, tc.want), body.Error)
		})
	}
}

func TestWsServer_MessageRateLimit(t *testing.T) {
	_, url := newTestServer(t, Options{MessageLimiter: ratelimit.NewMemoryLimiter(1, time.Minute)})
	c := dial(t, url)

	send(t, c, EventJoinRoom, JoinRoomRequest{Username: "alice", Room: "General"})
	readUsers(t, c, chat.EventUserJoined)

	send(t, c, EventSendMessage, SendMessageRequest{Message: "one"})
	send(t, c, EventSendMessage, SendMessageRequest{Message: "two"})

	assert.Equal(t, chat.EventReceiveMessage, read(t, c).Event)
	f := read(t, c)
	require.Equal(t, EventError, f.Event)
	assert.JSONEq(t, `{"error":"rate_limited"}`, string(f.Body))
}

func TestWsServer_OriginCheck(t *testing.T) {
	_, url := newTestServer(t, Options{AllowedOrigins: []string{"http://localhost:5173"}})

	h := http.Header{}
	h.Set("Origin", "http://evil.test")
	_, resp, err := websocket.DefaultDialer.Dial(url, h)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	h.Set("Origin", "http://localhost:5173")
	c, _, err := websocket.DefaultDialer.Dial(url, h)
	require.NoError(t, err)
	_ = c.Close()
}
