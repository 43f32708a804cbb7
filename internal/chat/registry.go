package chat

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RoomInfo is a read-only view of one room.
type RoomInfo struct {
	Name    string   `json:"name"`
	Members []Member `json:"members"`
}

// Registry owns every session and room of the process.
//
// All mutations run under one lock: a transition computes its outbound events
// and they are handed to the recipients' sinks before the lock is released, so
// every session observes membership snapshots in the order they were produced.
// Sinks never block, which keeps the critical section short.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	rooms    map[string]*room

	now    func() time.Time
	newID  func() string
	encode Encoder
}

type Option func(*Registry)

// WithClock overrides the clock used to stamp messages.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithEncoder sets the wire encoding shared by all recipients of a broadcast.
func WithEncoder(enc Encoder) Option {
	return func(r *Registry) { r.encode = enc }
}

// WithIDGenerator overrides the session id generator.
func WithIDGenerator(gen func() string) Option {
	return func(r *Registry) { r.newID = gen }
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		rooms:    make(map[string]*room),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Connect registers a new session without a room.
func (r *Registry) Connect(sink Sink) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := &Session{id: r.newID(), sink: sink}
	r.sessions[s.id] = s
	zap.L().Debug("chat.connect", zap.String("session", s.id))
	return s
}

// Disconnect drops the session and cleans up its room, if any.
func (r *Registry) Disconnect(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatch(r.disconnect(sessionID))
}

// Join moves the session into roomName, leaving its previous room first.
func (r *Registry) Join(sessionID, username, roomName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatch(r.join(sessionID, username, roomName))
}

// SendMessage broadcasts text to the sender's room. Sessions without a room
// are ignored.
func (r *Registry) SendMessage(sessionID, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatch(r.sendMessage(sessionID, text))
}

func (r *Registry) StartTyping(sessionID, username, roomName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatch(r.startTyping(sessionID, username, roomName))
}

func (r *Registry) StopTyping(sessionID, roomName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatch(r.stopTyping(sessionID, roomName))
}

// Rooms returns every live room sorted by name.
func (r *Registry) Rooms() []RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]RoomInfo, 0, len(r.rooms))
	for name, rm := range r.rooms {
		out = append(out, RoomInfo{Name: name, Members: rm.snapshot()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Members returns the membership of roomName and whether the room exists.
func (r *Registry) Members(roomName string) ([]Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomName]
	if !ok {
		return nil, false
	}
	return rm.snapshot(), true
}

func (r *Registry) SessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// RoomOf returns the session's current room and its state.
func (r *Registry) RoomOf(sessionID string) (string, State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return "", StateConnected
	}
	return s.room, s.state()
}

// ─────────────────────────────── transitions ─────────────────────────────────
//
// Each transition mutates registry state and returns the broadcasts it caused.
// Callers hold r.mu.

func (r *Registry) disconnect(sessionID string) []Outbound {
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}
	delete(r.sessions, sessionID)
	zap.L().Debug("chat.disconnect", zap.String("session", sessionID), zap.String("room", s.room))

	if s.state() != StateInRoom {
		return nil
	}
	return r.leave(s)
}

func (r *Registry) join(sessionID, username, roomName string) []Outbound {
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}

	var out []Outbound
	if s.state() == StateInRoom {
		out = append(out, r.leave(s)...)
	}
	if s.username == "" {
		s.username = username
	}

	rm, ok := r.rooms[roomName]
	if !ok {
		rm = newRoom(roomName)
		r.rooms[roomName] = rm
	}
	rm.add(s)
	s.room, s.joined = roomName, true

	zap.L().Info("chat.join",
		zap.String("session", s.id),
		zap.String("username", s.username),
		zap.String("room", roomName),
		zap.Int("members", len(rm.order)),
	)

	return append(out, Outbound{
		Room:       roomName,
		Recipients: rm.recipients(""),
		Event:      Event{Name: EventUserJoined, Payload: UsersBody{Users: rm.snapshot()}},
	})
}

// leave removes s from its room. An emptied room is deleted, otherwise the
// remaining members get a fresh user_left snapshot.
func (r *Registry) leave(s *Session) []Outbound {
	roomName := s.room
	s.room, s.joined = "", false

	rm, ok := r.rooms[roomName]
	if !ok || !rm.remove(s.id) {
		return nil
	}
	zap.L().Info("chat.leave", zap.String("session", s.id), zap.String("room", roomName))

	if rm.empty() {
		delete(r.rooms, roomName)
		zap.L().Debug("chat.room_deleted", zap.String("room", roomName))
		return nil
	}
	return []Outbound{{
		Room:       roomName,
		Recipients: rm.recipients(""),
		Event:      Event{Name: EventUserLeft, Payload: UsersBody{Users: rm.snapshot()}},
	}}
}

func (r *Registry) sendMessage(sessionID, text string) []Outbound {
	s, rm := r.resolve(sessionID)
	if rm == nil {
		zap.L().Debug("chat.message_dropped", zap.String("session", sessionID))
		return nil
	}
	return []Outbound{{
		Room:       rm.name,
		Recipients: rm.recipients(""),
		Event: Event{Name: EventReceiveMessage, Payload: MessageBody{
			Message:   text,
			Username:  s.username,
			ID:        s.id,
			Timestamp: r.now(),
		}},
	}}
}

// startTyping relays to the session's own room; the room named by the client
// is only used for logging when it disagrees.
func (r *Registry) startTyping(sessionID, username, roomName string) []Outbound {
	s, rm := r.resolve(sessionID)
	if rm == nil {
		return nil
	}
	if roomName != "" && roomName != rm.name {
		zap.L().Debug("chat.typing_room_mismatch",
			zap.String("session", sessionID),
			zap.String("claimed", roomName),
			zap.String("room", rm.name),
		)
	}
	name := s.username
	if name == "" {
		name = username
	}
	return []Outbound{{
		Room:       rm.name,
		Recipients: rm.recipients(s.id),
		Event:      Event{Name: EventUserTyping, Payload: TypingBody{Username: name}},
	}}
}

func (r *Registry) stopTyping(sessionID, _ string) []Outbound {
	s, rm := r.resolve(sessionID)
	if rm == nil {
		return nil
	}
	return []Outbound{{
		Room:       rm.name,
		Recipients: rm.recipients(s.id),
		Event:      Event{Name: EventUserStoppedTyping, Payload: StoppedTypingBody{}},
	}}
}

func (r *Registry) resolve(sessionID string) (*Session, *room) {
	s, ok := r.sessions[sessionID]
	if !ok || s.state() != StateInRoom {
		return nil, nil
	}
	rm, ok := r.rooms[s.room]
	if !ok {
		return nil, nil
	}
	return s, rm
}

// dispatch hands every outbound event to its recipients' sinks. A failed
// delivery only affects that recipient.
func (r *Registry) dispatch(out []Outbound) {
	for _, o := range out {
		f := Frame{Event: o.Event}
		if r.encode != nil {
			data, err := r.encode(o.Event)
			if err != nil {
				zap.L().Error("chat.encode", zap.String("event", o.Event.Name), zap.Error(err))
				continue
			}
			f.Data = data
		}
		for _, id := range o.Recipients {
			s, ok := r.sessions[id]
			if !ok || s.sink == nil {
				continue
			}
			if !s.sink.Deliver(f) {
				zap.L().Warn("chat.deliver_dropped",
					zap.String("session", id),
					zap.String("room", o.Room),
					zap.String("event", o.Event.Name),
				)
			}
		}
	}
}
