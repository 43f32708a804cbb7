package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"chatrelay/internal/chat"
	"chatrelay/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = 25 * time.Second // must be < pongWait
	dispatchTimeout = 2 * time.Second
)

// Client → server events.
const (
	EventJoinRoom    = "join_room"
	EventSendMessage = "send_message"
	EventTyping      = "typing"
	EventStopTyping  = "stop_typing"
	EventError       = "error"
)

var ErrRateLimited = errors.New("rate_limited")

type Options struct {
	AllowedOrigins  []string // "*" allows any origin
	SendBuffer      int
	MaxMessageBytes int64
	// MessageLimiter caps send_message per session. Nil means unlimited.
	MessageLimiter ratelimit.Limiter
}

type WsServer struct {
	registry *chat.Registry
	router   *Router
	upgrader websocket.Upgrader
	limiter  ratelimit.Limiter
	opts     Options
}

func NewWsServer(registry *chat.Registry, opts Options) *WsServer {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = 8192
	}
	limiter := opts.MessageLimiter
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}

	srv := &WsServer{
		registry: registry,
		router:   NewRouter(),
		limiter:  limiter,
		opts:     opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(opts.AllowedOrigins),
		},
	}
	srv.registerHandlers() // ← all WS events configured here
	return srv
}

// ---------------------------------------------------------------------------
//  Public: Gin entry‑point
// ---------------------------------------------------------------------------

func (s *WsServer) Handle(ginCtx *gin.Context) {
	rawConn, err := s.upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		// the upgrader has already replied with an HTTP error
		zap.L().Warn("ws.accept", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(s.opts.MaxMessageBytes)

	conn := newClientConn(rawConn, s.opts.SendBuffer)
	sess := s.registry.Connect(conn)
	zap.L().Info("ws.connect",
		zap.String("session", sess.ID()),
		zap.String("remote", ginCtx.ClientIP()),
	)

	go conn.writeLoop()
	go s.reader(&ConnContext{SessionID: sess.ID(), RemoteAddr: ginCtx.ClientIP()}, conn)
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

func (s *WsServer) registerHandlers() {
	Register(s.router, EventJoinRoom,
		func(_ context.Context, cc *ConnContext, req JoinRoomRequest) error {
			s.registry.Join(cc.SessionID, req.Username, req.Room)
			return nil
		},
	)

	Register(s.router, EventSendMessage,
		func(ctx context.Context, cc *ConnContext, req SendMessageRequest) error {
			if !ratelimit.Check(ctx, s.limiter, cc.SessionID) {
				return ErrRateLimited
			}
			s.registry.SendMessage(cc.SessionID, req.Message)
			return nil
		},
	)

	Register(s.router, EventTyping,
		func(_ context.Context, cc *ConnContext, req TypingRequest) error {
			s.registry.StartTyping(cc.SessionID, req.Username, req.Room)
			return nil
		},
	)

	Register(s.router, EventStopTyping,
		func(_ context.Context, cc *ConnContext, req StopTypingRequest) error {
			s.registry.StopTyping(cc.SessionID, req.Room)
			return nil
		},
	)
}

func (s *WsServer) reader(cc *ConnContext, conn *clientConn) {
	defer func() {
		s.registry.Disconnect(cc.SessionID)
		conn.close()
		zap.L().Info("ws.disconnect", zap.String("session", cc.SessionID))
	}()

	_ = conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	conn.rawConn.SetPongHandler(func(string) error {
		return conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.rawConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Debug("ws.read", zap.String("session", cc.SessionID), zap.Error(err))
			}
			return // client closed or errored
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.replyError(conn, ErrInvalidPayload)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		err = s.router.dispatch(ctx, cc, env)
		cancel()

		// ---- error -> {"event":"error", "body":{...}} ---------------
		if err != nil {
			zap.L().Debug("ws.dispatch",
				zap.String("session", cc.SessionID),
				zap.String("event", env.Event),
				zap.Error(err),
			)
			s.replyError(conn, err)
		}
	}
}

func (s *WsServer) replyError(conn *clientConn, err error) {
	data, encErr := encodeFrame(EventError, ErrorBody{Error: err.Error()})
	if encErr != nil {
		return
	}
	conn.enqueue(data)
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // non-browser client
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		zap.L().Debug("ws.origin_rejected", zap.String("origin", origin))
		return false
	}
}
