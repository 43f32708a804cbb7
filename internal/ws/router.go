package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	ErrUnknownEvent   = errors.New("unknown_event")
	ErrInvalidPayload = errors.New("invalid_payload")
)

// ConnContext identifies the connection an event arrived on.
type ConnContext struct {
	SessionID  string
	RemoteAddr string
}

// internal (untyped) handler signature.
type rawHandler func(ctx context.Context, c *ConnContext, body json.RawMessage) error

// Router keeps a map[event]handler, à‑la gin.Engine.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]rawHandler
	validate *validator.Validate
}

func NewRouter() *Router {
	return &Router{
		handlers: make(map[string]rawHandler),
		validate: validator.New(),
	}
}

// Register binds an event to a strongly‑typed handler. The body is decoded
// into Req and checked against its validate tags first.
func Register[Req any](
	r *Router,
	event string,
	h func(ctx context.Context, c *ConnContext, req Req) error,
) {
	if event == "" {
		panic("ws router: empty event")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[event] = func(ctx context.Context, c *ConnContext, body json.RawMessage) error {
		var req Req
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
			}
		}
		if err := r.validate.Struct(req); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return h(ctx, c, req)
	}
}

// dispatch is called by the server’s reader loop.
func (r *Router) dispatch(ctx context.Context, c *ConnContext, env Envelope) error {
	r.mu.RLock()
	h, ok := r.handlers[env.Event]
	r.mu.RUnlock()
	if !ok {
		return ErrUnknownEvent
	}
	return h(ctx, c, env.Body)
}
