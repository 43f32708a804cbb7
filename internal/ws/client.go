package ws

import (
	"sync"
	"time"

	"chatrelay/internal/chat"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// clientConn is the transport side of one chat session. Broadcasts are queued
// on send and written by writeLoop, the only goroutine writing data frames.
type clientConn struct {
	rawConn *websocket.Conn
	mu      sync.Mutex

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

var _ chat.Sink = (*clientConn)(nil)

func newClientConn(rawConn *websocket.Conn, buffer int) *clientConn {
	return &clientConn{
		rawConn: rawConn,
		send:    make(chan []byte, buffer),
		done:    make(chan struct{}),
	}
}

// Deliver queues f without blocking. Frames the registry did not encode are
// encoded here.
func (c *clientConn) Deliver(f chat.Frame) bool {
	data := f.Data
	if data == nil {
		var err error
		if data, err = EncodeEvent(f.Event); err != nil {
			zap.L().Warn("ws.encode", zap.String("event", f.Event.Name), zap.Error(err))
			return false
		}
	}
	return c.enqueue(data)
}

// enqueue never blocks. A peer whose queue is full has missed a frame and
// may hold a stale membership snapshot, so the connection is closed; the
// reader then disconnects the session.
func (c *clientConn) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		zap.L().Warn("ws.send_overflow", zap.Int("buffer", cap(c.send)))
		c.close()
		return false
	}
}

func (c *clientConn) write(mt int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.rawConn.WriteMessage(mt, data)
}

// writeLoop drains the send queue and keeps the peer alive with pings.
func (c *clientConn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			if err := c.write(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *clientConn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.rawConn.Close()
	})
}
