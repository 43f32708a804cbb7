package http_server

import (
	"chatrelay/api_specs"
	"chatrelay/internal/chat"
	"chatrelay/internal/http/roomhandler"
	"chatrelay/internal/ratelimit"
	"chatrelay/internal/ws"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abrar71/swaggerfilesv2" // swagger embed files
)

// Options tunes the HTTP surface around the websocket endpoint.
type Options struct {
	ConnectLimiter ratelimit.Limiter // nil means unlimited
	ExposeRooms    bool              // mount /rooms and /rooms/:name
}

type httpServer struct {
	listenPort uint16
	srv        *http.Server
	registry   *chat.Registry
	wsSrv      *ws.WsServer
	opts       Options
	ctx        context.Context
}

// NewHttpServer builds the server and its handler up front, so Dispose is
// safe to call at any time, even before or during Start.
func NewHttpServer(ctx context.Context, listenPort uint16, wsSrv *ws.WsServer, registry *chat.Registry, opts Options) *httpServer {
	if opts.ConnectLimiter == nil {
		opts.ConnectLimiter = ratelimit.Unlimited{}
	}
	h := &httpServer{
		listenPort: listenPort,
		wsSrv:      wsSrv,
		registry:   registry,
		opts:       opts,
		ctx:        ctx,
	}
	h.srv = &http.Server{
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return h
}

// Router builds the gin engine: API docs, websocket endpoint and ops views.
func (h *httpServer) Router() *gin.Engine {
	routerEngine := gin.New()

	// Swagger UI and API specs
	routerEngine.StaticFS("/swagger-apis", http.FS(swaggerfilesv2.FS))
	routerEngine.StaticFS("/api-specs", http.FS(api_specs.FS))

	routerEngine.Use(ginzap.Ginzap(zap.L(), time.RFC3339, true))
	routerEngine.Use(ginzap.RecoveryWithZap(zap.L(), true))

	// websocket endpoint
	routerEngine.GET("/ws", limitConnects(h.opts.ConnectLimiter), h.wsSrv.Handle)

	rh := roomhandler.New(h.registry)
	rh.Register(routerEngine)
	if h.opts.ExposeRooms {
		rh.RegisterRooms(routerEngine)
	}

	return routerEngine
}

// Start listens on the configured port and serves until Dispose is called.
func (h *httpServer) Start() error {
	listenAddr := fmt.Sprintf(":%d", h.listenPort)
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	zap.L().Info("http_listening", zap.String("addr", ln.Addr().String()))
	if err := h.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Dispose gracefully shuts the HTTP server down.
// It waits up to 10 s for in‑flight requests to finish. Hijacked websocket
// connections are not tracked by http.Server and are closed by the process exit.
func (h *httpServer) Dispose() error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(h.ctx), 10*time.Second)
	defer cancel()

	if err := h.srv.Shutdown(ctx); err != nil {
		zap.L().Error("http_dispose", zap.Error(err))
		return err
	}
	return nil
}

// limitConnects rejects websocket upgrades from a client address that
// connects too often.
func limitConnects(l ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ratelimit.Check(c.Request.Context(), l, c.ClientIP()) {
			zap.L().Warn("ws.connect_rate_limited", zap.String("remote", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, roomhandler.ErrorResponse{Error: "rate_limited"})
			return
		}
		c.Next()
	}
}
