package main

import (
	"chatrelay/internal/chat"
	"chatrelay/internal/config"
	"chatrelay/internal/http/http_server"
	"chatrelay/internal/ratelimit"
	"chatrelay/internal/redis/redis_client"
	"chatrelay/internal/ws"
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Log, _ = zap.NewDevelopment()
)

// @title			chatrelay
// @version		1.0
// @description	Real-time chat relay: rooms, presence, messages and typing over /ws.
// @BasePath		/
func main() {
	defer func() { _ = Log.Sync() }()
	zap.ReplaceGlobals(Log)

	var err error
	var cfg *config.Config
	var redisClient *redis.Client

	// 1. Load configuration
	cfg, err = config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if Log, err = newLogger(cfg.LogLevel, cfg.LogFormat); err != nil {
		zap.L().Fatal("Failed to build logger", zap.Error(err))
	}
	zap.ReplaceGlobals(Log)
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Redis, only backs the rate limiters
	if cfg.RedisEnabled {
		redisClient, err = redis_client.NewRedisClient(cfg.RedisHost, int(cfg.RedisPort), cfg.RedisPassword, cfg.RedisDb)
		if err != nil {
			Log.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()
		Log.Debug("Redis client created successfully")
	}
	messageLimiter := ratelimit.New(cfg.RateLimitEvents, cfg.RateLimitWindow, redisClient, "chat:rl:msg:")
	connectLimiter := ratelimit.New(cfg.RateLimitConnects, cfg.RateLimitConnectWindow, redisClient, "chat:rl:conn:")

	// 4. Room registry, the only chat state of the process
	registry := chat.NewRegistry(chat.WithEncoder(ws.EncodeEvent))

	// 5. WebSocket server
	wsSrv := ws.NewWsServer(registry, ws.Options{
		AllowedOrigins:  cfg.AllowedOrigins,
		SendBuffer:      cfg.WsSendBuffer,
		MaxMessageBytes: cfg.WsMaxMessageBytes,
		MessageLimiter:  messageLimiter,
	})

	// 6. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, registry, http_server.Options{
		ConnectLimiter: connectLimiter,
		ExposeRooms:    cfg.ExposeRooms,
	})
	go func() {
		<-ctx.Done()
		Log.Info("shutdown_requested")
		_ = httpServer.Dispose()
	}()
	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
	Log.Info("server_stopped")
}

func newLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewDevelopmentConfig()
	if format == "json" {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}
