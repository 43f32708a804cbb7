package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	HttpServerPort uint16   `env:"PORT"            envDefault:"3000" validate:"min=1000,max=65535"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`
	// ExposeRooms serves /rooms, which lists every session id and username.
	ExposeRooms bool `env:"EXPOSE_ROOMS" envDefault:"false"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"debug"   validate:"oneof=debug info warn error"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console" validate:"oneof=console json"`

	WsSendBuffer      int   `env:"WS_SEND_BUFFER"       envDefault:"64"   validate:"min=1"`
	WsMaxMessageBytes int64 `env:"WS_MAX_MESSAGE_BYTES" envDefault:"8192" validate:"min=256"`

	RateLimitEvents        int           `env:"RATE_LIMIT_EVENTS"         envDefault:"50"  validate:"min=0"`
	RateLimitWindow        time.Duration `env:"RATE_LIMIT_WINDOW"         envDefault:"10s" validate:"gt=0"`
	RateLimitConnects      int           `env:"RATE_LIMIT_CONNECTS"       envDefault:"30"  validate:"min=0"`
	RateLimitConnectWindow time.Duration `env:"RATE_LIMIT_CONNECT_WINDOW" envDefault:"1m"  validate:"gt=0"`

	RedisEnabled  bool   `env:"REDIS_ENABLED"  envDefault:"false"`
	RedisHost     string `env:"REDIS_HOST"     envDefault:"localhost"`
	RedisPort     uint16 `env:"REDIS_PORT"     envDefault:"6379" validate:"min=1000,max=65535"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDb       int    `env:"REDIS_DB"       envDefault:"0"    validate:"min=0"`
}

func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}
	return parse()
}

func parse() (*Config, error) {
	cfg := &Config{}
	// Parse config from environment variables
	if err := env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	// Validate the config
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}
