package app

import (
	"strings"
	"time"

	"github.com/yungbote/waxfeed-backend/internal/data/db"
	"github.com/yungbote/waxfeed-backend/internal/platform/envutil"
	"github.com/yungbote/waxfeed-backend/internal/platform/logger"
)

const devJWTSecret = "defaultsecret"

type Config struct {
	Environment string
	Port        string
	ServiceName string
	Version     string

	JWTSecretKey   string
	AccessTokenTTL time.Duration

	DB db.Config

	MatchCacheTTL       time.Duration
	MatchCandidateLimit int

	ShutdownTimeout time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Environment:         envutil.String("APP_ENV", "development"),
		Port:                envutil.String("PORT", "8080"),
		ServiceName:         envutil.String("OTEL_SERVICE_NAME", "waxfeed"),
		Version:             envutil.String("APP_VERSION", "dev"),
		JWTSecretKey:        envutil.String("JWT_SECRET_KEY", devJWTSecret),
		AccessTokenTTL:      time.Duration(envutil.Int("ACCESS_TOKEN_TTL", 3600)) * time.Second,
		DB:                  db.ConfigFromEnv(),
		MatchCacheTTL:       envutil.Duration("TASTE_MATCH_CACHE_TTL", 10*time.Minute),
		MatchCandidateLimit: envutil.Int("TASTE_MATCH_CANDIDATES", 500),
		ShutdownTimeout:     envutil.Duration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	if cfg.JWTSecretKey == devJWTSecret && log != nil {
		log.Warn("JWT_SECRET_KEY not set, using development secret")
	}
	return cfg
}

func (c Config) Addr() string {
	port := strings.TrimPrefix(strings.TrimSpace(c.Port), ":")
	if port == "" {
		port = "8080"
	}
	return ":" + port
}
