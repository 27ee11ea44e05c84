// pkg/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	HTTPAddr string
	LogLevel string

	// JWT issued to iframe clients after a successful placement
	JWTSecret    string
	JWTAlgorithm string
	JWTIssuer    string
	JWTTTL       time.Duration

	// Portal platform (app.info fallback lookup)
	PortalAuthServer   string
	PortalTimeout      time.Duration
	PortalLookupTTL    time.Duration
	ClientID           string
	ClientSecret       string
	CORSAllowedOrigins []string

	// Tracing exporter; empty disables tracing
	OTLPEndpoint string
	// Debug enables request rejection logs and double-write detection
	Debug bool

	// Redis & Postgres
	RedisURL        string
	DatabaseURL     string
	DBMaxConns      int32
	ConnectTimeout  time.Duration
	AccountSeedFile string
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Env:                env("APP_ENV", "dev"),
		HTTPAddr:           env("HTTP_ADDR", ":8080"),
		LogLevel:           env("LOG_LEVEL", "info"),
		JWTSecret:          env("JWT_SECRET", "default_jwt_secret"),
		JWTAlgorithm:       env("JWT_ALGORITHM", "HS256"),
		JWTIssuer:          env("JWT_ISSUER", "portalgate"),
		JWTTTL:             envDur("JWT_TTL_SEC", 3600) * time.Second,
		PortalAuthServer:   strings.TrimRight(env("PORTAL_AUTH_SERVER", "https://oauth.bitrix.info"), "/"),
		PortalTimeout:      envDur("PORTAL_LOOKUP_TIMEOUT_SEC", 10) * time.Second,
		PortalLookupTTL:    envDur("PORTAL_LOOKUP_CACHE_TTL_SEC", 0) * time.Second,
		ClientID:           env("CLIENT_ID", ""),
		ClientSecret:       env("CLIENT_SECRET", ""),
		CORSAllowedOrigins: envList("CORS_ORIGINS", nil),
		RedisURL:           env("REDIS_URL", ""),
		DatabaseURL:        env("DATABASE_URL", ""),
		DBMaxConns:         int32(envInt("DB_MAX_CONNS", 10)),
		ConnectTimeout:     envDur("CONNECT_TIMEOUT_SEC", 5) * time.Second,
		AccountSeedFile:    env("ACCOUNT_SEED_FILE", ""),
		OTLPEndpoint:       env("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", env("OTEL_EXPORTER_OTLP_ENDPOINT", "")),
	}
	cfg.Debug = envBool("DEBUG", cfg.Env == "dev")
	if cfg.DatabaseURL == "" {
		log.Println("[WARN] DATABASE_URL not set; using in-memory account store for dev")
	}
	if cfg.Env == "prod" && cfg.JWTSecret == "default_jwt_secret" {
		log.Println("[WARN] JWT_SECRET is the built-in default")
	}
	return cfg
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		b, _ := strconv.ParseBool(v)
		return b
	}
	return def
}
func envDur(k string, def int) time.Duration {
	if v := os.Getenv(k); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return time.Duration(def)
		}
		return time.Duration(i)
	}
	return time.Duration(def)
}
func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
func envList(k string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	out := []string{}
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
