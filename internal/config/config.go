package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AuthModeCognito = "cognito"
	AuthModeHMAC    = "hmac"
)

type Config struct {
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration
	DatabaseURL             string
	DBMaxConns              int32
	DBMinConns              int32
	TrashRetention          time.Duration
	SweepEnabled            bool
	SweepInterval           time.Duration
	SweepLockTTL            time.Duration
	RedisURL                string
	CORSOrigins             []string
	RateLimitRPM            int
	AuthMode                string
	CognitoRegion           string
	CognitoUserPoolID       string
	CognitoClientID         string
	CognitoJWKSURL          string
	AuthHMACSecret          string
	AdminGroups             []string
	LogLevel                string
	LogFormat               string
	MetricsEnabled          bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 30*time.Second),
		DatabaseURL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:              int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:              int32(getInt("DB_MIN_CONNS", 2)),
		TrashRetention:          getDuration("TRASH_RETENTION", 31*24*time.Hour),
		SweepEnabled:            getBool("SWEEP_ENABLED", true),
		SweepInterval:           getDuration("SWEEP_INTERVAL", 24*time.Hour),
		SweepLockTTL:            getDuration("SWEEP_LOCK_TTL", 10*time.Minute),
		RedisURL:                strings.TrimSpace(os.Getenv("REDIS_URL")),
		CORSOrigins:             splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		RateLimitRPM:            getInt("RATE_LIMIT_RPM", 120),
		AuthMode:                strings.ToLower(getEnv("AUTH_MODE", AuthModeCognito)),
		CognitoRegion:           getEnv("COGNITO_REGION", ""),
		CognitoUserPoolID:       getEnv("COGNITO_USER_POOL_ID", ""),
		CognitoClientID:         getEnv("COGNITO_CLIENT_ID", ""),
		CognitoJWKSURL:          getEnv("COGNITO_JWKS_URL", ""),
		AuthHMACSecret:          strings.TrimSpace(os.Getenv("AUTH_HMAC_SECRET")),
		AdminGroups:             splitCSV(getEnv("ADMIN_GROUPS", "admin")),
		LogLevel:                strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:               strings.ToLower(getEnv("LOG_FORMAT", "pretty")),
		MetricsEnabled:          getBool("METRICS_ENABLED", true),
	}

	if cfg.CognitoJWKSURL == "" && cfg.CognitoRegion != "" && cfg.CognitoUserPoolID != "" {
		cfg.CognitoJWKSURL = cfg.CognitoIssuer() + "/.well-known/jwks.json"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// CognitoIssuer is the iss claim every Cognito token for the pool carries.
func (c *Config) CognitoIssuer() string {
	if c.CognitoRegion == "" || c.CognitoUserPoolID == "" {
		return ""
	}

	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", c.CognitoRegion, c.CognitoUserPoolID)
}

func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.TrashRetention <= 0 {
		return fmt.Errorf("TRASH_RETENTION must be positive")
	}

	if c.SweepEnabled && c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive")
	}

	if c.SweepLockTTL <= 0 {
		return fmt.Errorf("SWEEP_LOCK_TTL must be positive")
	}

	if len(c.AdminGroups) == 0 {
		return fmt.Errorf("ADMIN_GROUPS cannot be empty")
	}

	switch c.AuthMode {
	case AuthModeCognito:
		if c.CognitoJWKSURL == "" {
			return fmt.Errorf("COGNITO_JWKS_URL or COGNITO_REGION and COGNITO_USER_POOL_ID are required")
		}
	case AuthModeHMAC:
		if len(c.AuthHMACSecret) < 32 {
			return fmt.Errorf("AUTH_HMAC_SECRET must be at least 32 characters")
		}
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q", AuthModeCognito, AuthModeHMAC)
	}

	if c.LogFormat != "pretty" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be pretty or json")
	}

	return nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
