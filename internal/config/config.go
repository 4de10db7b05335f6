package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Abuse    AbuseConfig
	Alerts   AlertConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
}

type AuthConfig struct {
	SessionSecret       string
	AccessTokenExpiry   time.Duration
	TimingDelayBaseMs   int
	TimingDelayRandomMs int
}

// ContextPolicyConfig is the tunable abuse policy for one protected context.
type ContextPolicyConfig struct {
	Window           time.Duration
	FailureThreshold int
	BanDuration      time.Duration
}

// AbuseConfig holds the per-context abuse policies plus housekeeping knobs.
// Retention and cleanup belong to housekeeping, not to the guard itself.
type AbuseConfig struct {
	Login            ContextPolicyConfig
	Setup            ContextPolicyConfig
	APIKey           ContextPolicyConfig
	SubscriberToken  ContextPolicyConfig
	CallJoin         ContextPolicyConfig
	AttemptRetention time.Duration
	CleanupInterval  time.Duration
}

// AlertConfig controls operator ban-alert emails (AWS SES).
type AlertConfig struct {
	Enabled         bool
	AWSRegion       string
	FromAddress     string
	OperatorAddress string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	sessionSecret := getEnv("SESSION_SECRET", "")
	if sessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "podguard"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES"),
		},
		Auth: AuthConfig{
			SessionSecret:       sessionSecret,
			AccessTokenExpiry:   getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 15*time.Minute),
			TimingDelayBaseMs:   getEnvAsInt("TIMING_DELAY_BASE_MS", 100),
			TimingDelayRandomMs: getEnvAsInt("TIMING_DELAY_RANDOM_MS", 100),
		},
		Abuse: AbuseConfig{
			Login:            policyFromEnv("ABUSE_LOGIN", 15*time.Minute, 5, 15*time.Minute),
			Setup:            policyFromEnv("ABUSE_SETUP", 1*time.Hour, 5, 1*time.Hour),
			APIKey:           policyFromEnv("ABUSE_APIKEY", 15*time.Minute, 10, 30*time.Minute),
			SubscriberToken:  policyFromEnv("ABUSE_SUBSCRIBER", 1*time.Hour, 10, 1*time.Hour),
			CallJoin:         policyFromEnv("ABUSE_CALL_JOIN", 15*time.Minute, 5, 15*time.Minute),
			AttemptRetention: getEnvAsDuration("ABUSE_ATTEMPT_RETENTION", 30*24*time.Hour),
			CleanupInterval:  getEnvAsDuration("ABUSE_CLEANUP_INTERVAL", 1*time.Hour),
		},
		Alerts: AlertConfig{
			Enabled:         getEnvAsBool("BAN_ALERTS_ENABLED", false),
			AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
			FromAddress:     getEnv("BAN_ALERTS_FROM", ""),
			OperatorAddress: getEnv("BAN_ALERTS_TO", ""),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateSessionSecret(sessionSecret, env); err != nil {
		return nil, err
	}

	if cfg.Alerts.Enabled && (cfg.Alerts.FromAddress == "" || cfg.Alerts.OperatorAddress == "") {
		return nil, fmt.Errorf("BAN_ALERTS_FROM and BAN_ALERTS_TO are required when BAN_ALERTS_ENABLED is set")
	}

	return cfg, nil
}

// policyFromEnv reads one context's abuse policy with the given defaults.
// Env keys: <PREFIX>_WINDOW, <PREFIX>_THRESHOLD, <PREFIX>_BAN_DURATION.
func policyFromEnv(prefix string, window time.Duration, threshold int, ban time.Duration) ContextPolicyConfig {
	return ContextPolicyConfig{
		Window:           getEnvAsDuration(prefix+"_WINDOW", window),
		FailureThreshold: getEnvAsInt(prefix+"_THRESHOLD", threshold),
		BanDuration:      getEnvAsDuration(prefix+"_BAN_DURATION", ban),
	}
}

// validateSessionSecret enforces minimum security standards for the session
// signing secret
func validateSessionSecret(secret, env string) error {
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // Production requires a 256-bit secret
	}

	if len(secret) < minLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("SESSION_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{} // Default to no origins in production
		}
		origins := strings.Split(originsStr, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		return origins
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
