package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SESSION_SECRET", "unit-test-session-secret")
	t.Setenv("DB_PASSWORD", "postgres")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, "podguard", cfg.Database.Name)

	// Per-context abuse defaults
	assert.Equal(t, 15*time.Minute, cfg.Abuse.Login.Window)
	assert.Equal(t, 5, cfg.Abuse.Login.FailureThreshold)
	assert.Equal(t, 15*time.Minute, cfg.Abuse.Login.BanDuration)
	assert.Equal(t, 10, cfg.Abuse.SubscriberToken.FailureThreshold)
	assert.Equal(t, time.Hour, cfg.Abuse.Setup.BanDuration)

	assert.Equal(t, 30*24*time.Hour, cfg.Abuse.AttemptRetention)
	assert.Equal(t, time.Hour, cfg.Abuse.CleanupInterval)
	assert.False(t, cfg.Alerts.Enabled)
}

func TestLoad_PolicyOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ABUSE_LOGIN_WINDOW", "30m")
	t.Setenv("ABUSE_LOGIN_THRESHOLD", "3")
	t.Setenv("ABUSE_LOGIN_BAN_DURATION", "2h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.Abuse.Login.Window)
	assert.Equal(t, 3, cfg.Abuse.Login.FailureThreshold)
	assert.Equal(t, 2*time.Hour, cfg.Abuse.Login.BanDuration)

	// Other contexts keep their defaults
	assert.Equal(t, 5, cfg.Abuse.CallJoin.FailureThreshold)
}

func TestLoad_RequiresSessionSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("DB_PASSWORD", "postgres")

	_, err := Load()
	assert.ErrorContains(t, err, "SESSION_SECRET")
}

func TestLoad_RequiresDBPassword(t *testing.T) {
	t.Setenv("SESSION_SECRET", "unit-test-session-secret")
	t.Setenv("DB_PASSWORD", "")

	_, err := Load()
	assert.ErrorContains(t, err, "DB_PASSWORD")
}

func TestLoad_RejectsShortSecretInProduction(t *testing.T) {
	t.Setenv("SESSION_SECRET", "short-secret-xxxx")
	t.Setenv("DB_PASSWORD", "postgres")
	t.Setenv("ENV", "production")

	_, err := Load()
	assert.ErrorContains(t, err, "SESSION_SECRET")
}

func TestLoad_AlertsRequireAddresses(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BAN_ALERTS_ENABLED", "true")

	_, err := Load()
	assert.ErrorContains(t, err, "BAN_ALERTS_FROM")
}

func TestValidateSessionSecret_RejectsWeakValues(t *testing.T) {
	for _, weak := range []string{"secret", "password", "changeme"} {
		assert.Error(t, validateSessionSecret(weak, "development"), weak)
	}
	assert.NoError(t, validateSessionSecret("an-acceptable-development-secret", "development"))
}

func TestDatabaseConfigDSN(t *testing.T) {
	c := DatabaseConfig{
		Host: "db", Port: 5433, User: "app", Password: "pw", Name: "podguard", SSLMode: "require",
	}
	assert.Equal(t, "host=db port=5433 user=app password=pw dbname=podguard sslmode=require", c.DSN())
}
