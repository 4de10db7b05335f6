package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	Identity      string
	UserAgent     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogAuthAttempt logs the outcome of an authentication or token check
func (al *AuditLogger) LogAuthAttempt(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.Identity != "" {
		attrs = append(attrs, slog.String("identity", event.Identity))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	if event.Success {
		al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
	} else {
		al.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit", attrs...)
	}
}

// LogBanTriggered logs a threshold breach that created or extended a ban
func (al *AuditLogger) LogBanTriggered(identity, abuseContext string, failures, retryAfterSec int) {
	al.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit",
		slog.String("audit_type", "abuse"),
		slog.String("event_type", "ban_triggered"),
		slog.String("identity", identity),
		slog.String("context", abuseContext),
		slog.Int("failures_in_window", failures),
		slog.Int("retry_after_sec", retryAfterSec),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	)
}

// LogUnban logs an administrative unban. An empty context means the
// identity was cleared across all contexts.
func (al *AuditLogger) LogUnban(identity, abuseContext string, removed int64) {
	attrs := []slog.Attr{
		slog.String("audit_type", "abuse"),
		slog.String("event_type", "unban"),
		slog.String("identity", identity),
		slog.Int64("bans_removed", removed),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	if abuseContext != "" {
		attrs = append(attrs, slog.String("context", abuseContext))
	}
	al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
}
