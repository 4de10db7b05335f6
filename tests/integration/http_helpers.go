package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/podguard/podguard/internal/auth"
	"github.com/podguard/podguard/internal/handlers"
	"github.com/podguard/podguard/internal/models"
	"github.com/podguard/podguard/internal/repositories"
	"github.com/podguard/podguard/internal/services"
	pkghttp "github.com/podguard/podguard/pkg/http"
	pkglogger "github.com/podguard/podguard/pkg/logger"
)

// TestServer wraps httptest.Server with the full application wired against
// a real database
type TestServer struct {
	Server *httptest.Server
	Guard  *services.AbuseGuard
	Admin  *services.BanAdminService
}

// TestPolicies returns low thresholds so ban behavior is cheap to trigger
func TestPolicies(t *testing.T) *services.PolicyTable {
	t.Helper()
	policies := make(map[models.AbuseContext]services.AbusePolicy, len(models.AllAbuseContexts))
	for _, c := range models.AllAbuseContexts {
		policies[c] = services.AbusePolicy{
			Window:           time.Minute,
			FailureThreshold: 2,
			BanDuration:      time.Minute,
		}
	}
	table, err := services.NewPolicyTable(policies)
	if err != nil {
		t.Fatalf("failed to build policy table: %v", err)
	}
	return table
}

// NewTestServer wires repositories, services, handlers, and routes the same
// way the server binary does, minus the volumetric rate limiter so tests can
// hammer endpoints freely.
func NewTestServer(t *testing.T, db *TestDB) *TestServer {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	auditLogger := pkglogger.NewAuditLogger(logger)
	clock := services.SystemClock()

	attemptRepo := repositories.NewAttemptRepository(db.DB)
	banRepo := repositories.NewBanRepository(db.DB)
	userRepo := repositories.NewUserRepository(db.DB)
	apiKeyRepo := repositories.NewAPIKeyRepository(db.DB)
	setupTokenRepo := repositories.NewSetupTokenRepository(db.DB)
	subscriberTokenRepo := repositories.NewSubscriberTokenRepository(db.DB)
	callRoomRepo := repositories.NewCallRoomRepository(db.DB)

	guard := services.NewAbuseGuard(attemptRepo, banRepo, TestPolicies(t), clock, logger, auditLogger)

	alerts := services.NoopAlertNotifier{}
	tokenManager := auth.NewTokenManager("integration-test-session-secret", 15*time.Minute)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{})

	authService := services.NewAuthService(userRepo, guard, tokenManager, timingDelay, alerts, logger, auditLogger)
	apiKeyService := services.NewAPIKeyService(apiKeyRepo, auth.NewAPIKeyManager(), guard, clock, alerts, logger, auditLogger)
	setupService := services.NewSetupService(setupTokenRepo, guard, alerts, logger, auditLogger)
	feedService := services.NewFeedService(subscriberTokenRepo, guard, clock, alerts, logger, auditLogger)
	callService := services.NewCallService(callRoomRepo, guard, alerts, logger, auditLogger)
	banAdminService := services.NewBanAdminService(guard, banRepo, clock)

	ipConfig := &pkghttp.IPConfig{}

	router := chi.NewRouter()
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Recoverer)

	// Same registration as the server binary, but handlers are mounted
	// directly: the httprate middleware would interfere with tests that
	// intentionally send bursts of failures.
	authHandler := handlers.NewAuthHandler(authService, ipConfig)
	setupHandler := handlers.NewSetupHandler(setupService, ipConfig)
	feedHandler := handlers.NewFeedHandler(feedService, ipConfig)
	callHandler := handlers.NewCallHandler(callService, ipConfig)
	adminHandler := handlers.NewAdminHandler(banAdminService)
	keyHandler := handlers.NewKeyHandler()

	router.Post("/auth/login", authHandler.Login)
	router.Post("/setup/validate", setupHandler.Validate)
	router.Post("/calls/{roomID}/join", callHandler.Join)
	router.Get("/feeds/{token}", feedHandler.Get)
	router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAPIKey(apiKeyService, ipConfig))
		r.Get("/keys/current", keyHandler.Current)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireScope(models.ScopeAbuseAdmin))
			r.Get("/admin/bans", adminHandler.ListBans)
			r.Delete("/admin/bans", adminHandler.Unban)
		})
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &TestServer{
		Server: server,
		Guard:  guard,
		Admin:  banAdminService,
	}
}

// PostJSON sends a JSON POST and returns the response
func (ts *TestServer) PostJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	resp, err := http.Post(ts.Server.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

// Get sends a GET request with optional bearer token
func (ts *TestServer) Get(t *testing.T, path, bearer string) *http.Response {
	t.Helper()
	req, err := http.NewRequest("GET", ts.Server.URL+path, nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

// DeleteJSON sends a JSON DELETE with optional bearer token
func (ts *TestServer) DeleteJSON(t *testing.T, path, bearer string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req, err := http.NewRequest("DELETE", ts.Server.URL+path, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}
