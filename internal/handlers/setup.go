package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	pkghttp "github.com/podguard/podguard/pkg/http"
)

// SetupServiceInterface defines the interface for setup token validation
type SetupServiceInterface interface {
	ValidateToken(ctx context.Context, token, identity, userAgent string) error
}

// SetupHandler handles first-run setup token validation
type SetupHandler struct {
	service  SetupServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewSetupHandler creates a new SetupHandler
func NewSetupHandler(service SetupServiceInterface, ipConfig *pkghttp.IPConfig) *SetupHandler {
	return &SetupHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// ValidateSetupTokenRequest represents the request body for setup validation
type ValidateSetupTokenRequest struct {
	Token string `json:"token" validate:"required,min=16"`
}

// Validate spends a one-time setup token
func (h *SetupHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateSetupTokenRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	identity := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	if err := h.service.ValidateToken(r.Context(), req.Token, identity, userAgent); err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"valid":true}`))
}
