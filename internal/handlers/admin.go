package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/podguard/podguard/internal/models"
	pkghttp "github.com/podguard/podguard/pkg/http"
)

// BanAdminServiceInterface defines the interface for the operator ban surface
type BanAdminServiceInterface interface {
	ActiveBans(ctx context.Context) ([]*models.Ban, error)
	Unban(ctx context.Context, identity string, abuseCtx *models.AbuseContext) error
}

// AdminHandler exposes ban inspection and removal to operators
type AdminHandler struct {
	service BanAdminServiceInterface
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(service BanAdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// ListBansResponse wraps the active ban listing
type ListBansResponse struct {
	Bans []*models.Ban `json:"bans"`
}

// ListBans returns every ban still in force.
func (h *AdminHandler) ListBans(w http.ResponseWriter, r *http.Request) {
	bans, err := h.service.ActiveBans(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if bans == nil {
		bans = []*models.Ban{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(ListBansResponse{Bans: bans})
}

// UnbanRequest represents the request body for lifting a ban. Context is
// optional; omitting it clears the identity across every context.
type UnbanRequest struct {
	Identity string `json:"identity" validate:"required"`
	Context  string `json:"context" validate:"omitempty,oneof=auth_login setup auth_apikey auth_subscriber_token call_join"`
}

// Unban lifts bans for the exact identity string supplied by the operator.
func (h *AdminHandler) Unban(w http.ResponseWriter, r *http.Request) {
	var req UnbanRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	var abuseCtx *models.AbuseContext
	if req.Context != "" {
		c := models.AbuseContext(req.Context)
		abuseCtx = &c
	}

	if err := h.service.Unban(r.Context(), req.Identity, abuseCtx); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
