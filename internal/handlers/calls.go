package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/podguard/podguard/internal/models"
	pkghttp "github.com/podguard/podguard/pkg/http"
)

// CallServiceInterface defines the interface for call room admission
type CallServiceInterface interface {
	Join(ctx context.Context, slug, joinCode, identity, userAgent string) (*models.CallRoom, error)
}

// CallHandler handles recording-room join requests
type CallHandler struct {
	service  CallServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewCallHandler creates a new CallHandler
func NewCallHandler(service CallServiceInterface, ipConfig *pkghttp.IPConfig) *CallHandler {
	return &CallHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// JoinCallRequest represents the request body for joining a room
type JoinCallRequest struct {
	JoinCode string `json:"join_code" validate:"required,min=4,max=64"`
}

// JoinCallResponse represents a successful room admission
type JoinCallResponse struct {
	Room string `json:"room"`
	Name string `json:"name"`
}

// Join admits a participant into a recording room by slug and join code
func (h *CallHandler) Join(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "roomID")
	if slug == "" {
		pkghttp.WriteNotFound(w, "Not found")
		return
	}

	var req JoinCallRequest
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

	room, err := h.service.Join(r.Context(), slug, req.JoinCode, identity, userAgent)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(JoinCallResponse{Room: room.Slug, Name: room.Name})
}
