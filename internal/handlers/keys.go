package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/podguard/podguard/internal/auth"
	pkghttp "github.com/podguard/podguard/pkg/http"
)

// KeyHandler serves metadata about the API key authenticating the request
type KeyHandler struct{}

// NewKeyHandler creates a new KeyHandler
func NewKeyHandler() *KeyHandler {
	return &KeyHandler{}
}

// CurrentKeyResponse describes the authenticated API key without exposing it
type CurrentKeyResponse struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	KeyPrefix  string   `json:"key_prefix"`
	Scopes     []string `json:"scopes"`
	LastUsedAt *string  `json:"last_used_at,omitempty"`
}

// Current returns the key record behind the request's bearer credential.
func (h *KeyHandler) Current(w http.ResponseWriter, r *http.Request) {
	key := auth.GetAPIKeyFromContext(r)
	if key == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	resp := CurrentKeyResponse{
		ID:        key.ID,
		Name:      key.Name,
		KeyPrefix: key.KeyPrefix,
		Scopes:    key.Scopes,
	}
	if key.LastUsedAt != nil {
		s := key.LastUsedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		resp.LastUsedAt = &s
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
