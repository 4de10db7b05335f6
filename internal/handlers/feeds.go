package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/podguard/podguard/internal/models"
	pkghttp "github.com/podguard/podguard/pkg/http"
)

// FeedServiceInterface defines the interface for private-feed token resolution
type FeedServiceInterface interface {
	ResolveToken(ctx context.Context, token, identity, userAgent string) (*models.SubscriberToken, error)
}

// FeedHandler serves private podcast feeds keyed by subscriber token
type FeedHandler struct {
	service  FeedServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(service FeedServiceInterface, ipConfig *pkghttp.IPConfig) *FeedHandler {
	return &FeedHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// FeedResponse represents the resolved feed for a subscriber token
type FeedResponse struct {
	FeedSlug string `json:"feed_slug"`
}

// Get resolves a subscriber token from the URL into its private feed
func (h *FeedHandler) Get(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		pkghttp.WriteNotFound(w, "Not found")
		return
	}

	identity := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	st, err := h.service.ResolveToken(r.Context(), token, identity, userAgent)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(FeedResponse{FeedSlug: st.FeedSlug})
}
