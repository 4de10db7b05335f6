package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/podguard/podguard/internal/handlers"
	"github.com/podguard/podguard/internal/models"
)

// fakeFeedService implements FeedServiceInterface
type fakeFeedService struct {
	token *models.SubscriberToken
	err   error
}

func (s *fakeFeedService) ResolveToken(ctx context.Context, token, identity, userAgent string) (*models.SubscriberToken, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.token, nil
}

func getFeed(t *testing.T, svc *fakeFeedService, token string) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	router.Get("/feeds/{token}", handlers.NewFeedHandler(svc, nil).Get)

	req := httptest.NewRequest("GET", "/feeds/"+token, nil)
	req.RemoteAddr = "203.0.113.10:54321"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetFeed_Success(t *testing.T) {
	svc := &fakeFeedService{token: &models.SubscriberToken{
		FeedSlug:   "my-show",
		ValidUntil: time.Now().Add(time.Hour),
	}}

	w := getFeed(t, svc, "sub-token")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "my-show")
}

func TestGetFeed_UnknownOrExpired(t *testing.T) {
	// The handler cannot tell unknown from expired; both arrive as not-found
	w := getFeed(t, &fakeFeedService{err: models.ErrNotFound}, "bad-token")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetFeed_Banned(t *testing.T) {
	w := getFeed(t, &fakeFeedService{err: &models.RateLimitedError{RetryAfterSec: 3600}}, "any")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "3600", w.Header().Get("Retry-After"))
}
