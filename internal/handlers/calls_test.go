package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/podguard/podguard/internal/handlers"
	"github.com/podguard/podguard/internal/models"
)

// fakeCallService implements CallServiceInterface
type fakeCallService struct {
	room *models.CallRoom
	err  error
	slug string
	code string
}

func (s *fakeCallService) Join(ctx context.Context, slug, joinCode, identity, userAgent string) (*models.CallRoom, error) {
	s.slug = slug
	s.code = joinCode
	if s.err != nil {
		return nil, s.err
	}
	return s.room, nil
}

func postJoin(t *testing.T, svc *fakeCallService, slug, body string) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	router.Post("/calls/{roomID}/join", handlers.NewCallHandler(svc, nil).Join)

	req := httptest.NewRequest("POST", "/calls/"+slug+"/join", strings.NewReader(body))
	req.RemoteAddr = "203.0.113.10:54321"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestJoin_Success(t *testing.T) {
	svc := &fakeCallService{room: &models.CallRoom{Slug: "weekly", Name: "Weekly Recording"}}

	w := postJoin(t, svc, "weekly", `{"join_code":"open sesame"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Weekly Recording")
	assert.Equal(t, "weekly", svc.slug)
	assert.Equal(t, "open sesame", svc.code)
}

func TestJoin_WrongCode(t *testing.T) {
	w := postJoin(t, &fakeCallService{err: models.ErrUnauthorized}, "weekly", `{"join_code":"guess"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJoin_UnknownRoom(t *testing.T) {
	w := postJoin(t, &fakeCallService{err: models.ErrNotFound}, "no-such-room", `{"join_code":"anything"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJoin_Banned(t *testing.T) {
	w := postJoin(t, &fakeCallService{err: &models.RateLimitedError{RetryAfterSec: 60}}, "weekly", `{"join_code":"anything"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestJoin_MissingCode(t *testing.T) {
	svc := &fakeCallService{}
	w := postJoin(t, svc, "weekly", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.slug, "validation failure never reaches the service")
}
