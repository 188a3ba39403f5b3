package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/social-stories/internal/lib/apperr"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.ErrUnauthorized, http.StatusUnauthorized},
		{apperr.ErrInvalidCredentials, http.StatusUnauthorized},
		{apperr.ErrInvalidMonths, http.StatusUnprocessableEntity},
		{apperr.ErrSelfAction, http.StatusUnprocessableEntity},
		{apperr.ErrQuotaExceeded, http.StatusPaymentRequired},
		{apperr.ErrPremiumRequired, http.StatusForbidden},
		{apperr.ErrRegistrationDisabled, http.StatusForbidden},
		{apperr.RateLimited(time.Minute), http.StatusTooManyRequests},
		{apperr.NotFound("story"), http.StatusNotFound},
		{apperr.ErrEmailExists, http.StatusConflict},
		{apperr.ErrMaintenance, http.StatusServiceUnavailable},
		{apperr.ErrUpstream, http.StatusBadGateway},
		{fmt.Errorf("wrapped: %w", apperr.ErrQuotaExceeded), http.StatusPaymentRequired},
		{errors.New("pq: connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestFromError_HidesInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	FromError(w, r, newNoopLogger(), errors.New("pq: password authentication failed for user"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, Response{Status: StatusError, Error: "internal error"}, body)
}

func TestFromError_RetryAfter(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", nil)

	FromError(w, r, newNoopLogger(), fmt.Errorf("login: %w", apperr.RateLimited(90500*time.Millisecond)))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "91", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "too many attempts")
}

func TestCreated(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", nil)

	Created(w, r, map[string]string{"id": "1"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"status":"OK","data":{"id":"1"}}`, w.Body.String())
}
