package premium

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/social-stories/internal/gate"
	"github.com/magabrotheeeer/social-stories/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) TogglePremium(ctx context.Context, p *gate.Principal, userID string) (models.Profile, error) {
	args := m.Called(ctx, p, userID)
	return args.Get(0).(models.Profile), args.Error(1)
}

func TestPremiumHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	admin := &gate.Principal{UserID: "admin", Tier: gate.Admin}

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/users/u1/premium", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", "u1")
		ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
		return req.WithContext(gate.WithPrincipal(ctx, admin))
	}

	svc := new(MockService)
	svc.On("TogglePremium", mock.Anything, admin, "u1").
		Return(models.Profile{ID: "u1", IsPremium: true}, nil).Once()
	rr := httptest.NewRecorder()
	New(logger, svc).ServeHTTP(rr, newReq())
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"is_premium":true`)

	svc.ExpectedCalls = nil
	svc.Calls = nil
	svc.On("TogglePremium", mock.Anything, admin, "u1").
		Return(models.Profile{}, errors.New("tx aborted")).Once()
	rr = httptest.NewRecorder()
	New(logger, svc).ServeHTTP(rr, newReq())
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "tx aborted")
	svc.AssertExpectations(t)
}
