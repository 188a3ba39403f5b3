package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/social-stories/internal/ledger"
	"github.com/magabrotheeeer/social-stories/internal/metrics"
	"github.com/magabrotheeeer/social-stories/internal/models"
	"github.com/magabrotheeeer/social-stories/internal/ratelimit"
	"github.com/magabrotheeeer/social-stories/internal/storage/memory"
)

type MockLimiter struct{ mock.Mock }

func (m *MockLimiter) Sweep(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockNotifier struct{ mock.Mock }

func (m *MockNotifier) SubscriptionChanged(ctx context.Context, u models.User, kind string) {
	m.Called(ctx, u, kind)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunOnce_ExpiresPremiumAndNotifies(t *testing.T) {
	ctx := context.Background()
	log := newNoopLogger()
	store := memory.New()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	expired, err := store.CreateUser(ctx, models.User{Email: "old@example.com", IsPremium: true, SubscriptionEndDate: &past})
	require.NoError(t, err)
	active, err := store.CreateUser(ctx, models.User{Email: "new@example.com", IsPremium: true, SubscriptionEndDate: &future})
	require.NoError(t, err)

	notifier := new(MockNotifier)
	notifier.On("SubscriptionChanged", mock.Anything, mock.MatchedBy(func(u models.User) bool {
		return u.ID == expired.ID && !u.IsPremium
	}), models.SubscriptionExpired).Once()

	limiter := ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.DefaultPolicies(), log)
	svc := NewSweeperService(limiter, store, ledger.New(store, log), notifier, log)
	svc.now = func() time.Time { return now }

	require.NoError(t, svc.RunOnce(ctx))

	got, err := store.UserByID(ctx, expired.ID)
	require.NoError(t, err)
	assert.False(t, got.IsPremium)
	got, err = store.UserByID(ctx, active.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPremium)

	// Повторный запуск ничего не меняет.
	require.NoError(t, svc.RunOnce(ctx))
	notifier.AssertExpectations(t)
	notifier.AssertNumberOfCalls(t, "SubscriptionChanged", 1)
}

func TestRunOnce_TaskFailureDoesNotStopOthers(t *testing.T) {
	ctx := context.Background()
	log := newNoopLogger()
	store := memory.New()

	limiter := new(MockLimiter)
	limiter.On("Sweep", mock.Anything).Return(int64(0), errors.New("redis down")).Once()

	svc := NewSweeperService(limiter, store, ledger.New(store, log), nil, log)

	okBefore := testutil.ToFloat64(metrics.SweeperRuns.WithLabelValues(TaskLedger, "ok"))
	errBefore := testutil.ToFloat64(metrics.SweeperRuns.WithLabelValues(TaskRateLimits, "error"))

	err := svc.RunOnce(ctx)

	assert.ErrorContains(t, err, "redis down")
	assert.Equal(t, okBefore+1, testutil.ToFloat64(metrics.SweeperRuns.WithLabelValues(TaskLedger, "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(metrics.SweeperRuns.WithLabelValues(TaskRateLimits, "error")))
	limiter.AssertExpectations(t)
}

func TestRun_StopsOnCancel(t *testing.T) {
	log := newNoopLogger()
	store := memory.New()
	limiter := new(MockLimiter)
	limiter.On("Sweep", mock.Anything).Return(int64(0), nil)

	svc := NewSweeperService(limiter, store, ledger.New(store, log), nil, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
	assert.GreaterOrEqual(t, len(limiter.Calls), 2)
}
