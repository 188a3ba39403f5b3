package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/social-stories/internal/models"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishSubscriptionEvent(ctx context.Context, event models.SubscriptionEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSubscriptionChanged_Publishes(t *testing.T) {
	pub := new(MockPublisher)
	n := New(pub, newNoopLogger())
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return fixed }

	end := fixed.AddDate(0, 1, 0)
	u := models.User{ID: "u1", Email: "x@example.com", IsPremium: true, SubscriptionEndDate: &end}

	pub.On("PublishSubscriptionEvent", mock.Anything, models.SubscriptionEvent{
		UserID: "u1", Email: "x@example.com", Kind: models.SubscriptionChanged,
		IsPremium: true, EndDate: &end, OccurredAt: fixed,
	}).Return(nil).Once()

	n.SubscriptionChanged(context.Background(), u, models.SubscriptionChanged)

	pub.AssertExpectations(t)
}

func TestSubscriptionChanged_ErrorIsSwallowed(t *testing.T) {
	pub := new(MockPublisher)
	n := New(pub, newNoopLogger())
	pub.On("PublishSubscriptionEvent", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	assert.NotPanics(t, func() {
		n.SubscriptionChanged(context.Background(), models.User{ID: "u1"}, models.SubscriptionCancelled)
	})
	pub.AssertExpectations(t)
}

func TestSubscriptionChanged_NilPublisher(t *testing.T) {
	var nilNotifier *Notifier
	assert.NotPanics(t, func() {
		nilNotifier.SubscriptionChanged(context.Background(), models.User{}, models.SubscriptionExpired)
		New(nil, newNoopLogger()).SubscriptionChanged(context.Background(), models.User{}, models.SubscriptionExpired)
	})
}
