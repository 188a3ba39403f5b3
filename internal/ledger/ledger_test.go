package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/social-stories/internal/metrics"
	"github.com/magabrotheeeer/social-stories/internal/models"
	"github.com/magabrotheeeer/social-stories/internal/storage"
	"github.com/magabrotheeeer/social-stories/internal/storage/memory"
)

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

type failingTx struct{ storage.Tx }

func (failingTx) AppendActivity(context.Context, models.ActivityLogEntry, int) error {
	return errors.New("disk full")
}

func newTestLedger(store *memory.Storage) *Ledger {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(store, newNoopLogger())
	l.now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	return l
}

func TestLedger_KeepsMostRecentEntries(t *testing.T) {
	store := memory.New()
	l := newTestLedger(store)
	ctx := context.Background()

	for i := range 150 {
		err := store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			return l.Append(ctx, tx, UserPremiumToggled, "admin-1", fmt.Sprintf("entry %d", i))
		})
		require.NoError(t, err)
	}

	entries, err := l.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, Retention)

	assert.Equal(t, "entry 149", entries[0].Details)
	assert.Equal(t, "entry 50", entries[Retention-1].Details)
	for i := 1; i < len(entries); i++ {
		assert.True(t, entries[i-1].Timestamp.After(entries[i].Timestamp))
	}
}

func TestLedger_RecentLimit(t *testing.T) {
	store := memory.New()
	l := newTestLedger(store)
	ctx := context.Background()

	for i := range 5 {
		require.NoError(t, store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			return l.Append(ctx, tx, SettingsUpdated, "admin-1", fmt.Sprintf("entry %d", i))
		}))
	}

	entries, err := l.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "entry 4", entries[0].Details)
	assert.Equal(t, string(SettingsUpdated), entries[0].Action)
	assert.Equal(t, "admin-1", entries[0].ActorUserID)
	assert.NotEmpty(t, entries[0].ID)

	entries, err = l.Recent(ctx, 1000)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestLedger_AppendFailureRollsBackMutation(t *testing.T) {
	store := memory.New()
	l := newTestLedger(store)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, models.User{Email: "ann@example.com"})
	require.NoError(t, err)

	before := testutil.ToFloat64(metrics.LedgerAppendFailures)
	premium := true
	err = store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := tx.UpdateUser(ctx, user.ID, models.UserUpdate{IsPremium: &premium}); err != nil {
			return err
		}
		return l.Append(ctx, failingTx{tx}, UserPremiumToggled, "admin-1", user.ID)
	})
	require.Error(t, err)

	got, err := store.UserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, got.IsPremium, "mutation must be rolled back")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.LedgerAppendFailures))
}

func TestLedger_PruneIsIdempotent(t *testing.T) {
	store := memory.New()
	l := newTestLedger(store)
	ctx := context.Background()

	n, err := l.Prune(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return l.Append(ctx, tx, UserDeleted, "admin-1", "u-9")
	}))
	n, err = l.Prune(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
