package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/social-stories/internal/migrations"
	"github.com/magabrotheeeer/social-stories/internal/models"
	settingsservice "github.com/magabrotheeeer/social-stories/internal/services/settings"
	"github.com/magabrotheeeer/social-stories/internal/storage"
)

func setupTestDatabase(t *testing.T) *Storage {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(s.DB, migrationsPath))

	return s
}

func createUser(t *testing.T, s *Storage, email string, storiesGenerated int, premium bool) models.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), models.User{
		Email:            email,
		Name:             "Test",
		PasswordHash:     "hash",
		IsPremium:        premium,
		StoriesGenerated: storiesGenerated,
	})
	require.NoError(t, err)
	return u
}

func TestStorage(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	t.Run("users", func(t *testing.T) {
		u := createUser(t, s, "Ann@Example.com", 0, false)
		assert.Equal(t, "ann@example.com", u.Email)
		assert.NotEmpty(t, u.ID)

		_, err := s.CreateUser(ctx, models.User{Email: "ANN@example.com", PasswordHash: "x"})
		assert.ErrorIs(t, err, storage.ErrEmailExists)

		got, err := s.UserByEmail(ctx, "ann@EXAMPLE.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)

		_, err = s.UserByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = s.UserByID(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		n, err := s.PromoteAdmins(ctx, []string{" ANN@example.com", "nobody@example.com"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("update user clears subscription", func(t *testing.T) {
		u := createUser(t, s, "upd@example.com", 2, false)
		end := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
		premium := true

		err := s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			_, err := tx.UpdateUser(ctx, u.ID, models.UserUpdate{
				IsPremium:           &premium,
				SubscriptionEndDate: &sql.NullTime{Time: end, Valid: true},
			})
			return err
		})
		require.NoError(t, err)

		got, err := s.UserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, got.IsPremium)
		require.NotNil(t, got.SubscriptionEndDate)
		assert.True(t, end.Equal(*got.SubscriptionEndDate))

		notPremium := false
		err = s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			_, err := tx.UpdateUser(ctx, u.ID, models.UserUpdate{
				IsPremium:           &notPremium,
				SubscriptionEndDate: &sql.NullTime{},
			})
			return err
		})
		require.NoError(t, err)

		got, err = s.UserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.False(t, got.IsPremium)
		assert.Nil(t, got.SubscriptionEndDate)
		assert.Equal(t, 2, got.StoriesGenerated)
	})

	t.Run("quota boundary under concurrency", func(t *testing.T) {
		u := createUser(t, s, "quota@example.com", 2, false)

		var ok, exhausted atomic.Int32
		var wg sync.WaitGroup
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
					if _, err := tx.ConsumeStoryQuota(ctx, u.ID, 3); err != nil {
						return err
					}
					_, err := tx.InsertStory(ctx, models.Story{UserID: u.ID, Title: "t", Content: "c"})
					return err
				})
				switch {
				case err == nil:
					ok.Add(1)
				case errors.Is(err, storage.ErrQuotaExhausted):
					exhausted.Add(1)
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), ok.Load())
		assert.Equal(t, int32(4), exhausted.Load())

		got, err := s.UserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.StoriesGenerated)
	})

	t.Run("stories", func(t *testing.T) {
		owner := createUser(t, s, "owner@example.com", 0, true)
		other := createUser(t, s, "other@example.com", 0, false)

		var story models.Story
		require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			var err error
			story, err = tx.InsertStory(ctx, models.Story{
				UserID: owner.ID, Title: "Going to the dentist", Category: "health", Content: "...",
				Pages: []models.Page{{Text: "We sit in the big chair.", ImageURL: "https://img/1.png"}},
			})
			return err
		}))

		got, err := s.StoryByID(ctx, story.ID)
		require.NoError(t, err)
		assert.Equal(t, []models.Page{{Text: "We sit in the big chair.", ImageURL: "https://img/1.png"}}, got.Pages)
		assert.Nil(t, got.VideoURL)

		assert.ErrorIs(t, s.SetStoryVideo(ctx, story.ID, other.ID, "https://v/1"), storage.ErrNotFound)
		require.NoError(t, s.SetStoryVideo(ctx, story.ID, owner.ID, "https://v/1"))

		list, err := s.ListStories(ctx, owner.ID, 10, 0)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.NotNil(t, list[0].VideoURL)

		assert.ErrorIs(t, s.DeleteStory(ctx, story.ID, other.ID), storage.ErrNotFound)
		require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			return tx.DeleteUser(ctx, owner.ID)
		}))
		_, err = s.StoryByID(ctx, story.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound, "stories are deleted with their owner")
	})

	t.Run("activity keeps most recent", func(t *testing.T) {
		base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		for i := range 110 {
			require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
				return tx.AppendActivity(ctx, models.ActivityLogEntry{
					ID:          uuid.NewString(),
					Timestamp:   base.Add(time.Duration(i) * time.Second),
					Action:      "user.deleted",
					ActorUserID: "admin",
					Details:     fmt.Sprintf("entry %d", i),
				}, 100)
			}))
		}

		entries, err := s.RecentActivity(ctx, 1000)
		require.NoError(t, err)
		require.Len(t, entries, 100)
		assert.Equal(t, "entry 109", entries[0].Details)
		assert.Equal(t, "entry 10", entries[99].Details)

		n, err := s.PruneActivity(ctx, 100)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("settings", func(t *testing.T) {
		_, err := s.Settings(ctx)
		require.ErrorIs(t, err, storage.ErrNotFound)

		svc := settingsservice.NewSettingsService(s, nil, time.Minute, 5, slog.New(slog.NewTextHandler(io.Discard, nil)))
		st, err := svc.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, st.FreeStoryLimit)

		require.NoError(t, s.EnsureSettings(ctx, models.DefaultAdminSettings(5)))
		require.NoError(t, s.EnsureSettings(ctx, models.DefaultAdminSettings(7)))
		st, err = svc.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, st.FreeStoryLimit, "existing row is kept")

		maintenance := true
		require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			_, err := tx.UpdateSettings(ctx, models.SettingsUpdate{MaintenanceMode: &maintenance})
			return err
		}))
		st, err = s.Settings(ctx)
		require.NoError(t, err)
		assert.True(t, st.MaintenanceMode)
		assert.Equal(t, 5, st.FreeStoryLimit)
	})

	t.Run("expire premium", func(t *testing.T) {
		u := createUser(t, s, "expiring@example.com", 1, true)
		past := time.Now().Add(-time.Hour)
		require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			_, err := tx.UpdateUser(ctx, u.ID, models.UserUpdate{SubscriptionEndDate: &sql.NullTime{Time: past, Valid: true}})
			return err
		}))

		expired, err := s.ExpirePremium(ctx, time.Now())
		require.NoError(t, err)
		require.Len(t, expired, 1)
		assert.Equal(t, u.ID, expired[0].ID)
		assert.False(t, expired[0].IsPremium)
	})

	t.Run("quota ignores lapsed premium", func(t *testing.T) {
		u := createUser(t, s, "lapsed@example.com", 10, true)
		setEnd := func(end time.Time) {
			require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
				_, err := tx.UpdateUser(ctx, u.ID, models.UserUpdate{SubscriptionEndDate: &sql.NullTime{Time: end, Valid: true}})
				return err
			}))
		}
		consume := func() error {
			return s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
				_, err := tx.ConsumeStoryQuota(ctx, u.ID, 3)
				return err
			})
		}

		setEnd(time.Now().Add(-48 * time.Hour))
		assert.ErrorIs(t, consume(), storage.ErrQuotaExhausted)

		setEnd(time.Now().Add(48 * time.Hour))
		require.NoError(t, consume())
		got, err := s.UserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, 11, got.StoriesGenerated)
	})
}

func TestRateLimitStore(t *testing.T) {
	s := setupTestDatabase(t)
	store := s.RateLimits()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	step := func(rec models.RateLimitRecord, found bool) (models.RateLimitRecord, bool) {
		if !found {
			return models.RateLimitRecord{Count: 1, ResetAt: now.Add(time.Minute)}, true
		}
		if rec.Count >= 3 {
			return rec, false
		}
		rec.Count++
		return rec, true
	}

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Consume(ctx, "10.0.0.1", "register", step)
			if err == nil && ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(3), allowed.Load())

	_, err := store.Consume(ctx, "10.0.0.2", "register", func(models.RateLimitRecord, bool) (models.RateLimitRecord, bool) {
		return models.RateLimitRecord{Count: 1, ResetAt: now.Add(-time.Minute)}, true
	})
	require.NoError(t, err)

	n, err := store.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "only the expired window is removed")
}
