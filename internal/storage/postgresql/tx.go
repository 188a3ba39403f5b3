package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/social-stories/internal/models"
	"github.com/magabrotheeeer/social-stories/internal/storage"
)

// tx реализует storage.Tx поверх *sql.Tx.
type tx struct {
	q                DBTX
	settingsDefaults models.AdminSettings
}

func (t *tx) UserByID(ctx context.Context, id string) (models.User, error) {
	const op = "storage.postgresql.tx.UserByID"
	u, err := userByID(ctx, t.q, id, true)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return u, nil
}

func (t *tx) UpdateUser(ctx context.Context, id string, upd models.UserUpdate) (models.User, error) {
	const op = "storage.postgresql.tx.UpdateUser"
	if upd.Empty() {
		return t.UserByID(ctx, id)
	}

	var sets []string
	args := []any{id}
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if upd.Name != nil {
		set("name", *upd.Name)
	}
	if upd.PasswordHash != nil {
		set("password_hash", *upd.PasswordHash)
	}
	if upd.IsPremium != nil {
		set("is_premium", *upd.IsPremium)
	}
	if upd.IsAdmin != nil {
		set("is_admin", *upd.IsAdmin)
	}
	if upd.StoriesGenerated != nil {
		set("stories_generated", *upd.StoriesGenerated)
	}
	if upd.SubscriptionEndDate != nil {
		set("subscription_end_date", *upd.SubscriptionEndDate)
	}

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + userColumns
	u, err := scanUser(t.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return u, nil
}

func (t *tx) DeleteUser(ctx context.Context, id string) error {
	const op = "storage.postgresql.tx.DeleteUser"
	res, err := t.q.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return requireAffected(op, res)
}

func (t *tx) ConsumeStoryQuota(ctx context.Context, userID string, freeLimit int) (models.User, error) {
	const op = "storage.postgresql.tx.ConsumeStoryQuota"

	// Условие проверяется заново после ожидания блокировки строки, поэтому
	// на границе квоты из двух параллельных запросов проходит один.
	query := `UPDATE users
			  SET stories_generated = stories_generated + 1
			  WHERE id = $1
			    AND ((is_premium AND (subscription_end_date IS NULL OR subscription_end_date > NOW()))
			         OR stories_generated < $2)
			  RETURNING ` + userColumns
	u, err := scanUser(t.q.QueryRowContext(ctx, query, userID, freeLimit))
	if err == nil {
		return u, nil
	}
	if mapped := mapErr(err); mapped != storage.ErrNotFound {
		return models.User{}, fmt.Errorf("%s: %w", op, mapped)
	}

	var exists bool
	if err = t.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).
		Scan(&exists); err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrQuotaExhausted)
}

func (t *tx) InsertStory(ctx context.Context, story models.Story) (models.Story, error) {
	const op = "storage.postgresql.tx.InsertStory"
	st, err := insertStory(ctx, t.q, story)
	if err != nil {
		return models.Story{}, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return st, nil
}

func (t *tx) AppendActivity(ctx context.Context, entry models.ActivityLogEntry, retain int) error {
	const op = "storage.postgresql.tx.AppendActivity"
	if err := lockActivity(ctx, t.q); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := t.q.ExecContext(ctx, `INSERT INTO activity_logs (id, created_at, action, actor_user_id, details)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, entry.Timestamp, entry.Action, entry.ActorUserID, entry.Details); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := pruneActivity(ctx, t.q, retain); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (t *tx) UpdateSettings(ctx context.Context, upd models.SettingsUpdate) (models.AdminSettings, error) {
	const op = "storage.postgresql.tx.UpdateSettings"

	if err := insertSettings(ctx, t.q, t.settingsDefaults); err != nil {
		return models.AdminSettings{}, fmt.Errorf("%s: %w", op, err)
	}
	current, err := scanSettings(t.q.QueryRowContext(ctx,
		`SELECT `+settingsColumns+` FROM admin_settings WHERE id = 1 FOR UPDATE`))
	if err != nil {
		return models.AdminSettings{}, fmt.Errorf("%s: %w", op, err)
	}

	next := upd.Apply(current)
	updated, err := scanSettings(t.q.QueryRowContext(ctx, `UPDATE admin_settings
		SET free_story_limit = $1, enable_registration = $2, maintenance_mode = $3,
		    premium_price_cents = $4, updated_at = NOW()
		WHERE id = 1
		RETURNING `+settingsColumns,
		next.FreeStoryLimit, next.EnableRegistration, next.MaintenanceMode, next.PremiumPriceCents))
	if err != nil {
		return models.AdminSettings{}, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

var _ storage.Tx = (*tx)(nil)
var _ DBTX = (*sql.Tx)(nil)
