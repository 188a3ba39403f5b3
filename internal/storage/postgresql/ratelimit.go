package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/social-stories/internal/models"
	"github.com/magabrotheeeer/social-stories/internal/ratelimit"
)

var errInsertRace = errors.New("rate limit record inserted concurrently")

const rateLimitMaxRetries = 3

// RateLimitStore хранит окна лимитера в таблице rate_limits.
type RateLimitStore struct {
	db *sql.DB
}

// RateLimits возвращает хранилище лимитера поверх того же пула.
func (s *Storage) RateLimits() *RateLimitStore {
	return &RateLimitStore{db: s.DB}
}

// Consume блокирует строку (identifier, action), применяет шаг и сохраняет
// результат в одной транзакции. Если строки не было и её вставил
// конкурент, попытка повторяется уже с блокировкой.
func (r *RateLimitStore) Consume(ctx context.Context, identifier, action string, apply ratelimit.ApplyFunc) (bool, error) {
	const op = "storage.postgresql.RateLimitStore.Consume"

	for range rateLimitMaxRetries {
		var allowed bool
		err := withTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
			rec := models.RateLimitRecord{Identifier: identifier, Action: action}
			found := true
			err := tx.QueryRowContext(ctx, `SELECT count, reset_at FROM rate_limits
				WHERE identifier = $1 AND action = $2
				FOR UPDATE`, identifier, action).Scan(&rec.Count, &rec.ResetAt)
			if errors.Is(err, sql.ErrNoRows) {
				found = false
			} else if err != nil {
				return err
			}

			next, ok := apply(rec, found)
			allowed = ok

			if !found {
				res, err := tx.ExecContext(ctx, `INSERT INTO rate_limits (identifier, action, count, reset_at)
					VALUES ($1, $2, $3, $4)
					ON CONFLICT (identifier, action) DO NOTHING`,
					identifier, action, next.Count, next.ResetAt)
				if err != nil {
					return err
				}
				if n, err := res.RowsAffected(); err != nil {
					return err
				} else if n == 0 {
					return errInsertRace
				}
				return nil
			}

			_, err = tx.ExecContext(ctx, `UPDATE rate_limits SET count = $3, reset_at = $4
				WHERE identifier = $1 AND action = $2`,
				identifier, action, next.Count, next.ResetAt)
			return err
		})
		if errors.Is(err, errInsertRace) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
		return allowed, nil
	}
	return false, fmt.Errorf("%s: %w", op, ratelimit.ErrContention)
}

// Sweep удаляет окна, закончившиеся до now.
func (r *RateLimitStore) Sweep(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.postgresql.RateLimitStore.Sweep"
	res, err := r.db.ExecContext(ctx, `DELETE FROM rate_limits WHERE reset_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

var _ ratelimit.Store = (*RateLimitStore)(nil)
