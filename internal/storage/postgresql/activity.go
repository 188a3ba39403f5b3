package postgresql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/social-stories/internal/models"
)

// Ключ advisory-блокировки, сериализующей запись и обрезку журнала.
const activityLockKey = 7_301_001

func lockActivity(ctx context.Context, q DBTX) error {
	_, err := q.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, activityLockKey)
	return err
}

func pruneActivity(ctx context.Context, q DBTX, retain int) (int64, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM activity_logs
		WHERE seq IN (
		    SELECT seq FROM activity_logs
		    ORDER BY created_at DESC, seq DESC
		    OFFSET $1
		)`, retain)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RecentActivity возвращает до limit последних записей, новые первыми.
func (s *Storage) RecentActivity(ctx context.Context, limit int) ([]models.ActivityLogEntry, error) {
	const op = "storage.postgresql.RecentActivity"
	rows, err := s.DB.QueryContext(ctx, `SELECT id, created_at, action, actor_user_id, details
		FROM activity_logs
		ORDER BY created_at DESC, seq DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	entries := []models.ActivityLogEntry{}
	for rows.Next() {
		var e models.ActivityLogEntry
		if err = rows.Scan(&e.ID, &e.Timestamp, &e.Action, &e.ActorUserID, &e.Details); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return entries, nil
}

// PruneActivity оставляет retain последних записей.
func (s *Storage) PruneActivity(ctx context.Context, retain int) (int64, error) {
	const op = "storage.postgresql.PruneActivity"
	var n int64
	err := withTx(ctx, s.DB, func(ctx context.Context, tx *sql.Tx) error {
		if err := lockActivity(ctx, tx); err != nil {
			return err
		}
		var err error
		n, err = pruneActivity(ctx, tx, retain)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
