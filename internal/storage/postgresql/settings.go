package postgresql

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/social-stories/internal/models"
)

const settingsColumns = `free_story_limit, enable_registration, maintenance_mode,
	premium_price_cents, updated_at`

func scanSettings(row rowScanner) (models.AdminSettings, error) {
	var st models.AdminSettings
	err := row.Scan(&st.FreeStoryLimit, &st.EnableRegistration, &st.MaintenanceMode,
		&st.PremiumPriceCents, &st.UpdatedAt)
	return st, err
}

// Settings возвращает строку настроек; storage.ErrNotFound, если её нет.
func (s *Storage) Settings(ctx context.Context) (models.AdminSettings, error) {
	const op = "storage.postgresql.Settings"
	st, err := scanSettings(s.DB.QueryRowContext(ctx,
		`SELECT `+settingsColumns+` FROM admin_settings WHERE id = 1`))
	if err != nil {
		return models.AdminSettings{}, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return st, nil
}

// EnsureSettings создаёт строку настроек из defaults, если её ещё нет.
// Существующая строка не меняется. defaults также используются
// UpdateSettings, если строка была удалена.
// Вызывается при старте, до обслуживания запросов.
func (s *Storage) EnsureSettings(ctx context.Context, defaults models.AdminSettings) error {
	const op = "storage.postgresql.EnsureSettings"
	s.settingsDefaults = defaults
	if err := insertSettings(ctx, s.DB, defaults); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func insertSettings(ctx context.Context, q DBTX, st models.AdminSettings) error {
	_, err := q.ExecContext(ctx, `INSERT INTO admin_settings
		(id, free_story_limit, enable_registration, maintenance_mode, premium_price_cents)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`,
		st.FreeStoryLimit, st.EnableRegistration, st.MaintenanceMode, st.PremiumPriceCents)
	return err
}
