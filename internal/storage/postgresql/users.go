package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/magabrotheeeer/social-stories/internal/models"
)

const userColumns = `id, email, name, password_hash, is_premium, is_admin,
	stories_generated, subscription_end_date, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (models.User, error) {
	var u models.User
	var endDate sql.NullTime
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.IsPremium, &u.IsAdmin,
		&u.StoriesGenerated, &endDate, &u.CreatedAt); err != nil {
		return models.User{}, err
	}
	if endDate.Valid {
		t := endDate.Time
		u.SubscriptionEndDate = &t
	}
	return u, nil
}

func scanUsers(rows *sql.Rows) ([]models.User, error) {
	defer func() {
		_ = rows.Close()
	}()
	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func userByID(ctx context.Context, q DBTX, id string, forUpdate bool) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	return scanUser(q.QueryRowContext(ctx, query, id))
}

// CreateUser сохраняет нового пользователя и возвращает его с присвоенным ID.
func (s *Storage) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	const op = "storage.postgresql.CreateUser"

	var endDate sql.NullTime
	if u.SubscriptionEndDate != nil {
		endDate = sql.NullTime{Time: *u.SubscriptionEndDate, Valid: true}
	}
	query := `INSERT INTO users (email, name, password_hash, is_premium, is_admin,
			      stories_generated, subscription_end_date)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING ` + userColumns
	created, err := scanUser(s.DB.QueryRowContext(ctx, query,
		strings.ToLower(u.Email), u.Name, u.PasswordHash, u.IsPremium, u.IsAdmin,
		u.StoriesGenerated, endDate))
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return created, nil
}

// UserByID возвращает пользователя по идентификатору.
func (s *Storage) UserByID(ctx context.Context, id string) (models.User, error) {
	const op = "storage.postgresql.UserByID"
	u, err := userByID(ctx, s.DB, id, false)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return u, nil
}

// UserByEmail ищет пользователя без учёта регистра.
func (s *Storage) UserByEmail(ctx context.Context, email string) (models.User, error) {
	const op = "storage.postgresql.UserByEmail"
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return u, nil
}

// ListUsers возвращает страницу пользователей от новых к старым.
func (s *Storage) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	const op = "storage.postgresql.ListUsers"
	query := `SELECT ` + userColumns + ` FROM users
			  ORDER BY created_at DESC, id
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	users, err := scanUsers(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// UserStats считает агрегаты для панели администратора.
func (s *Storage) UserStats(ctx context.Context) (models.UserStats, error) {
	const op = "storage.postgresql.UserStats"
	query := `SELECT
			      (SELECT COUNT(*) FROM users),
			      (SELECT COUNT(*) FROM users WHERE is_premium),
			      (SELECT COUNT(*) FROM users WHERE is_admin),
			      (SELECT COUNT(*) FROM stories),
			      (SELECT COUNT(*) FROM stories s JOIN users u ON u.id = s.user_id WHERE NOT u.is_premium)`
	var st models.UserStats
	if err := s.DB.QueryRowContext(ctx, query).Scan(
		&st.TotalUsers, &st.PremiumUsers, &st.AdminUsers, &st.TotalStories, &st.StoriesByFree,
	); err != nil {
		return models.UserStats{}, fmt.Errorf("%s: %w", op, err)
	}
	return st, nil
}

// ExpirePremium снимает premium с прошедшей датой окончания и возвращает
// затронутых пользователей. Повторный вызов ничего не меняет.
func (s *Storage) ExpirePremium(ctx context.Context, now time.Time) ([]models.User, error) {
	const op = "storage.postgresql.ExpirePremium"
	query := `UPDATE users
			  SET is_premium = FALSE, subscription_end_date = NULL
			  WHERE is_premium
			      AND subscription_end_date IS NOT NULL
			      AND subscription_end_date <= $1
			  RETURNING ` + userColumns
	rows, err := s.DB.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	users, err := scanUsers(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// PromoteAdmins выдаёт права администратора зарегистрированным
// пользователям из списка email и возвращает число изменённых строк.
func (s *Storage) PromoteAdmins(ctx context.Context, emails []string) (int64, error) {
	const op = "storage.postgresql.PromoteAdmins"
	if len(emails) == 0 {
		return 0, nil
	}
	lowered := make([]string, 0, len(emails))
	for _, e := range emails {
		lowered = append(lowered, strings.ToLower(strings.TrimSpace(e)))
	}
	res, err := s.DB.ExecContext(ctx,
		`UPDATE users SET is_admin = TRUE WHERE LOWER(email) = ANY($1) AND NOT is_admin`, lowered)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
