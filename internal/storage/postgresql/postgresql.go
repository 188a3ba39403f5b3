// Package postgresql реализует хранилище на PostgreSQL через database/sql
// и драйвер pgx. Операции, требующие атомарности (списание квоты, запись
// журнала, лимитер), выполняются в транзакциях с блокировками строк.
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/magabrotheeeer/social-stories/internal/entitlement"
	"github.com/magabrotheeeer/social-stories/internal/models"
	"github.com/magabrotheeeer/social-stories/internal/storage"
)

// DBTX — общее подмножество *sql.DB и *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Storage инкапсулирует соединение с PostgreSQL.
type Storage struct {
	DB *sql.DB

	// Значения для строки настроек, если её ещё нет.
	settingsDefaults models.AdminSettings
}

// New открывает пул соединений и проверяет доступность базы.
func New(ctx context.Context, storageConnectionString string) (*Storage, error) {
	const op = "storage.postgresql.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB:               db,
		settingsDefaults: models.DefaultAdminSettings(entitlement.DefaultFreeStoryLimit),
	}, nil
}

// Close закрывает пул соединений.
func (s *Storage) Close() error {
	return s.DB.Close()
}

// Ping проверяет соединение.
func (s *Storage) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

// InTx открывает транзакцию, выполняет fn и фиксирует её при успехе.
// При ошибке или панике транзакция откатывается, паника пробрасывается.
func (s *Storage) InTx(ctx context.Context, fn storage.TxFunc) error {
	return withTx(ctx, s.DB, func(ctx context.Context, sqlTx *sql.Tx) error {
		return fn(ctx, &tx{q: sqlTx, settingsDefaults: s.settingsDefaults})
	})
}

func withTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx *sql.Tx) error) (err error) {
	const op = "storage.postgresql.withTx"

	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = sqlTx.Rollback()
			return
		}
		if cerr := sqlTx.Commit(); cerr != nil {
			err = fmt.Errorf("%s: %w", op, cerr)
		}
	}()

	return fn(ctx, sqlTx)
}

// mapErr переводит ошибки драйвера в сентинелы storage.
func mapErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return storage.ErrEmailExists
		case pgerrcode.InvalidTextRepresentation:
			// Некорректный UUID не может принадлежать ни одной записи.
			return storage.ErrNotFound
		}
	}
	return err
}
