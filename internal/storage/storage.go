// Package storage описывает контракт хранилища: ошибки-сентинелы и
// транзакционные операции, которые сервисы выполняют атомарно.
// Реализации: postgresql (основная) и memory (тесты, локальный запуск).
package storage

import (
	"context"
	"errors"

	"github.com/magabrotheeeer/social-stories/internal/models"
)

var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("record not found")
	// ErrEmailExists — email уже зарегистрирован (без учёта регистра).
	ErrEmailExists = errors.New("email already exists")
	// ErrQuotaExhausted — условное списание квоты не затронуло ни одной строки.
	ErrQuotaExhausted = errors.New("story quota exhausted")
)

// Tx — операции, выполняемые внутри одной транзакции.
type Tx interface {
	// UserByID читает пользователя и блокирует строку до конца транзакции.
	UserByID(ctx context.Context, id string) (models.User, error)
	// UpdateUser применяет обновление и возвращает новое состояние.
	UpdateUser(ctx context.Context, id string, upd models.UserUpdate) (models.User, error)
	// DeleteUser удаляет пользователя вместе с его историями.
	DeleteUser(ctx context.Context, id string) error
	// ConsumeStoryQuota увеличивает счётчик историй, только если
	// пользователь premium или счётчик меньше freeLimit.
	ConsumeStoryQuota(ctx context.Context, userID string, freeLimit int) (models.User, error)
	// InsertStory сохраняет историю.
	InsertStory(ctx context.Context, story models.Story) (models.Story, error)
	// AppendActivity добавляет запись журнала и оставляет retain последних.
	AppendActivity(ctx context.Context, entry models.ActivityLogEntry, retain int) error
	// UpdateSettings меняет настройки платформы.
	UpdateSettings(ctx context.Context, upd models.SettingsUpdate) (models.AdminSettings, error)
}

// TxFunc — тело транзакции.
type TxFunc func(ctx context.Context, tx Tx) error

// Transactor запускает TxFunc: фиксирует при nil, иначе откатывает.
type Transactor interface {
	InTx(ctx context.Context, fn TxFunc) error
}
