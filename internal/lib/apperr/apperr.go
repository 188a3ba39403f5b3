// Package apperr определяет стабильные категории ошибок, которые сервисы
// возвращают наружу. Ошибки хранилища и драйверов переводятся в эти категории
// на границе сервисов и не доходят до клиента.
package apperr

import (
	"errors"
	"time"
)

// Kind — категория ошибки, по которой транспорт выбирает статус ответа.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindInvalidCredentials
	KindValidation
	KindQuotaExceeded
	KindPremiumRequired
	KindRateLimited
	KindNotFound
	KindConflict
	KindRegistrationClosed
	KindMaintenance
	KindUpstream
)

// Error — ошибка с категорией и сообщением для пользователя.
type Error struct {
	kind       Kind
	msg        string
	retryAfter time.Duration
	category   bool // сентинел совпадает с любой ошибкой своей категории
}

func (e *Error) Error() string {
	if e.msg == "" {
		return "validation error"
	}
	return e.msg
}

// Kind возвращает категорию ошибки.
func (e *Error) Kind() Kind { return e.kind }

// RetryAfter возвращает рекомендуемую паузу для KindRateLimited (0 — неизвестна).
func (e *Error) RetryAfter() time.Duration { return e.retryAfter }

// Is сравнивает по категории и сообщению. Категорийные сентинелы
// (ErrValidation, ErrNotFound) совпадают с любой ошибкой своей категории.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.kind != e.kind {
		return false
	}
	return t.category || t.msg == e.msg
}

var (
	// ErrUnauthorized одинаков для отсутствующего, просроченного, поддельного
	// токена и для недостаточной роли.
	ErrUnauthorized         = &Error{kind: KindUnauthorized, msg: "unauthorized"}
	ErrInvalidCredentials   = &Error{kind: KindInvalidCredentials, msg: "invalid credentials"}
	ErrValidation           = &Error{kind: KindValidation, category: true}
	ErrInvalidMonths        = &Error{kind: KindValidation, msg: "months must be between 1 and 12"}
	ErrSelfAction           = &Error{kind: KindValidation, msg: "admins cannot perform this action on their own account"}
	ErrQuotaExceeded        = &Error{kind: KindQuotaExceeded, msg: "free story limit reached, upgrade to premium to create more stories"}
	ErrPremiumRequired      = &Error{kind: KindPremiumRequired, msg: "this feature requires a premium subscription"}
	ErrRateLimited          = &Error{kind: KindRateLimited, msg: "too many attempts, please try again later"}
	ErrNotFound             = &Error{kind: KindNotFound, msg: "not found", category: true}
	ErrEmailExists          = &Error{kind: KindConflict, msg: "email already registered"}
	ErrRegistrationDisabled = &Error{kind: KindRegistrationClosed, msg: "registration is currently disabled"}
	ErrMaintenance          = &Error{kind: KindMaintenance, msg: "service is under maintenance"}
	ErrUpstream             = &Error{kind: KindUpstream, msg: "upstream service failed"}
)

// Validation создаёт ошибку валидации с конкретным сообщением.
func Validation(msg string) error {
	return &Error{kind: KindValidation, msg: msg}
}

// NotFound создаёт ошибку "не найдено" с уточнением объекта.
func NotFound(what string) error {
	return &Error{kind: KindNotFound, msg: what + " not found"}
}

// RateLimited создаёт ErrRateLimited с подсказкой о паузе.
func RateLimited(retryAfter time.Duration) error {
	if retryAfter < 0 {
		retryAfter = 0
	}
	return &Error{kind: KindRateLimited, msg: ErrRateLimited.msg, retryAfter: retryAfter}
}

// KindOf возвращает категорию ошибки; всё неизвестное считается внутренней.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindInternal
}

// Public возвращает сообщение, которое можно показать клиенту.
func Public(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return "internal error"
}
