// Package password реализует хеширование и проверку паролей на bcrypt.
//
// Hash создает bcrypt-хеш для хранения в базе, Compare проверяет введённый
// пароль штатным компаратором bcrypt (сравнение за постоянное время).
package password

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MinLength — минимальная длина пароля при регистрации и сбросе.
const MinLength = 6

// dummyHash используется, когда пользователь не найден: сравнение всё равно
// выполняется, и время ответа не выдаёт существование email.
var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("dummy-password"), bcrypt.DefaultCost)
	return h
})

// Hash принимает пароль пользователя и возвращает его bcrypt‑хэш.
func Hash(password string) (string, error) {
	const op = "password.Hash"
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// Compare сравнивает bcrypt‑хэш с введённым паролем.
//
// Возвращает nil, если пароль соответствует хэшу, иначе — ошибку.
func Compare(hash, password string) error {
	const op = "password.Compare"
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CompareDummy тратит столько же времени, сколько Compare, и всегда
// завершается неудачей.
func CompareDummy(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
}
