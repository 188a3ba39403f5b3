// Package credentials объединяет хэширование паролей и выпуск токенов
// доступа. Любая ошибка проверки токена сводится к nil, чтобы вызывающий
// код не мог различить причины отказа.
package credentials

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/magabrotheeeer/social-stories/internal/lib/jwt"
	"github.com/magabrotheeeer/social-stories/internal/lib/password"
)

// Store выпускает и проверяет учётные данные пользователей.
type Store struct {
	tokens jwt.Maker
}

// New создаёт Store поверх готового jwt.Maker.
func New(tokens jwt.Maker) *Store {
	return &Store{tokens: tokens}
}

// HashPassword возвращает bcrypt-хэш пароля.
func (s *Store) HashPassword(plain string) (string, error) {
	return password.Hash(plain)
}

// VerifyPassword сравнивает пароль с сохранённым хэшем.
func (s *Store) VerifyPassword(plain, hash string) bool {
	return password.Compare(hash, plain) == nil
}

// VerifyDummy выполняет холостое сравнение для неизвестного пользователя.
func (s *Store) VerifyDummy(plain string) {
	password.CompareDummy(plain)
}

// IssueToken подписывает токен для пользователя.
func (s *Store) IssueToken(userID, email string, isAdmin bool) (string, error) {
	const op = "credentials.IssueToken"
	token, err := s.tokens.GenerateToken(userID, email, isAdmin)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

// VerifyToken возвращает claims валидного токена или nil.
func (s *Store) VerifyToken(token string) *jwt.CustomClaims {
	if token == "" {
		return nil
	}
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return nil
	}
	return claims
}

// EphemeralSecret генерирует случайный секрет на время жизни процесса.
func EphemeralSecret() (string, error) {
	const op = "credentials.EphemeralSecret"
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return hex.EncodeToString(buf), nil
}
