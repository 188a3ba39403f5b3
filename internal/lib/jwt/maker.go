// Package jwt реализует генерацию и парсинг JWT токенов сессии.
//
// Maker описывает контракт создания и проверки токенов, MakerImpl —
// реализацию на HS256 с секретным ключом, издателем (iss) и сроком жизни.
package jwt

import (
	"time"
)

// DefaultTTL — срок жизни токена сессии по умолчанию.
const DefaultTTL = 7 * 24 * time.Hour

// Maker описывает интерфейс для генерации и парсинга JWT токенов.
type Maker interface {
	// GenerateToken подписывает токен с идентификатором, email и флагом администратора.
	GenerateToken(userID, email string, isAdmin bool) (string, error)
	// ParseToken проверяет подпись, издателя и срок действия и возвращает claims.
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl реализует интерфейс Maker.
type MakerImpl struct {
	secretKey []byte        // Секретный ключ для подписи токенов.
	issuer    string        // Значение claim iss.
	tokenTTL  time.Duration // Время жизни токена.
	now       func() time.Time
}

// NewJWTMaker создаёт MakerImpl. Нулевой ttl заменяется на DefaultTTL.
func NewJWTMaker(secretKey, issuer string, ttl time.Duration) *MakerImpl {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &MakerImpl{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		tokenTTL:  ttl,
		now:       time.Now,
	}
}
