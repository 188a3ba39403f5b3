// Package entitlement содержит чистые решения о квоте и подписке:
// может ли пользователь создать историю или видео, и как меняется
// пользователь при выдаче и отзыве premium.
package entitlement

import (
	"time"

	"github.com/magabrotheeeer/social-stories/internal/lib/apperr"
	"github.com/magabrotheeeer/social-stories/internal/lib/month"
	"github.com/magabrotheeeer/social-stories/internal/models"
)

// DefaultFreeStoryLimit — лимит бесплатных историй, если настройки не заданы.
const DefaultFreeStoryLimit = 3

// Границы срока продления подписки в месяцах.
const (
	MinGrantMonths = 1
	MaxGrantMonths = 12
)

// PremiumActive сообщает, что premium действует на момент now.
// Истёкший premium не даёт привилегий, даже если флаг ещё не снят.
func PremiumActive(u models.User, now time.Time) bool {
	return u.IsPremium && !Expired(u, now)
}

// CanCreateStory сообщает, может ли пользователь создать ещё одну историю.
func CanCreateStory(u models.User, freeLimit int, now time.Time) bool {
	return PremiumActive(u, now) || u.StoriesGenerated < freeLimit
}

// CanGenerateVideo сообщает, доступна ли пользователю генерация видео.
func CanGenerateVideo(u models.User, now time.Time) bool {
	return PremiumActive(u, now)
}

// RemainingFreeStories возвращает остаток бесплатной квоты; для premium -1.
func RemainingFreeStories(u models.User, freeLimit int, now time.Time) int {
	if PremiumActive(u, now) {
		return -1
	}
	return max(freeLimit-u.StoriesGenerated, 0)
}

// ValidateMonths проверяет срок продления.
func ValidateMonths(months int) error {
	if months < MinGrantMonths || months > MaxGrantMonths {
		return apperr.ErrInvalidMonths
	}
	return nil
}

// HasActiveSubscription сообщает, что оплаченный период ещё не закончился.
func HasActiveSubscription(u models.User, now time.Time) bool {
	return u.SubscriptionEndDate != nil && u.SubscriptionEndDate.After(now)
}

// GrantPremium вычисляет новую дату окончания. Активная подписка
// продлевается от своей даты окончания, иначе отсчёт идёт от now.
func GrantPremium(u models.User, months int, now time.Time) time.Time {
	base := now
	if HasActiveSubscription(u, now) {
		base = *u.SubscriptionEndDate
	}
	return month.Add(base, months)
}

// ApplyGrant возвращает пользователя с premium и новой датой окончания.
func ApplyGrant(u models.User, months int, now time.Time) models.User {
	end := GrantPremium(u, months, now)
	u.IsPremium = true
	u.SubscriptionEndDate = &end
	return u
}

// RevokePremium снимает premium и дату окончания. Счётчик историй не меняется.
func RevokePremium(u models.User) models.User {
	u.IsPremium = false
	u.SubscriptionEndDate = nil
	return u
}

// Expired сообщает, что premium держится на уже прошедшей дате окончания.
// Premium без даты (выдан вручную) не истекает.
func Expired(u models.User, now time.Time) bool {
	return u.IsPremium && u.SubscriptionEndDate != nil && !u.SubscriptionEndDate.After(now)
}
