// Package models содержит доменные структуры: пользователя с полями
// тарифа и квоты, истории, записи лимитера попыток, журнала действий
// и настроек платформы.
package models

import (
	"database/sql"
	"time"
)

// User представляет зарегистрированного пользователя системы.
type User struct {
	ID                  string     // Стабильный идентификатор (UUID)
	Email               string     // Электронная почта в нижнем регистре
	Name                string     // Отображаемое имя
	PasswordHash        string     // Хэш пароля, наружу не отдаётся
	IsPremium           bool       // Безлимитная генерация историй
	IsAdmin             bool       // Доступ к административным операциям
	StoriesGenerated    int        // Счётчик созданных историй
	SubscriptionEndDate *time.Time // Дата окончания оплаченной подписки
	CreatedAt           time.Time
}

// Profile — публичное представление пользователя для ответов API.
type Profile struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	Name                string     `json:"name"`
	IsPremium           bool       `json:"is_premium"`
	IsAdmin             bool       `json:"is_admin"`
	StoriesGenerated    int        `json:"stories_generated"`
	SubscriptionEndDate *time.Time `json:"subscription_end_date,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

// Profile возвращает представление пользователя без хэша пароля.
func (u User) Profile() Profile {
	return Profile{
		ID:                  u.ID,
		Email:               u.Email,
		Name:                u.Name,
		IsPremium:           u.IsPremium,
		IsAdmin:             u.IsAdmin,
		StoriesGenerated:    u.StoriesGenerated,
		SubscriptionEndDate: u.SubscriptionEndDate,
		CreatedAt:           u.CreatedAt,
	}
}

// UserUpdate перечисляет все изменяемые поля пользователя.
// nil означает "не менять". SubscriptionEndDate с Valid=false очищает дату.
type UserUpdate struct {
	Name                *string
	PasswordHash        *string
	IsPremium           *bool
	IsAdmin             *bool
	StoriesGenerated    *int
	SubscriptionEndDate *sql.NullTime
}

// Empty сообщает, что обновление ничего не меняет.
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.PasswordHash == nil && u.IsPremium == nil &&
		u.IsAdmin == nil && u.StoriesGenerated == nil && u.SubscriptionEndDate == nil
}

// Apply применяет обновление к копии пользователя.
func (u UserUpdate) Apply(user User) User {
	if u.Name != nil {
		user.Name = *u.Name
	}
	if u.PasswordHash != nil {
		user.PasswordHash = *u.PasswordHash
	}
	if u.IsPremium != nil {
		user.IsPremium = *u.IsPremium
	}
	if u.IsAdmin != nil {
		user.IsAdmin = *u.IsAdmin
	}
	if u.StoriesGenerated != nil {
		user.StoriesGenerated = *u.StoriesGenerated
	}
	if u.SubscriptionEndDate != nil {
		if u.SubscriptionEndDate.Valid {
			t := u.SubscriptionEndDate.Time
			user.SubscriptionEndDate = &t
		} else {
			user.SubscriptionEndDate = nil
		}
	}
	return user
}

// UserStats — агрегаты для панели администратора.
type UserStats struct {
	TotalUsers    int `json:"total_users"`
	PremiumUsers  int `json:"premium_users"`
	AdminUsers    int `json:"admin_users"`
	TotalStories  int `json:"total_stories"`
	StoriesByFree int `json:"stories_by_free_users"`
}
