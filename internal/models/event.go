package models

import "time"

// Виды событий подписки, публикуемых в брокер.
const (
	SubscriptionChanged   = "subscription.changed"
	SubscriptionCancelled = "subscription.cancelled"
	SubscriptionExpired   = "subscription.expired"
)

// SubscriptionEvent — сообщение для сервиса уведомлений.
type SubscriptionEvent struct {
	UserID     string     `json:"user_id"`
	Email      string     `json:"email"`
	Kind       string     `json:"kind"`
	IsPremium  bool       `json:"is_premium"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}
