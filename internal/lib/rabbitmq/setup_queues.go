package rabbitmq

import "github.com/magabrotheeeer/social-stories/internal/models"

// QueueConfig — очередь и ключ маршрутизации, по которому она привязана.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues возвращает очереди событий подписки для сервиса уведомлений.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notification.subscription.changed", RoutingKey: models.SubscriptionChanged},
		{QueueName: "notification.subscription.cancelled", RoutingKey: models.SubscriptionCancelled},
		{QueueName: "notification.subscription.expired", RoutingKey: models.SubscriptionExpired},
	}
}
