package models

import "time"

// ActivityLogEntry — неизменяемая запись журнала административных действий.
type ActivityLogEntry struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Action      string    `json:"action"`
	ActorUserID string    `json:"actor_user_id"`
	Details     string    `json:"details"`
}
