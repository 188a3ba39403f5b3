package models

import "time"

// RateLimitRecord — счётчик попыток действия для идентификатора в текущем окне.
type RateLimitRecord struct {
	Identifier string
	Action     string
	Count      int
	ResetAt    time.Time
}
