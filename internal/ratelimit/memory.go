package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/magabrotheeeer/social-stories/internal/models"
)

type memoryKey struct {
	identifier string
	action     string
}

// MemoryStore хранит записи в памяти процесса под одним мьютексом.
type MemoryStore struct {
	mu      sync.Mutex
	records map[memoryKey]models.RateLimitRecord
}

// NewMemoryStore создаёт пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[memoryKey]models.RateLimitRecord)}
}

// Consume применяет шаг под мьютексом.
func (s *MemoryStore) Consume(ctx context.Context, identifier, action string, apply ApplyFunc) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memoryKey{identifier: identifier, action: action}
	rec, found := s.records[key]
	if !found {
		rec = models.RateLimitRecord{Identifier: identifier, Action: action}
	}
	next, allowed := apply(rec, found)
	s.records[key] = next
	return allowed, nil
}

// Sweep удаляет записи, окно которых закончилось до now.
func (s *MemoryStore) Sweep(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for key, rec := range s.records {
		if rec.ResetAt.Before(now) {
			delete(s.records, key)
			n++
		}
	}
	return n, nil
}

// Len возвращает число хранимых записей.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
