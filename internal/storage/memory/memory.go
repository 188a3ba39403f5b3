// Package memory — хранилище в памяти процесса. Транзакция работает на
// копии состояния и подменяет его только при успехе, поэтому откат
// ничего не оставляет. Используется в тестах и при storage_driver: memory.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/social-stories/internal/entitlement"
	"github.com/magabrotheeeer/social-stories/internal/models"
	"github.com/magabrotheeeer/social-stories/internal/storage"
)

type state struct {
	users    map[string]models.User
	stories  map[string]models.Story
	activity []models.ActivityLogEntry // по возрастанию времени
	settings *models.AdminSettings
}

func (s *state) clone() *state {
	c := &state{
		users:    maps.Clone(s.users),
		stories:  maps.Clone(s.stories),
		activity: slices.Clone(s.activity),
	}
	if s.settings != nil {
		st := *s.settings
		c.settings = &st
	}
	return c
}

// Storage хранит всё состояние под одним мьютексом.
type Storage struct {
	mu               sync.Mutex
	st               *state
	now              func() time.Time
	settingsDefaults models.AdminSettings
}

// New создаёт пустое хранилище без строки настроек.
func New() *Storage {
	return &Storage{
		st: &state{
			users:   make(map[string]models.User),
			stories: make(map[string]models.Story),
		},
		now:              time.Now,
		settingsDefaults: models.DefaultAdminSettings(entitlement.DefaultFreeStoryLimit),
	}
}

// InTx выполняет fn на копии состояния.
func (s *Storage) InTx(ctx context.Context, fn storage.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(ctx, &tx{st: work, now: s.now, settingsDefaults: s.settingsDefaults}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// CreateUser сохраняет нового пользователя.
func (s *Storage) CreateUser(_ context.Context, u models.User) (models.User, error) {
	const op = "storage.memory.CreateUser"
	s.mu.Lock()
	defer s.mu.Unlock()

	u.Email = strings.ToLower(u.Email)
	for _, existing := range s.st.users {
		if existing.Email == u.Email {
			return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrEmailExists)
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	s.st.users[u.ID] = u
	return u, nil
}

// UserByID возвращает пользователя по идентификатору.
func (s *Storage) UserByID(_ context.Context, id string) (models.User, error) {
	const op = "storage.memory.UserByID"
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.st.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return u, nil
}

// UserByEmail ищет пользователя без учёта регистра.
func (s *Storage) UserByEmail(_ context.Context, email string) (models.User, error) {
	const op = "storage.memory.UserByEmail"
	s.mu.Lock()
	defer s.mu.Unlock()

	email = strings.ToLower(email)
	for _, u := range s.st.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
}

// ListUsers возвращает пользователей от новых к старым.
func (s *Storage) ListUsers(_ context.Context, limit, offset int) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := slices.Collect(maps.Values(s.st.users))
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return page(users, limit, offset), nil
}

// UserStats считает агрегаты по пользователям и историям.
func (s *Storage) UserStats(_ context.Context) (models.UserStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st models.UserStats
	for _, u := range s.st.users {
		st.TotalUsers++
		if u.IsPremium {
			st.PremiumUsers++
		}
		if u.IsAdmin {
			st.AdminUsers++
		}
	}
	for _, story := range s.st.stories {
		st.TotalStories++
		if !s.st.users[story.UserID].IsPremium {
			st.StoriesByFree++
		}
	}
	return st, nil
}

// ListStories возвращает истории пользователя от новых к старым.
func (s *Storage) ListStories(_ context.Context, userID string, limit, offset int) ([]models.Story, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stories []models.Story
	for _, story := range s.st.stories {
		if story.UserID == userID {
			stories = append(stories, story)
		}
	}
	sort.Slice(stories, func(i, j int) bool {
		if stories[i].CreatedAt.Equal(stories[j].CreatedAt) {
			return stories[i].ID > stories[j].ID
		}
		return stories[i].CreatedAt.After(stories[j].CreatedAt)
	})
	return page(stories, limit, offset), nil
}

// StoryByID возвращает историю по идентификатору.
func (s *Storage) StoryByID(_ context.Context, id string) (models.Story, error) {
	const op = "storage.memory.StoryByID"
	s.mu.Lock()
	defer s.mu.Unlock()

	story, ok := s.st.stories[id]
	if !ok {
		return models.Story{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return story, nil
}

// DeleteStory удаляет историю владельца.
func (s *Storage) DeleteStory(_ context.Context, id, userID string) error {
	const op = "storage.memory.DeleteStory"
	s.mu.Lock()
	defer s.mu.Unlock()

	story, ok := s.st.stories[id]
	if !ok || story.UserID != userID {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	delete(s.st.stories, id)
	return nil
}

// SetStoryVideo сохраняет ссылку на видео истории владельца.
func (s *Storage) SetStoryVideo(_ context.Context, id, userID, videoURL string) error {
	const op = "storage.memory.SetStoryVideo"
	s.mu.Lock()
	defer s.mu.Unlock()

	story, ok := s.st.stories[id]
	if !ok || story.UserID != userID {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	story.VideoURL = &videoURL
	s.st.stories[id] = story
	return nil
}

// RecentActivity возвращает до limit последних записей, новые первыми.
func (s *Storage) RecentActivity(_ context.Context, limit int) ([]models.ActivityLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.st.activity)
	out := make([]models.ActivityLogEntry, 0, min(limit, n))
	for i := n - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.st.activity[i])
	}
	return out, nil
}

// PruneActivity оставляет retain последних записей.
func (s *Storage) PruneActivity(_ context.Context, retain int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pruneActivity(s.st, retain), nil
}

// Settings возвращает настройки; storage.ErrNotFound, если строки нет.
func (s *Storage) Settings(_ context.Context) (models.AdminSettings, error) {
	const op = "storage.memory.Settings"
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.st.settings == nil {
		return models.AdminSettings{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return *s.st.settings, nil
}

// EnsureSettings создаёт настройки из defaults, если их ещё нет, и
// запоминает defaults для UpdateSettings.
func (s *Storage) EnsureSettings(_ context.Context, defaults models.AdminSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settingsDefaults = defaults
	if s.st.settings == nil {
		st := defaults
		st.UpdatedAt = s.now()
		s.st.settings = &st
	}
	return nil
}

// SeedSettings перезаписывает строку настроек.
func (s *Storage) SeedSettings(settings models.AdminSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.settings = &settings
}

// ExpirePremium снимает premium у пользователей с прошедшей датой окончания.
func (s *Storage) ExpirePremium(_ context.Context, now time.Time) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []models.User
	for id, u := range s.st.users {
		if entitlement.Expired(u, now) {
			u = entitlement.RevokePremium(u)
			s.st.users[id] = u
			expired = append(expired, u)
		}
	}
	return expired, nil
}

// PromoteAdmins выдаёт права администратора пользователям из списка email.
func (s *Storage) PromoteAdmins(_ context.Context, emails []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		wanted[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}
	var n int64
	for id, u := range s.st.users {
		if _, ok := wanted[u.Email]; ok && !u.IsAdmin {
			u.IsAdmin = true
			s.st.users[id] = u
			n++
		}
	}
	return n, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func pruneActivity(st *state, retain int) int64 {
	extra := len(st.activity) - retain
	if extra <= 0 {
		return 0
	}
	st.activity = slices.Clone(st.activity[extra:])
	return int64(extra)
}
