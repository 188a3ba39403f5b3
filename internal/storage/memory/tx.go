package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/social-stories/internal/entitlement"
	"github.com/magabrotheeeer/social-stories/internal/models"
	"github.com/magabrotheeeer/social-stories/internal/storage"
)

type tx struct {
	st               *state
	now              func() time.Time
	settingsDefaults models.AdminSettings
}

func (t *tx) UserByID(_ context.Context, id string) (models.User, error) {
	const op = "storage.memory.tx.UserByID"
	u, ok := t.st.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return u, nil
}

func (t *tx) UpdateUser(_ context.Context, id string, upd models.UserUpdate) (models.User, error) {
	const op = "storage.memory.tx.UpdateUser"
	u, ok := t.st.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	u = upd.Apply(u)
	t.st.users[id] = u
	return u, nil
}

func (t *tx) DeleteUser(_ context.Context, id string) error {
	const op = "storage.memory.tx.DeleteUser"
	if _, ok := t.st.users[id]; !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	delete(t.st.users, id)
	for sid, story := range t.st.stories {
		if story.UserID == id {
			delete(t.st.stories, sid)
		}
	}
	return nil
}

func (t *tx) ConsumeStoryQuota(_ context.Context, userID string, freeLimit int) (models.User, error) {
	const op = "storage.memory.tx.ConsumeStoryQuota"
	u, ok := t.st.users[userID]
	if !ok {
		return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if !entitlement.CanCreateStory(u, freeLimit, t.now()) {
		return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrQuotaExhausted)
	}
	u.StoriesGenerated++
	t.st.users[userID] = u
	return u, nil
}

func (t *tx) InsertStory(_ context.Context, story models.Story) (models.Story, error) {
	const op = "storage.memory.tx.InsertStory"
	if _, ok := t.st.users[story.UserID]; !ok {
		return models.Story{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if story.ID == "" {
		story.ID = uuid.NewString()
	}
	if story.CreatedAt.IsZero() {
		story.CreatedAt = t.now()
	}
	t.st.stories[story.ID] = story
	return story, nil
}

func (t *tx) AppendActivity(_ context.Context, entry models.ActivityLogEntry, retain int) error {
	t.st.activity = append(t.st.activity, entry)
	sort.SliceStable(t.st.activity, func(i, j int) bool {
		return t.st.activity[i].Timestamp.Before(t.st.activity[j].Timestamp)
	})
	pruneActivity(t.st, retain)
	return nil
}

func (t *tx) UpdateSettings(_ context.Context, upd models.SettingsUpdate) (models.AdminSettings, error) {
	var current models.AdminSettings
	if t.st.settings != nil {
		current = *t.st.settings
	} else {
		current = t.settingsDefaults
	}
	next := upd.Apply(current)
	next.UpdatedAt = t.now()
	t.st.settings = &next
	return next, nil
}
