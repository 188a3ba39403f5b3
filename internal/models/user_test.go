package models

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserUpdate_Apply(t *testing.T) {
	end := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	base := User{ID: "u-1", Name: "Ann", IsPremium: true, SubscriptionEndDate: &end, StoriesGenerated: 4}

	t.Run("empty update keeps user", func(t *testing.T) {
		upd := UserUpdate{}
		assert.True(t, upd.Empty())
		assert.Equal(t, base, upd.Apply(base))
	})

	t.Run("clear subscription end date", func(t *testing.T) {
		premium := false
		upd := UserUpdate{IsPremium: &premium, SubscriptionEndDate: &sql.NullTime{}}
		got := upd.Apply(base)

		assert.False(t, got.IsPremium)
		assert.Nil(t, got.SubscriptionEndDate)
		assert.Equal(t, 4, got.StoriesGenerated)
		assert.NotNil(t, base.SubscriptionEndDate, "source must not change")
	})

	t.Run("set subscription end date", func(t *testing.T) {
		next := end.AddDate(0, 1, 0)
		got := UserUpdate{SubscriptionEndDate: &sql.NullTime{Time: next, Valid: true}}.Apply(base)
		assert.True(t, next.Equal(*got.SubscriptionEndDate))
	})
}

func TestUser_ProfileHidesHash(t *testing.T) {
	u := User{ID: "u-1", Email: "a@b.c", PasswordHash: "$2a$10$secret"}
	p := u.Profile()
	assert.Equal(t, "u-1", p.ID)
	assert.Equal(t, "a@b.c", p.Email)
}

func TestSettingsUpdate_Apply(t *testing.T) {
	limit := 5
	maintenance := true
	upd := SettingsUpdate{FreeStoryLimit: &limit, MaintenanceMode: &maintenance}
	got := upd.Apply(AdminSettings{FreeStoryLimit: 3, EnableRegistration: true, PremiumPriceCents: 999})

	assert.False(t, upd.Empty())
	assert.Equal(t, AdminSettings{FreeStoryLimit: 5, EnableRegistration: true, MaintenanceMode: true, PremiumPriceCents: 999}, got)
}
