package models

import "time"

// AdminSettings — единственная запись настроек платформы.
type AdminSettings struct {
	FreeStoryLimit     int       `json:"free_story_limit"`
	EnableRegistration bool      `json:"enable_registration"`
	MaintenanceMode    bool      `json:"maintenance_mode"`
	PremiumPriceCents  int       `json:"premium_price_cents"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// DefaultPremiumPriceCents — цена premium до первой настройки администратором.
const DefaultPremiumPriceCents = 999

// DefaultAdminSettings возвращает настройки для пустого хранилища.
func DefaultAdminSettings(freeStoryLimit int) AdminSettings {
	return AdminSettings{
		FreeStoryLimit:     freeStoryLimit,
		EnableRegistration: true,
		PremiumPriceCents:  DefaultPremiumPriceCents,
	}
}

// SettingsUpdate перечисляет изменяемые поля настроек; nil — не менять.
type SettingsUpdate struct {
	FreeStoryLimit     *int  `json:"free_story_limit" validate:"omitempty,min=0,max=1000"`
	EnableRegistration *bool `json:"enable_registration"`
	MaintenanceMode    *bool `json:"maintenance_mode"`
	PremiumPriceCents  *int  `json:"premium_price_cents" validate:"omitempty,min=0"`
}

// Empty сообщает, что обновление ничего не меняет.
func (u SettingsUpdate) Empty() bool {
	return u.FreeStoryLimit == nil && u.EnableRegistration == nil &&
		u.MaintenanceMode == nil && u.PremiumPriceCents == nil
}

// Apply применяет обновление к копии настроек.
func (u SettingsUpdate) Apply(s AdminSettings) AdminSettings {
	if u.FreeStoryLimit != nil {
		s.FreeStoryLimit = *u.FreeStoryLimit
	}
	if u.EnableRegistration != nil {
		s.EnableRegistration = *u.EnableRegistration
	}
	if u.MaintenanceMode != nil {
		s.MaintenanceMode = *u.MaintenanceMode
	}
	if u.PremiumPriceCents != nil {
		s.PremiumPriceCents = *u.PremiumPriceCents
	}
	return s
}
