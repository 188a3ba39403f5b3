package models

import "time"

// Page — страница социальной истории: текст и иллюстрация.
type Page struct {
	Text     string `json:"text" validate:"required,max=2000"`
	ImageURL string `json:"image_url,omitempty" validate:"omitempty,url"`
}

// Story — сохранённая социальная история пользователя.
type Story struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Content   string    `json:"content"`
	Pages     []Page    `json:"pages"`
	VideoURL  *string   `json:"video_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewStory — входные данные создания истории. Текст и иллюстрации уже
// сгенерированы внешним сервисом.
type NewStory struct {
	Title    string `json:"title" validate:"required,min=1,max=200"`
	Category string `json:"category" validate:"max=64"`
	Content  string `json:"content" validate:"required,max=20000"`
	Pages    []Page `json:"pages" validate:"max=30,dive"`
}
