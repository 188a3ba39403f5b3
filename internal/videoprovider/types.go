package videoprovider

// Запрос на генерацию видео по страницам истории
type CreateVideoRequest struct {
	StoryID string      `json:"story_id"`
	Title   string      `json:"title"`
	Pages   []VideoPage `json:"pages"`
}

// VideoPage — кадр будущего видео
type VideoPage struct {
	Text     string `json:"text"`
	ImageURL string `json:"image_url,omitempty"`
}

// Ответ сервиса генерации
type CreateVideoResponse struct {
	VideoURL string `json:"video_url"`
}
