// Package videoprovider — HTTP-клиент внешнего сервиса генерации видео.
package videoprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/magabrotheeeer/social-stories/internal/models"
)

// ErrNotConfigured возвращается, если адрес сервиса не задан.
var ErrNotConfigured = errors.New("video provider is not configured")

type Client struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
}

// NewClient создаёт клиент сервиса генерации видео
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		apiURL:     strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	url := c.apiURL + path
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// GenerateVideo отправляет историю на генерацию и возвращает адрес видео
func (c *Client) GenerateVideo(ctx context.Context, story models.Story) (string, error) {
	const op = "videoprovider.GenerateVideo"
	if c.apiURL == "" {
		return "", fmt.Errorf("%s: %w", op, ErrNotConfigured)
	}

	reqParams := CreateVideoRequest{StoryID: story.ID, Title: story.Title}
	for _, p := range story.Pages {
		reqParams.Pages = append(reqParams.Pages, VideoPage{Text: p.Text, ImageURL: p.ImageURL})
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/videos", reqParams)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%s: unexpected status: %s", op, resp.Status)
	}

	var videoResp CreateVideoResponse
	if err := json.NewDecoder(resp.Body).Decode(&videoResp); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if videoResp.VideoURL == "" {
		return "", fmt.Errorf("%s: empty video_url in response", op)
	}
	return videoResp.VideoURL, nil
}
