package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/magabrotheeeer/social-stories/internal/models"
	"github.com/magabrotheeeer/social-stories/internal/storage"
)

const storyColumns = `id, user_id, title, category, content, pages, video_url, created_at`

func scanStory(row rowScanner) (models.Story, error) {
	var st models.Story
	var pages []byte
	var videoURL sql.NullString
	if err := row.Scan(&st.ID, &st.UserID, &st.Title, &st.Category, &st.Content,
		&pages, &videoURL, &st.CreatedAt); err != nil {
		return models.Story{}, err
	}
	if err := json.Unmarshal(pages, &st.Pages); err != nil {
		return models.Story{}, fmt.Errorf("decode pages: %w", err)
	}
	if videoURL.Valid {
		v := videoURL.String
		st.VideoURL = &v
	}
	return st, nil
}

func insertStory(ctx context.Context, q DBTX, st models.Story) (models.Story, error) {
	pages := st.Pages
	if pages == nil {
		pages = []models.Page{}
	}
	encoded, err := json.Marshal(pages)
	if err != nil {
		return models.Story{}, fmt.Errorf("encode pages: %w", err)
	}
	query := `INSERT INTO stories (user_id, title, category, content, pages)
			  VALUES ($1, $2, $3, $4, $5::jsonb)
			  RETURNING ` + storyColumns
	return scanStory(q.QueryRowContext(ctx, query, st.UserID, st.Title, st.Category, st.Content, string(encoded)))
}

// ListStories возвращает страницу историй пользователя от новых к старым.
func (s *Storage) ListStories(ctx context.Context, userID string, limit, offset int) ([]models.Story, error) {
	const op = "storage.postgresql.ListStories"
	query := `SELECT ` + storyColumns + ` FROM stories
			  WHERE user_id = $1
			  ORDER BY created_at DESC, id DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	defer func() {
		_ = rows.Close()
	}()

	stories := []models.Story{}
	for rows.Next() {
		st, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		stories = append(stories, st)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return stories, nil
}

// StoryByID возвращает историю по идентификатору.
func (s *Storage) StoryByID(ctx context.Context, id string) (models.Story, error) {
	const op = "storage.postgresql.StoryByID"
	query := `SELECT ` + storyColumns + ` FROM stories WHERE id = $1`
	st, err := scanStory(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return models.Story{}, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return st, nil
}

// DeleteStory удаляет историю, только если она принадлежит userID.
func (s *Storage) DeleteStory(ctx context.Context, id, userID string) error {
	const op = "storage.postgresql.DeleteStory"
	res, err := s.DB.ExecContext(ctx, `DELETE FROM stories WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return requireAffected(op, res)
}

// SetStoryVideo сохраняет ссылку на видео истории владельца.
func (s *Storage) SetStoryVideo(ctx context.Context, id, userID, videoURL string) error {
	const op = "storage.postgresql.SetStoryVideo"
	res, err := s.DB.ExecContext(ctx,
		`UPDATE stories SET video_url = $3 WHERE id = $1 AND user_id = $2`, id, userID, videoURL)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return requireAffected(op, res)
}

func requireAffected(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return nil
}
