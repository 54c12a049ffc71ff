package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/postpilothq/postpilot/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.Post, error)
	ListDue(ctx context.Context, now time.Time) ([]*models.Post, error)
	UpdateStatus(ctx context.Context, status string, postID int64) error
	SetPublishOutcome(ctx context.Context, postID int64, status string, results []models.PlatformPublishResult, errMsg, linkedinPostID string) error
	CheckByUserID(ctx context.Context, postID, userID int64) (bool, error)
	Remove(ctx context.Context, id int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, page_id, content, platform_content, target_platforms, media,
	status, scheduled_for, platform_results, COALESCE(error, ''), COALESCE(linkedin_post_id, ''),
	created_at, updated_at`

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (user_id, page_id, content, platform_content, target_platforms, media, status, scheduled_for)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	platformContent, err := json.Marshal(post.PlatformContent)
	if err != nil {
		return 0, err
	}
	media, err := json.Marshal(post.Media)
	if err != nil {
		return 0, err
	}

	args := []any{
		post.UserID, post.PageID, post.Content, platformContent,
		pq.Array(post.TargetPlatforms), media, post.Status, post.ScheduledFor,
	}

	var id int64
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1 ORDER BY scheduled_for DESC`
	return r.list(ctx, query, userID)
}

// ListDue returns the publishable backlog: scheduled posts whose time has
// come.
func (r *postRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE status = $1 AND scheduled_for <= $2 ORDER BY scheduled_for`
	return r.list(ctx, query, models.PostStatusScheduled, now)
}

func (r *postRepository) list(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) UpdateStatus(ctx context.Context, status string, postID int64) error {
	query := `UPDATE posts SET status = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// SetPublishOutcome overwrites the post's publish state wholesale: status,
// the full platform_results array, the joined error text, and the legacy
// linkedin id. Last write wins; prior results are not merged.
func (r *postRepository) SetPublishOutcome(ctx context.Context, postID int64, status string, results []models.PlatformPublishResult, errMsg, linkedinPostID string) error {
	payload, err := json.Marshal(results)
	if err != nil {
		return err
	}

	query := `
		UPDATE posts
		SET status = $1,
			platform_results = $2,
			error = NULLIF($3, ''),
			linkedin_post_id = COALESCE(NULLIF($4, ''), linkedin_post_id),
			updated_at = $5
		WHERE id = $6
	`
	_, err = r.db.ExecContext(ctx, query, status, payload, errMsg, linkedinPostID, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	query := `SELECT 1 FROM posts WHERE id = $1 AND user_id = $2`

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}
	return result == 1, nil
}

func (r *postRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var post models.Post
	var platformContent, media, platformResults []byte

	err := row.Scan(&post.ID, &post.UserID, &post.PageID, &post.Content,
		&platformContent, pq.Array(&post.TargetPlatforms), &media,
		&post.Status, &post.ScheduledFor, &platformResults, &post.Error,
		&post.LinkedinPostID, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(platformContent) > 0 {
		if err := json.Unmarshal(platformContent, &post.PlatformContent); err != nil {
			return nil, err
		}
	}
	if len(media) > 0 {
		if err := json.Unmarshal(media, &post.Media); err != nil {
			return nil, err
		}
	}
	if len(platformResults) > 0 {
		if err := json.Unmarshal(platformResults, &post.PlatformResults); err != nil {
			return nil, err
		}
	}

	return &post, nil
}
