package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/postpilothq/postpilot/internal/models"
)

type PageRepository interface {
	Create(ctx context.Context, page *models.Page) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Page, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.Page, error)
	CheckByUserID(ctx context.Context, pageID, userID int64) (bool, error)
	Remove(ctx context.Context, id int64) error
}

type pageRepository struct {
	db *sql.DB
}

func NewPageRepository(db *sql.DB) PageRepository {
	return &pageRepository{db: db}
}

func (r *pageRepository) Create(ctx context.Context, page *models.Page) (int64, error) {
	query := `
		INSERT INTO pages (user_id, name, platform)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, page.UserID, page.Name, page.Platform).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *pageRepository) GetByID(ctx context.Context, id int64) (*models.Page, error) {
	query := `SELECT id, user_id, name, platform, created_at, updated_at FROM pages WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	var page models.Page
	err := row.Scan(&page.ID, &page.UserID, &page.Name, &page.Platform, &page.CreatedAt, &page.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &page, nil
}

func (r *pageRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Page, error) {
	query := `SELECT id, user_id, name, platform, created_at, updated_at FROM pages WHERE user_id = $1`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var pages []*models.Page
	for rows.Next() {
		var page models.Page
		err := rows.Scan(&page.ID, &page.UserID, &page.Name, &page.Platform, &page.CreatedAt, &page.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		pages = append(pages, &page)
	}
	return pages, nil
}

func (r *pageRepository) CheckByUserID(ctx context.Context, pageID, userID int64) (bool, error) {
	query := `SELECT 1 FROM pages WHERE id = $1 AND user_id = $2`

	var result int
	err := r.db.QueryRowContext(ctx, query, pageID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}
	return result == 1, nil
}

func (r *pageRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM pages WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
