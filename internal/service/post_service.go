package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"path/filepath"
	"time"

	"github.com/h2non/filetype"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/transfer"
)

type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, time.Duration, error)
	PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error)
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	Remove(ctx context.Context, userID, postID int64) error
}

type postService struct {
	db    *sql.DB
	pr    repository.PostRepository
	pages repository.PageRepository
	ma    repository.MediaAssetRepository
	r2    R2Service
}

func NewPostService(
	db *sql.DB,
	pr repository.PostRepository,
	pages repository.PageRepository,
	ma repository.MediaAssetRepository,
	r2 R2Service) PostService {
	return &postService{
		db:    db,
		pr:    pr,
		pages: pages,
		ma:    ma,
		r2:    r2,
	}
}

// CreatePost persists the post and its media, returning the new id and the
// delay until its scheduled time (zero when already due).
func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, time.Duration, error) {
	scheduledFor, err := time.Parse(time.RFC3339, pc.ScheduledFor)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid scheduled time: %w", err)
	}

	var platformContent []models.PlatformContent
	if pc.PlatformContent != "" {
		if err := json.Unmarshal([]byte(pc.PlatformContent), &platformContent); err != nil {
			return 0, 0, fmt.Errorf("invalid platform content: %w", err)
		}
	}

	var targetPlatforms []string
	if pc.TargetPlatforms != "" {
		if err := json.Unmarshal([]byte(pc.TargetPlatforms), &targetPlatforms); err != nil {
			return 0, 0, fmt.Errorf("invalid target platforms: %w", err)
		}
	}

	if len(targetPlatforms) > 0 {
		if pc.PageID == 0 {
			return 0, 0, errors.New("multi-platform posts require a page")
		}
		owned, err := s.pages.CheckByUserID(ctx, pc.PageID, userID)
		if err != nil {
			return 0, 0, err
		}
		if !owned {
			return 0, 0, errors.New("page not found")
		}
	}

	media, err := s.uploadFiles(ctx, userID, files)
	if err != nil {
		return 0, 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Info(err.Error())
		return 0, 0, err
	}
	defer tx.Rollback()

	post := &models.Post{
		UserID:          userID,
		Content:         pc.Content,
		PlatformContent: platformContent,
		TargetPlatforms: targetPlatforms,
		Media:           media,
		Status:          models.PostStatusScheduled,
		ScheduledFor:    scheduledFor,
	}
	if pc.PageID != 0 {
		post.PageID = sql.NullInt64{Int64: pc.PageID, Valid: true}
	}

	postID, err := s.pr.Create(ctx, tx, post)
	if err != nil {
		return 0, 0, err
	}

	if err := tx.Commit(); err != nil {
		slog.Info(err.Error())
		return 0, 0, err
	}

	delay := time.Until(scheduledFor)
	if delay < 0 {
		delay = 0
	}
	return postID, delay, nil
}

func (s *postService) uploadFiles(ctx context.Context, userID int64, files []*multipart.FileHeader) ([]models.MediaItem, error) {
	var media []models.MediaItem
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}

		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}

		kind, _ := filetype.Match(data)
		mediaType := "image"
		if kind.MIME.Type == "video" {
			mediaType = "video"
		}

		id, err := gonanoid.New()
		if err != nil {
			return nil, err
		}
		key := id + filepath.Ext(header.Filename)

		url, err := s.r2.Upload(ctx, key, data, kind.MIME.Value)
		if err != nil {
			return nil, err
		}

		_, err = s.ma.Create(ctx, nil, &models.MediaAsset{
			UserID:   userID,
			FileName: header.Filename,
			FileType: kind.MIME.Value,
			FileSize: header.Size,
			FileURL:  url,
		})
		if err != nil {
			return nil, err
		}

		media = append(media, models.MediaItem{URL: url, Type: mediaType})
	}
	return media, nil
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error) {
	owned, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, errors.New("post not found")
	}
	return s.pr.GetByID(ctx, postID)
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	return s.pr.ListByUserID(ctx, userID)
}

func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	owned, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return err
	}
	if !owned {
		return errors.New("post not found")
	}
	return s.pr.Remove(ctx, postID)
}
