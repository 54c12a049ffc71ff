package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/postpilothq/postpilot/internal/metrics"
	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/platform"
)

// MaxRetries bounds retries of transient platform failures. A platform is
// attempted at most 1+MaxRetries times.
const MaxRetries = 3

// backoffSchedule is the fixed delay before retry n (0-based). Attempts past
// the schedule reuse the last delay.
var backoffSchedule = []time.Duration{5 * time.Second, 15 * time.Second, 30 * time.Second}

func backoffDelay(retry int) time.Duration {
	if retry >= len(backoffSchedule) {
		return backoffSchedule[len(backoffSchedule)-1]
	}
	return backoffSchedule[retry]
}

// MultiPlatformOutcome is the merged result of publishing one post to its
// target platform set.
type MultiPlatformOutcome struct {
	Status         string
	Results        []models.PlatformPublishResult
	Error          string
	LinkedinPostID string
}

type PublishService interface {
	PublishToAllPlatforms(ctx context.Context, post *models.Post, conns map[string]*models.PlatformConnection) *MultiPlatformOutcome
}

type publishService struct {
	registry *platform.Registry
	tokens   TokenService
	sleep    func(time.Duration)
}

func NewPublishService(registry *platform.Registry, tokens TokenService) PublishService {
	return &publishService{
		registry: registry,
		tokens:   tokens,
		sleep:    time.Sleep,
	}
}

// PublishToAllPlatforms runs the per-platform publish for every target
// platform sequentially and merges the results into a post status. Platforms
// are never published in parallel: concurrent calls against the same platform
// API across posts would multiply rate-limit pressure.
func (s *publishService) PublishToAllPlatforms(ctx context.Context, post *models.Post, conns map[string]*models.PlatformConnection) *MultiPlatformOutcome {
	outcome := &MultiPlatformOutcome{
		Results: make([]models.PlatformPublishResult, 0, len(post.TargetPlatforms)),
	}

	published := 0
	var failures []string
	for _, target := range post.TargetPlatforms {
		content := post.ContentFor(target)
		result := s.publishToPlatform(ctx, post, target, content, conns[target])
		outcome.Results = append(outcome.Results, result)

		metrics.PublishResults.WithLabelValues(target, result.Status).Inc()

		switch result.Status {
		case models.ResultStatusPublished:
			published++
			if target == "linkedin" {
				outcome.LinkedinPostID = result.PostID
			}
		case models.ResultStatusFailed:
			failures = append(failures, fmt.Sprintf("%s: %s", target, result.Error))
		}
	}

	switch {
	case published == len(post.TargetPlatforms):
		outcome.Status = models.PostStatusPublished
	case published > 0:
		outcome.Status = models.PostStatusPartiallyPublished
	default:
		outcome.Status = models.PostStatusFailed
	}
	outcome.Error = strings.Join(failures, "; ")

	return outcome
}

// publishToPlatform performs one platform's publish with bounded retry.
// Missing connection or adapter yields a skipped result ("not configured"),
// credential failure yields failed without retry, transient failures are
// retried with fixed backoff until MaxRetries is exhausted.
func (s *publishService) publishToPlatform(ctx context.Context, post *models.Post, platformName, content string, conn *models.PlatformConnection) models.PlatformPublishResult {
	result := models.PlatformPublishResult{Platform: platformName}

	if conn == nil {
		result.Status = models.ResultStatusSkipped
		result.Error = fmt.Sprintf("No %s connection found", platformName)
		return result
	}

	adapter, haveAdapter := s.registry.Get(platformName)
	var refresher platform.TokenRefresher
	if haveAdapter {
		refresher, _ = adapter.(platform.TokenRefresher)
	}

	if err := s.tokens.EnsureFresh(ctx, post.PageID.Int64, conn, refresher); err != nil {
		result.Status = models.ResultStatusFailed
		result.Error = err.Error()
		return result
	}

	if !haveAdapter {
		result.Status = models.ResultStatusSkipped
		result.Error = fmt.Sprintf("No %s adapter available", platformName)
		return result
	}

	retryCount := 0
	for {
		adapted := adapter.AdaptContent(content, platform.ContentOptions{})
		media := s.uploadMedia(ctx, post, adapter, conn)

		metrics.PublishAttempts.WithLabelValues(platformName).Inc()
		published, err := adapter.Publish(ctx, conn, adapted, media)
		if err == nil {
			now := time.Now()
			result.Status = models.ResultStatusPublished
			result.PostID = published.PostID
			result.PostURL = published.PostURL
			result.PublishedAt = &now
			result.RetryCount = retryCount
			return result
		}

		if platform.Retryable(err) && retryCount < MaxRetries {
			delay := backoffDelay(retryCount)
			slog.Info("transient publish failure, retrying",
				"platform", platformName, "post_id", post.ID, "retry", retryCount+1, "delay", delay.String())
			s.sleep(delay)
			retryCount++
			continue
		}

		result.Status = models.ResultStatusFailed
		result.Error = err.Error()
		result.RetryCount = retryCount
		return result
	}
}

// uploadMedia pushes the post's media through the adapter when it supports
// uploads. A single item's failure drops that item and keeps going; the
// platform attempt itself is never aborted by media.
func (s *publishService) uploadMedia(ctx context.Context, post *models.Post, adapter platform.Adapter, conn *models.PlatformConnection) []platform.MediaUpload {
	if len(post.Media) == 0 {
		return nil
	}
	uploader, ok := adapter.(platform.MediaUploader)
	if !ok {
		return nil
	}

	uploads := make([]platform.MediaUpload, 0, len(post.Media))
	for _, item := range post.Media {
		up, err := uploader.UploadMedia(ctx, conn, item.URL, item.Type)
		if err != nil {
			slog.Info("media upload failed, skipping item",
				"platform", adapter.Platform(), "post_id", post.ID, "url", item.URL, "error", err.Error())
			continue
		}
		uploads = append(uploads, *up)
	}
	return uploads
}
