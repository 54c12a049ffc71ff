package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/postpilothq/postpilot/internal/metrics"
	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/service"
	"github.com/postpilothq/postpilot/pkg/utils"
)

const PublishLockName = "publish"

// RunSummary is the trigger endpoint's response body for one job execution.
type RunSummary struct {
	RunID     string        `json:"run_id"`
	Skipped   bool          `json:"skipped,omitempty"`
	Processed int           `json:"processed"`
	Results   []PostOutcome `json:"results"`
}

type PostOutcome struct {
	PostID          int64                          `json:"post_id"`
	Status          string                         `json:"status"`
	PlatformResults []models.PlatformPublishResult `json:"platform_results,omitempty"`
	Error           string                         `json:"error,omitempty"`
}

// PublishJob owns one execution of the publish job: acquire the lock, drain
// due posts sequentially, release the lock. Concurrent triggers from
// overlapping cron fires are expected; the loser of the lock race skips.
type PublishJob struct {
	locks     repository.LockRepository
	posts     repository.PostRepository
	pages     repository.PageRepository
	users     repository.UserRepository
	conns     repository.ConnectionRepository
	publisher service.PublishService
	legacy    service.LinkedinService
	secretKey string
	lockTTL   time.Duration
	now       func() time.Time
}

func NewPublishJob(
	locks repository.LockRepository,
	posts repository.PostRepository,
	pages repository.PageRepository,
	users repository.UserRepository,
	conns repository.ConnectionRepository,
	publisher service.PublishService,
	legacy service.LinkedinService,
	secretKey string,
	lockTTL time.Duration) *PublishJob {
	return &PublishJob{
		locks:     locks,
		posts:     posts,
		pages:     pages,
		users:     users,
		conns:     conns,
		publisher: publisher,
		legacy:    legacy,
		secretKey: secretKey,
		lockTTL:   lockTTL,
		now:       time.Now,
	}
}

// Run executes one batch. A lock-store error aborts before any publishing; a
// held lock returns a skipped summary, which is a normal outcome rather than
// an error. One post's failure never aborts its siblings.
func (j *PublishJob) Run(ctx context.Context) (*RunSummary, error) {
	owner := uuid.NewString()
	started := j.now()

	acquired, err := j.locks.Acquire(ctx, PublishLockName, owner, j.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire publish lock: %w", err)
	}
	if !acquired {
		metrics.RunsSkipped.Inc()
		return &RunSummary{RunID: owner, Skipped: true}, nil
	}
	defer func() {
		// Best-effort: an unreleased lock self-expires after the TTL.
		if err := j.locks.Release(context.WithoutCancel(ctx), PublishLockName, owner); err != nil {
			slog.Info("publish lock release failed", "error", err.Error())
		}
		metrics.RunDuration.Observe(time.Since(started).Seconds())
	}()

	due, err := j.posts.ListDue(ctx, j.now())
	if err != nil {
		return nil, fmt.Errorf("list due posts: %w", err)
	}

	summary := &RunSummary{RunID: owner, Results: make([]PostOutcome, 0, len(due))}
	for _, post := range due {
		summary.Results = append(summary.Results, j.processPost(ctx, post))
	}
	summary.Processed = len(due)

	slog.Info("publish run finished", "run_id", owner, "processed", summary.Processed)
	return summary, nil
}

// RunOne publishes a single post outside the batch, used by the publish-now
// queue worker. No lock is taken; the status guard is what keeps a queued
// task from republishing a post the batch already drained.
func (j *PublishJob) RunOne(ctx context.Context, postID int64) (PostOutcome, error) {
	post, err := j.posts.GetByID(ctx, postID)
	if err != nil {
		return PostOutcome{PostID: postID}, err
	}
	if post == nil {
		return PostOutcome{PostID: postID}, fmt.Errorf("post %d not found", postID)
	}
	if post.Status != models.PostStatusScheduled {
		slog.Info("skipping publish task, post no longer scheduled", "post_id", postID, "status", post.Status)
		return PostOutcome{PostID: postID, Status: post.Status}, nil
	}
	return j.processPost(ctx, post), nil
}

// processPost is the per-post failure boundary: any error or panic inside it
// marks this post failed and lets the batch continue.
func (j *PublishJob) processPost(ctx context.Context, post *models.Post) (outcome PostOutcome) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("panic while publishing post %d: %v", post.ID, r)
			slog.Error(msg)
			outcome = j.markFailed(ctx, post.ID, msg)
		}
	}()

	out, err := j.publishOne(ctx, post)
	if err != nil {
		slog.Info("post publish failed", "post_id", post.ID, "error", err.Error())
		return j.markFailed(ctx, post.ID, err.Error())
	}
	return out
}

func (j *PublishJob) publishOne(ctx context.Context, post *models.Post) (PostOutcome, error) {
	user, err := j.users.GetByID(ctx, post.UserID)
	if err != nil {
		return PostOutcome{}, err
	}
	if user == nil {
		return PostOutcome{}, fmt.Errorf("user %d not found", post.UserID)
	}

	if post.IsMultiPlatform() {
		return j.publishMultiPlatform(ctx, post)
	}
	return j.publishLegacy(ctx, post, user)
}

func (j *PublishJob) publishMultiPlatform(ctx context.Context, post *models.Post) (PostOutcome, error) {
	page, err := j.pages.GetByID(ctx, post.PageID.Int64)
	if err != nil {
		return PostOutcome{}, err
	}
	if page == nil {
		return PostOutcome{}, fmt.Errorf("page %d not found", post.PageID.Int64)
	}

	conns, err := j.conns.ListByPageID(ctx, page.ID)
	if err != nil {
		return PostOutcome{}, err
	}

	connByPlatform := make(map[string]*models.PlatformConnection, len(conns))
	for _, conn := range conns {
		if !conn.IsActive {
			continue
		}
		openTokens(conn, j.secretKey)
		connByPlatform[conn.Platform] = conn
	}

	out := j.publisher.PublishToAllPlatforms(ctx, post, connByPlatform)

	err = j.posts.SetPublishOutcome(ctx, post.ID, out.Status, out.Results, out.Error, out.LinkedinPostID)
	if err != nil {
		return PostOutcome{}, err
	}

	return PostOutcome{
		PostID:          post.ID,
		Status:          out.Status,
		PlatformResults: out.Results,
		Error:           out.Error,
	}, nil
}

// publishLegacy handles posts that predate multi-platform targeting. It
// still writes a one-element platform_results slice so downstream consumers
// see a uniform shape.
func (j *PublishJob) publishLegacy(ctx context.Context, post *models.Post, user *models.User) (PostOutcome, error) {
	result := j.legacy.PublishLegacy(ctx, post, user)

	status := models.PostStatusPublished
	errMsg := ""
	if result.Status != models.ResultStatusPublished {
		status = models.PostStatusFailed
		errMsg = fmt.Sprintf("linkedin: %s", result.Error)
	}

	results := []models.PlatformPublishResult{result}
	err := j.posts.SetPublishOutcome(ctx, post.ID, status, results, errMsg, result.PostID)
	if err != nil {
		return PostOutcome{}, err
	}

	return PostOutcome{PostID: post.ID, Status: status, PlatformResults: results, Error: errMsg}, nil
}

func (j *PublishJob) markFailed(ctx context.Context, postID int64, msg string) PostOutcome {
	if err := j.posts.SetPublishOutcome(ctx, postID, models.PostStatusFailed, nil, msg, ""); err != nil {
		slog.Info("failed to persist post failure", "post_id", postID, "error", err.Error())
	}
	return PostOutcome{PostID: postID, Status: models.PostStatusFailed, Error: msg}
}

// openTokens decrypts stored credentials in place. Values that do not
// decrypt are passed through untouched, covering rows written before
// encryption at rest was introduced.
func openTokens(conn *models.PlatformConnection, secretKey string) {
	if secretKey == "" {
		return
	}
	if plain, err := utils.Decrypt(conn.AccessToken, []byte(secretKey)); err == nil {
		conn.AccessToken = plain
	}
	if conn.RefreshToken != "" {
		if plain, err := utils.Decrypt(conn.RefreshToken, []byte(secretKey)); err == nil {
			conn.RefreshToken = plain
		}
	}
}
