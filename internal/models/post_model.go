package models

import (
	"database/sql"
	"time"
)

type Post struct {
	ID              int64                   `db:"id" json:"id"`
	UserID          int64                   `db:"user_id" json:"user_id"`
	PageID          sql.NullInt64           `db:"page_id" json:"page_id"`
	Content         string                  `db:"content" json:"content"`
	PlatformContent []PlatformContent       `db:"platform_content" json:"platform_content,omitempty"`
	TargetPlatforms []string                `db:"target_platforms" json:"target_platforms,omitempty"`
	Media           []MediaItem             `db:"media" json:"media,omitempty"`
	Status          string                  `db:"status" json:"status"`
	ScheduledFor    time.Time               `db:"scheduled_for" json:"scheduled_for"`
	PlatformResults []PlatformPublishResult `db:"platform_results" json:"platform_results,omitempty"`
	Error           string                  `db:"error" json:"error,omitempty"`
	LinkedinPostID  string                  `db:"linkedin_post_id" json:"linkedin_post_id,omitempty"`
	CreatedAt       time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time               `db:"updated_at" json:"updated_at"`
}

// PlatformContent is a per-platform override of the post's default body.
type PlatformContent struct {
	Platform string `json:"platform"`
	Content  string `json:"content"`
}

type MediaItem struct {
	URL  string `json:"url"`
	Type string `json:"type"` // image or video
}

// PlatformPublishResult is the outcome of one platform attempt for one post.
// A later run fully replaces it; results are never merged across runs.
type PlatformPublishResult struct {
	Platform    string     `json:"platform"`
	Status      string     `json:"status"` // published, failed, skipped
	PostID      string     `json:"post_id,omitempty"`
	PostURL     string     `json:"post_url,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	RetryCount  int        `json:"retry_count"`
}

const (
	PostStatusDraft              = "draft"
	PostStatusPendingApproval    = "pending_approval"
	PostStatusScheduled          = "scheduled"
	PostStatusPublished          = "published"
	PostStatusPartiallyPublished = "partially_published"
	PostStatusFailed             = "failed"
	PostStatusRejected           = "rejected"
)

const (
	ResultStatusPublished = "published"
	ResultStatusFailed    = "failed"
	ResultStatusSkipped   = "skipped"
)

// ContentFor returns the platform-specific override for platform, falling
// back to the post's default body.
func (p *Post) ContentFor(platform string) string {
	for _, pc := range p.PlatformContent {
		if pc.Platform == platform {
			return pc.Content
		}
	}
	return p.Content
}

// IsMultiPlatform reports whether the post uses the multi-platform publish
// path. Posts without target platforms or a page fall back to the legacy
// single-platform path.
func (p *Post) IsMultiPlatform() bool {
	return len(p.TargetPlatforms) > 0 && p.PageID.Valid
}
