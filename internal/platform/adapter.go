package platform

import (
	"context"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
)

// ContentOptions tunes AdaptContent per call site. Zero value means the
// adapter's defaults.
type ContentOptions struct {
	MaxLength int
}

type PublishResult struct {
	PostID  string
	PostURL string
}

type MediaUpload struct {
	MediaID string
	Type    string
}

type RefreshedToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Adapter translates generic publish intent into one platform's API calls.
// AdaptContent and Publish are mandatory; media upload and token refresh are
// optional capabilities asserted via the MediaUploader and TokenRefresher
// interfaces.
type Adapter interface {
	Platform() string
	AdaptContent(content string, opts ContentOptions) string
	Publish(ctx context.Context, conn *models.PlatformConnection, content string, media []MediaUpload) (*PublishResult, error)
}

type MediaUploader interface {
	UploadMedia(ctx context.Context, conn *models.PlatformConnection, url, mediaType string) (*MediaUpload, error)
}

type TokenRefresher interface {
	RefreshToken(ctx context.Context, conn *models.PlatformConnection) (*RefreshedToken, error)
}

// Registry maps platform identifiers to adapters.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

func (r *Registry) Register(a Adapter) {
	r.adapters[a.Platform()] = a
}

func (r *Registry) Get(platform string) (Adapter, bool) {
	a, ok := r.adapters[platform]
	return a, ok
}

func (r *Registry) Platforms() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}
