package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/platform"
)

type stubTokens struct {
	err   error
	calls int
}

func (s *stubTokens) EnsureFresh(ctx context.Context, pageID int64, conn *models.PlatformConnection, refresher platform.TokenRefresher) error {
	s.calls++
	return s.err
}

func (s *stubTokens) Refresh(ctx context.Context, pageID int64, conn *models.PlatformConnection, refresher platform.TokenRefresher) error {
	return s.err
}

// fakeAdapter scripts Publish outcomes: one entry per call, nil meaning
// success. An exhausted script keeps succeeding.
type fakeAdapter struct {
	name         string
	script       []error
	publishCalls int
	lastMedia    int
}

func (f *fakeAdapter) Platform() string { return f.name }

func (f *fakeAdapter) AdaptContent(content string, opts platform.ContentOptions) string {
	return content
}

func (f *fakeAdapter) Publish(ctx context.Context, conn *models.PlatformConnection, content string, media []platform.MediaUpload) (*platform.PublishResult, error) {
	call := f.publishCalls
	f.publishCalls++
	f.lastMedia = len(media)
	if call < len(f.script) && f.script[call] != nil {
		return nil, f.script[call]
	}
	return &platform.PublishResult{PostID: f.name + "-123", PostURL: "https://" + f.name + "/123"}, nil
}

type fakeUploader struct {
	fakeAdapter
	uploadErr   map[string]error
	uploadCalls int
}

func (f *fakeUploader) UploadMedia(ctx context.Context, conn *models.PlatformConnection, url, mediaType string) (*platform.MediaUpload, error) {
	f.uploadCalls++
	if err, ok := f.uploadErr[url]; ok {
		return nil, err
	}
	return &platform.MediaUpload{MediaID: "media-" + url, Type: mediaType}, nil
}

func newTestPublisher(tokens TokenService, adapters ...platform.Adapter) (*publishService, *[]time.Duration) {
	var sleeps []time.Duration
	svc := &publishService{
		registry: platform.NewRegistry(adapters...),
		tokens:   tokens,
		sleep:    func(d time.Duration) { sleeps = append(sleeps, d) },
	}
	return svc, &sleeps
}

func multiPost(targets ...string) *models.Post {
	return &models.Post{
		ID:              42,
		UserID:          1,
		PageID:          sql.NullInt64{Int64: 7, Valid: true},
		Content:         "hello world",
		TargetPlatforms: targets,
		Status:          models.PostStatusScheduled,
	}
}

func liveConn(platform string) *models.PlatformConnection {
	return &models.PlatformConnection{
		PageID:      7,
		Platform:    platform,
		AccessToken: "token",
		IsActive:    true,
	}
}

func TestPublishToPlatform_RetryBound(t *testing.T) {
	adapter := &fakeAdapter{name: "twitter", script: []error{
		errors.New("rate limit"),
		errors.New("rate limit"),
		errors.New("rate limit"),
		errors.New("rate limit"),
		errors.New("rate limit"),
	}}
	svc, sleeps := newTestPublisher(&stubTokens{}, adapter)

	post := multiPost("twitter")
	result := svc.publishToPlatform(context.Background(), post, "twitter", post.Content, liveConn("twitter"))

	if adapter.publishCalls != 1+MaxRetries {
		t.Errorf("publish attempted %d times, want %d", adapter.publishCalls, 1+MaxRetries)
	}
	if result.Status != models.ResultStatusFailed {
		t.Errorf("status = %q, want failed", result.Status)
	}
	if result.RetryCount != MaxRetries {
		t.Errorf("retry count = %d, want %d", result.RetryCount, MaxRetries)
	}

	want := []time.Duration{5 * time.Second, 15 * time.Second, 30 * time.Second}
	if len(*sleeps) != len(want) {
		t.Fatalf("slept %d times, want %d", len(*sleeps), len(want))
	}
	for i, d := range want {
		if (*sleeps)[i] != d {
			t.Errorf("sleep %d = %v, want %v", i, (*sleeps)[i], d)
		}
	}
}

func TestPublishToPlatform_NonRetryableShortCircuit(t *testing.T) {
	adapter := &fakeAdapter{name: "twitter", script: []error{errors.New("invalid content")}}
	svc, sleeps := newTestPublisher(&stubTokens{}, adapter)

	post := multiPost("twitter")
	result := svc.publishToPlatform(context.Background(), post, "twitter", post.Content, liveConn("twitter"))

	if adapter.publishCalls != 1 {
		t.Errorf("publish attempted %d times, want 1", adapter.publishCalls)
	}
	if len(*sleeps) != 0 {
		t.Errorf("slept %d times, want 0", len(*sleeps))
	}
	if result.Status != models.ResultStatusFailed || result.Error != "invalid content" {
		t.Errorf("result = %+v, want failed with original error", result)
	}
}

func TestPublishToPlatform_TransientThenSuccess(t *testing.T) {
	adapter := &fakeAdapter{name: "twitter", script: []error{errors.New("timeout"), nil}}
	svc, _ := newTestPublisher(&stubTokens{}, adapter)

	post := multiPost("twitter")
	result := svc.publishToPlatform(context.Background(), post, "twitter", post.Content, liveConn("twitter"))

	if result.Status != models.ResultStatusPublished {
		t.Fatalf("status = %q, want published", result.Status)
	}
	if result.RetryCount != 1 {
		t.Errorf("retry count = %d, want 1", result.RetryCount)
	}
	if result.PostID != "twitter-123" || result.PublishedAt == nil {
		t.Errorf("result missing publish details: %+v", result)
	}
}

func TestPublishToPlatform_NoConnection(t *testing.T) {
	adapter := &fakeAdapter{name: "linkedin"}
	svc, _ := newTestPublisher(&stubTokens{}, adapter)

	post := multiPost("linkedin")
	result := svc.publishToPlatform(context.Background(), post, "linkedin", post.Content, nil)

	if result.Status != models.ResultStatusSkipped {
		t.Errorf("status = %q, want skipped", result.Status)
	}
	if result.Error != "No linkedin connection found" {
		t.Errorf("error = %q, want no-connection message", result.Error)
	}
	if adapter.publishCalls != 0 {
		t.Errorf("publish attempted %d times, want 0", adapter.publishCalls)
	}
}

func TestPublishToPlatform_NoAdapter(t *testing.T) {
	svc, _ := newTestPublisher(&stubTokens{})

	post := multiPost("tiktok")
	result := svc.publishToPlatform(context.Background(), post, "tiktok", post.Content, liveConn("tiktok"))

	if result.Status != models.ResultStatusSkipped {
		t.Errorf("status = %q, want skipped", result.Status)
	}
	if result.Error != "No tiktok adapter available" {
		t.Errorf("error = %q, want no-adapter message", result.Error)
	}
}

func TestPublishToPlatform_TokenFailureIsNotRetried(t *testing.T) {
	adapter := &fakeAdapter{name: "twitter"}
	tokens := &stubTokens{err: errors.New("twitter token expired and refresh failed: revoked")}
	svc, sleeps := newTestPublisher(tokens, adapter)

	post := multiPost("twitter")
	result := svc.publishToPlatform(context.Background(), post, "twitter", post.Content, liveConn("twitter"))

	if result.Status != models.ResultStatusFailed {
		t.Errorf("status = %q, want failed", result.Status)
	}
	if adapter.publishCalls != 0 {
		t.Errorf("publish attempted %d times after credential failure, want 0", adapter.publishCalls)
	}
	if len(*sleeps) != 0 {
		t.Errorf("credential failure slept %d times, want 0", len(*sleeps))
	}
}

func TestPublishToAllPlatforms_Aggregation(t *testing.T) {
	tests := []struct {
		name         string
		linkedinErr  error
		twitterErr   error
		wantStatus   string
		wantError    string
		wantLegacyID string
	}{
		{
			name:         "all published",
			wantStatus:   models.PostStatusPublished,
			wantLegacyID: "linkedin-123",
		},
		{
			name:         "partial",
			twitterErr:   errors.New("invalid content"),
			wantStatus:   models.PostStatusPartiallyPublished,
			wantError:    "twitter: invalid content",
			wantLegacyID: "linkedin-123",
		},
		{
			name:        "all failed",
			linkedinErr: errors.New("bad author"),
			twitterErr:  errors.New("invalid content"),
			wantStatus:  models.PostStatusFailed,
			wantError:   "linkedin: bad author; twitter: invalid content",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			linkedin := &fakeAdapter{name: "linkedin", script: []error{tt.linkedinErr}}
			twitter := &fakeAdapter{name: "twitter", script: []error{tt.twitterErr}}
			svc, _ := newTestPublisher(&stubTokens{}, linkedin, twitter)

			post := multiPost("linkedin", "twitter")
			conns := map[string]*models.PlatformConnection{
				"linkedin": liveConn("linkedin"),
				"twitter":  liveConn("twitter"),
			}

			out := svc.PublishToAllPlatforms(context.Background(), post, conns)

			if out.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", out.Status, tt.wantStatus)
			}
			if out.Error != tt.wantError {
				t.Errorf("error = %q, want %q", out.Error, tt.wantError)
			}
			if out.LinkedinPostID != tt.wantLegacyID {
				t.Errorf("legacy linkedin id = %q, want %q", out.LinkedinPostID, tt.wantLegacyID)
			}
			if len(out.Results) != 2 {
				t.Fatalf("got %d results, want 2", len(out.Results))
			}
			if out.Results[0].Platform != "linkedin" || out.Results[1].Platform != "twitter" {
				t.Errorf("results out of target order: %+v", out.Results)
			}
		})
	}
}

func TestPublishToAllPlatforms_MissingConnectionFailsPost(t *testing.T) {
	linkedin := &fakeAdapter{name: "linkedin"}
	svc, _ := newTestPublisher(&stubTokens{}, linkedin)

	post := multiPost("linkedin")
	out := svc.PublishToAllPlatforms(context.Background(), post, map[string]*models.PlatformConnection{})

	if out.Status != models.PostStatusFailed {
		t.Errorf("status = %q, want failed (zero published out of one target)", out.Status)
	}
	if len(out.Results) != 1 || out.Results[0].Status != models.ResultStatusSkipped {
		t.Fatalf("results = %+v, want one skipped result", out.Results)
	}
	if out.Results[0].Error != "No linkedin connection found" {
		t.Errorf("error = %q, want no-connection message", out.Results[0].Error)
	}
}

func TestPublishToAllPlatforms_PerPlatformContentOverride(t *testing.T) {
	var published []string
	linkedin := &recordingAdapter{name: "linkedin", published: &published}
	twitter := &recordingAdapter{name: "twitter", published: &published}
	svc, _ := newTestPublisher(&stubTokens{}, linkedin, twitter)

	post := multiPost("linkedin", "twitter")
	post.PlatformContent = []models.PlatformContent{{Platform: "twitter", Content: "short version"}}
	conns := map[string]*models.PlatformConnection{
		"linkedin": liveConn("linkedin"),
		"twitter":  liveConn("twitter"),
	}

	svc.PublishToAllPlatforms(context.Background(), post, conns)

	if len(published) != 2 || published[0] != "hello world" || published[1] != "short version" {
		t.Errorf("published contents = %v, want default then override", published)
	}
}

type recordingAdapter struct {
	name      string
	published *[]string
}

func (r *recordingAdapter) Platform() string { return r.name }

func (r *recordingAdapter) AdaptContent(content string, opts platform.ContentOptions) string {
	return content
}

func (r *recordingAdapter) Publish(ctx context.Context, conn *models.PlatformConnection, content string, media []platform.MediaUpload) (*platform.PublishResult, error) {
	*r.published = append(*r.published, content)
	return &platform.PublishResult{PostID: r.name + "-1"}, nil
}

func TestUploadMedia_SingleFailureDropsItemOnly(t *testing.T) {
	adapter := &fakeUploader{
		fakeAdapter: fakeAdapter{name: "facebook"},
		uploadErr:   map[string]error{"https://cdn/two.jpg": errors.New("corrupt image")},
	}
	svc, _ := newTestPublisher(&stubTokens{}, adapter)

	post := multiPost("facebook")
	post.Media = []models.MediaItem{
		{URL: "https://cdn/one.jpg", Type: "image"},
		{URL: "https://cdn/two.jpg", Type: "image"},
		{URL: "https://cdn/three.jpg", Type: "image"},
	}

	result := svc.publishToPlatform(context.Background(), post, "facebook", post.Content, liveConn("facebook"))

	if result.Status != models.ResultStatusPublished {
		t.Fatalf("status = %q, want published despite one media failure", result.Status)
	}
	if adapter.uploadCalls != 3 {
		t.Errorf("upload attempted %d times, want 3", adapter.uploadCalls)
	}
	if adapter.lastMedia != 2 {
		t.Errorf("publish received %d media, want 2 (failed item dropped)", adapter.lastMedia)
	}
}

func TestUploadMedia_AdapterWithoutUploaderSkipsMedia(t *testing.T) {
	adapter := &fakeAdapter{name: "twitter"}
	svc, _ := newTestPublisher(&stubTokens{}, adapter)

	post := multiPost("twitter")
	post.Media = []models.MediaItem{{URL: "https://cdn/one.jpg", Type: "image"}}

	result := svc.publishToPlatform(context.Background(), post, "twitter", post.Content, liveConn("twitter"))

	if result.Status != models.ResultStatusPublished {
		t.Fatalf("status = %q, want published", result.Status)
	}
	if adapter.lastMedia != 0 {
		t.Errorf("publish received %d media, want 0", adapter.lastMedia)
	}
}
