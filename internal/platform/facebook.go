package platform

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/postpilothq/postpilot/configs"
	"github.com/postpilothq/postpilot/internal/models"
)

const facebookGraphURL = "https://graph.facebook.com/v19.0"

// FacebookAdapter publishes to a Facebook page feed. Page access tokens are
// long-lived, so the adapter deliberately does not implement TokenRefresher.
type FacebookAdapter struct {
	cfg    config.Config
	client *http.Client
}

func NewFacebookAdapter(cfg config.Config) *FacebookAdapter {
	return &FacebookAdapter{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *FacebookAdapter) Platform() string {
	return "facebook"
}

func (a *FacebookAdapter) AdaptContent(content string, opts ContentOptions) string {
	content = strings.TrimSpace(content)
	if opts.MaxLength > 0 {
		runes := []rune(content)
		if len(runes) > opts.MaxLength {
			return string(runes[:opts.MaxLength-1]) + "…"
		}
	}
	return content
}

func (a *FacebookAdapter) Publish(ctx context.Context, conn *models.PlatformConnection, content string, media []MediaUpload) (*PublishResult, error) {
	form := url.Values{}
	form.Set("message", content)
	form.Set("access_token", conn.AccessToken)
	for _, m := range media {
		form.Add("attached_media[]", `{"media_fbid":"`+m.MediaID+`"}`)
	}

	endpoint := facebookGraphURL + "/" + conn.AccountID + "/feed"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, NewTransient("facebook", "fetch failed: %v", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus("facebook", resp); err != nil {
		return nil, err
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, err
	}

	return &PublishResult{
		PostID:  created.ID,
		PostURL: "https://www.facebook.com/" + created.ID,
	}, nil
}

// UploadMedia publishes an unattached photo the feed post can reference via
// attached_media. The Graph API fetches the image itself from the URL.
func (a *FacebookAdapter) UploadMedia(ctx context.Context, conn *models.PlatformConnection, mediaURL, mediaType string) (*MediaUpload, error) {
	form := url.Values{}
	form.Set("url", mediaURL)
	form.Set("published", "false")
	form.Set("access_token", conn.AccessToken)

	endpoint := facebookGraphURL + "/" + conn.AccountID + "/photos"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, NewTransient("facebook", "fetch failed: %v", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus("facebook", resp); err != nil {
		return nil, err
	}

	var uploaded struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return nil, err
	}

	return &MediaUpload{MediaID: uploaded.ID, Type: mediaType}, nil
}
