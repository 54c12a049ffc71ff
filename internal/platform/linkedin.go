package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	config "github.com/postpilothq/postpilot/configs"
	"github.com/postpilothq/postpilot/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/linkedin"
)

const (
	linkedinPostsURL    = "https://api.linkedin.com/v2/ugcPosts"
	linkedinRegisterURL = "https://api.linkedin.com/v2/assets?action=registerUpload"
	linkedinMaxLength   = 3000
)

type LinkedinAdapter struct {
	cfg    config.Config
	client *http.Client
}

func NewLinkedinAdapter(cfg config.Config) *LinkedinAdapter {
	return &LinkedinAdapter{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *LinkedinAdapter) Platform() string {
	return "linkedin"
}

func (a *LinkedinAdapter) AdaptContent(content string, opts ContentOptions) string {
	max := linkedinMaxLength
	if opts.MaxLength > 0 && opts.MaxLength < max {
		max = opts.MaxLength
	}
	content = strings.TrimSpace(content)
	runes := []rune(content)
	if len(runes) > max {
		return string(runes[:max-1]) + "…"
	}
	return content
}

type linkedinShareMedia struct {
	Status string `json:"status"`
	Media  string `json:"media"`
}

type linkedinPostRequest struct {
	Author          string         `json:"author"`
	LifecycleState  string         `json:"lifecycleState"`
	SpecificContent map[string]any `json:"specificContent"`
	Visibility      map[string]any `json:"visibility"`
}

func (a *LinkedinAdapter) Publish(ctx context.Context, conn *models.PlatformConnection, content string, media []MediaUpload) (*PublishResult, error) {
	shareCategory := "NONE"
	shareMedia := make([]linkedinShareMedia, 0, len(media))
	for _, m := range media {
		shareMedia = append(shareMedia, linkedinShareMedia{Status: "READY", Media: m.MediaID})
	}
	if len(shareMedia) > 0 {
		shareCategory = "IMAGE"
	}

	body := linkedinPostRequest{
		Author:         "urn:li:person:" + conn.AccountID,
		LifecycleState: "PUBLISHED",
		SpecificContent: map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary":    map[string]string{"text": content},
				"shareMediaCategory": shareCategory,
				"media":              shareMedia,
			},
		},
		Visibility: map[string]any{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, linkedinPostsURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+conn.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := a.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, NewTransient("linkedin", "fetch failed: %v", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus("linkedin", resp); err != nil {
		return nil, err
	}

	postID := resp.Header.Get("x-restli-id")
	if postID == "" {
		var created struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&created); err == nil {
			postID = created.ID
		}
	}

	return &PublishResult{
		PostID:  postID,
		PostURL: "https://www.linkedin.com/feed/update/" + postID,
	}, nil
}

func (a *LinkedinAdapter) UploadMedia(ctx context.Context, conn *models.PlatformConnection, mediaURL, mediaType string) (*MediaUpload, error) {
	register := map[string]any{
		"registerUploadRequest": map[string]any{
			"recipes": []string{"urn:li:digitalmediaRecipe:feedshare-image"},
			"owner":   "urn:li:person:" + conn.AccountID,
			"serviceRelationships": []map[string]string{
				{"relationshipType": "OWNER", "identifier": "urn:li:userGeneratedContent"},
			},
		},
	}

	payload, err := json.Marshal(register)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, linkedinRegisterURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+conn.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, NewTransient("linkedin", "fetch failed: %v", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus("linkedin", resp); err != nil {
		return nil, err
	}

	var registered struct {
		Value struct {
			Asset           string `json:"asset"`
			UploadMechanism map[string]struct {
				UploadURL string `json:"uploadUrl"`
			} `json:"uploadMechanism"`
		} `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&registered); err != nil {
		return nil, err
	}

	var uploadURL string
	for _, m := range registered.Value.UploadMechanism {
		uploadURL = m.UploadURL
	}
	if uploadURL == "" {
		return nil, NewFatal("linkedin", "register upload returned no upload url")
	}

	data, err := a.fetchMedia(ctx, mediaURL)
	if err != nil {
		return nil, err
	}

	up, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	up.Header.Set("Authorization", "Bearer "+conn.AccessToken)

	upResp, err := a.client.Do(up)
	if err != nil {
		slog.Info(err.Error())
		return nil, NewTransient("linkedin", "fetch failed: %v", err)
	}
	defer upResp.Body.Close()

	if err := classifyStatus("linkedin", upResp); err != nil {
		return nil, err
	}

	return &MediaUpload{MediaID: registered.Value.Asset, Type: mediaType}, nil
}

func (a *LinkedinAdapter) RefreshToken(ctx context.Context, conn *models.PlatformConnection) (*RefreshedToken, error) {
	if conn.RefreshToken == "" {
		return nil, NewFatal("linkedin", "connection has no refresh token")
	}

	oauthCfg := oauth2.Config{
		ClientID:     a.cfg.LinkedinClientID,
		ClientSecret: a.cfg.LinkedinClientSecret,
		Endpoint:     linkedin.Endpoint,
	}

	tok, err := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: conn.RefreshToken}).Token()
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("linkedin token refresh: %w", err)
	}

	refreshed := &RefreshedToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = conn.RefreshToken
	}
	return refreshed, nil
}

func (a *LinkedinAdapter) fetchMedia(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch media: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 50<<20))
}

// classifyStatus maps an API response status onto the retry taxonomy.
// 429/502/503 are transient, every other non-2xx is fatal.
func classifyStatus(platform string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return NewTransient(platform, "rate limit exceeded (status 429)")
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return NewTransient(platform, "upstream unavailable (status %d)", resp.StatusCode)
	default:
		return NewFatal(platform, "status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
}
