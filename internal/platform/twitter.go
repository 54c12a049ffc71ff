package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	config "github.com/postpilothq/postpilot/configs"
	"github.com/postpilothq/postpilot/internal/models"
	"golang.org/x/oauth2"
)

const (
	twitterPostsURL  = "https://api.twitter.com/2/tweets"
	twitterTokenURL  = "https://api.twitter.com/2/oauth2/token"
	twitterMaxLength = 280
)

type TwitterAdapter struct {
	cfg    config.Config
	client *http.Client
}

func NewTwitterAdapter(cfg config.Config) *TwitterAdapter {
	return &TwitterAdapter{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *TwitterAdapter) Platform() string {
	return "twitter"
}

// AdaptContent truncates to the tweet length limit on a word boundary where
// one exists in the tail.
func (a *TwitterAdapter) AdaptContent(content string, opts ContentOptions) string {
	max := twitterMaxLength
	if opts.MaxLength > 0 && opts.MaxLength < max {
		max = opts.MaxLength
	}
	content = strings.TrimSpace(content)
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	cut := string(runes[:max-1])
	if idx := strings.LastIndexByte(cut, ' '); idx > max/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}

func (a *TwitterAdapter) Publish(ctx context.Context, conn *models.PlatformConnection, content string, media []MediaUpload) (*PublishResult, error) {
	body := map[string]any{"text": content}
	if len(media) > 0 {
		ids := make([]string, 0, len(media))
		for _, m := range media {
			ids = append(ids, m.MediaID)
		}
		body["media"] = map[string]any{"media_ids": ids}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, twitterPostsURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+conn.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, NewTransient("twitter", "fetch failed: %v", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus("twitter", resp); err != nil {
		return nil, err
	}

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, err
	}

	return &PublishResult{
		PostID:  created.Data.ID,
		PostURL: "https://twitter.com/i/web/status/" + created.Data.ID,
	}, nil
}

func (a *TwitterAdapter) RefreshToken(ctx context.Context, conn *models.PlatformConnection) (*RefreshedToken, error) {
	if conn.RefreshToken == "" {
		return nil, NewFatal("twitter", "connection has no refresh token")
	}

	oauthCfg := oauth2.Config{
		ClientID:     a.cfg.TwitterClientID,
		ClientSecret: a.cfg.TwitterClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  twitterTokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	tok, err := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: conn.RefreshToken}).Token()
	if err != nil {
		slog.Info(err.Error())
		return nil, NewFatal("twitter", "token refresh: %v", err)
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
