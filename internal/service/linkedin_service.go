package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
)

const legacyLinkedinPostsURL = "https://api.linkedin.com/v2/ugcPosts"

// LinkedinService is the legacy single-platform publish path for posts that
// predate multi-platform targeting. It talks to LinkedIn directly with the
// user's legacy credential and deliberately has no retry or backoff; that
// inconsistency with the orchestrator is preserved so existing posts keep
// their failure behavior.
type LinkedinService interface {
	PublishLegacy(ctx context.Context, post *models.Post, user *models.User) models.PlatformPublishResult
}

type linkedinService struct {
	client *http.Client
}

func NewLinkedinService() LinkedinService {
	return &linkedinService{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *linkedinService) PublishLegacy(ctx context.Context, post *models.Post, user *models.User) models.PlatformPublishResult {
	result := models.PlatformPublishResult{Platform: "linkedin"}

	postID, err := s.publish(ctx, user, post.Content)
	if err != nil {
		slog.Info(err.Error())
		result.Status = models.ResultStatusFailed
		result.Error = err.Error()
		return result
	}

	now := time.Now()
	result.Status = models.ResultStatusPublished
	result.PostID = postID
	result.PostURL = "https://www.linkedin.com/feed/update/" + postID
	result.PublishedAt = &now
	return result
}

func (s *linkedinService) publish(ctx context.Context, user *models.User, content string) (string, error) {
	if user.LinkedinAccessToken == "" || user.LinkedinID == "" {
		return "", errors.New("user has no linkedin credential")
	}

	body := map[string]any{
		"author":         "urn:li:person:" + user.LinkedinID,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary":    map[string]string{"text": content},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]any{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, legacyLinkedinPostsURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+user.LinkedinAccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", errors.New("linkedin returned status " + resp.Status + ": " + strings.TrimSpace(string(detail)))
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
	return postID, nil
}
