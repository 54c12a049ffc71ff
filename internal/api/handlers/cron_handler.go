package handlers

import (
	"crypto/subtle"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	job "github.com/postpilothq/postpilot/internal/jobs"
)

// CronHandler is the entry point polled by the external scheduler. It owns
// nothing beyond authentication; the publish job does the work.
type CronHandler struct {
	publishJob *job.PublishJob
	cronSecret string
}

func NewCronHandler(publishJob *job.PublishJob, cronSecret string) *CronHandler {
	return &CronHandler{publishJob: publishJob, cronSecret: cronSecret}
}

// RunPublish triggers one publish run. Overlapping triggers are expected:
// the one that loses the lock race gets a skipped response, not an error.
func (h *CronHandler) RunPublish(c *fiber.Ctx) error {
	if !h.authorized(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid cron secret",
		})
	}

	summary, err := h.publishJob.Run(c.Context())
	if err != nil {
		slog.Error("publish run aborted", "error", err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if summary.Skipped {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"success": false,
			"skipped": true,
			"message": "Another instance is already running publish",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"processed": summary.Processed,
		"results":   summary.Results,
	})
}

// authorized checks the shared secret from the query string, a bearer token,
// or the x-cron-secret header. Comparison is constant-time. Deployments
// without a configured secret accept every trigger.
func (h *CronHandler) authorized(c *fiber.Ctx) bool {
	if h.cronSecret == "" {
		return true
	}

	candidates := []string{
		c.Query("key"),
		strings.TrimPrefix(c.Get("Authorization"), "Bearer "),
		c.Get("x-cron-secret"),
	}
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(h.cronSecret)) == 1 {
			return true
		}
	}
	return false
}
