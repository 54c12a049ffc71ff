package queue

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	job "github.com/postpilothq/postpilot/internal/jobs"
)

// Worker drains publish-now tasks through the same per-post pipeline the
// batch job uses.
type Worker struct {
	publishJob *job.PublishJob
}

func NewWorker(publishJob *job.PublishJob) *Worker {
	return &Worker{publishJob: publishJob}
}

func (w *Worker) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	outcome, err := w.publishJob.RunOne(ctx, payload.PostID)
	if err != nil {
		slog.Info("publish task failed", "post_id", payload.PostID, "error", err.Error())
		return err
	}

	slog.Info("publish task finished", "post_id", outcome.PostID, "status", outcome.Status)
	return nil
}
