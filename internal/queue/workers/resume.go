package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/resumeprocessor/internal/models"
	"github.com/nikhilbhutani/resumeprocessor/internal/pipeline"
	"github.com/nikhilbhutani/resumeprocessor/internal/queue"
)

type Processor interface {
	ProcessAndStore(ctx context.Context, id string) (*models.ResumeDocument, error)
}

type ResumeWorker struct {
	processor Processor
}

func NewResumeWorker(p Processor) *ResumeWorker {
	return &ResumeWorker{processor: p}
}

// ProcessTask runs the pipeline for one queued résumé. Failures that cannot
// succeed on redelivery are marked with asynq.SkipRetry.
func (w *ResumeWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.ResumeProcessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.ResumeID == "" {
		return fmt.Errorf("payload has no resume_id: %w", asynq.SkipRetry)
	}

	retried, _ := asynq.GetRetryCount(ctx)
	slog.Info("processing resume task", "resume_id", payload.ResumeID, "retry", retried)

	if _, err := w.processor.ProcessAndStore(ctx, payload.ResumeID); err != nil {
		if pipeline.IsPermanent(err) {
			return fmt.Errorf("process resume %s: %w: %w", payload.ResumeID, err, asynq.SkipRetry)
		}
		return fmt.Errorf("process resume %s: %w", payload.ResumeID, err)
	}

	slog.Info("resume task done", "resume_id", payload.ResumeID)
	return nil
}
