// Package pipeline runs extraction, summarization and redaction over a
// stored résumé and records the outcome.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nikhilbhutani/resumeprocessor/internal/extraction"
	"github.com/nikhilbhutani/resumeprocessor/internal/llm"
	"github.com/nikhilbhutani/resumeprocessor/internal/models"
	"github.com/nikhilbhutani/resumeprocessor/internal/store"
	"github.com/nikhilbhutani/resumeprocessor/internal/summarize"
)

// ErrNotFound is returned when the raw résumé does not exist.
var ErrNotFound = errors.New("resume not found")

type Extractor interface {
	Extract(ctx context.Context, resumeText string) (models.ExtractedRecord, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, record models.ExtractedRecord, maxWords int) (string, error)
}

type Redactor interface {
	Remove(ctx context.Context, text string) (string, error)
}

// StepError names the pipeline step that failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return e.Step + ": " + e.Err.Error() }

func (e *StepError) Unwrap() error { return e.Err }

type Orchestrator struct {
	store        store.Store
	extractor    Extractor
	summarizer   Summarizer
	redactor     Redactor
	summaryWords int
	// statusTimeout bounds the failure write, which runs even after ctx is cancelled.
	statusTimeout time.Duration
}

type Option func(*Orchestrator)

// WithSummaryWords sets the summary word ceiling.
func WithSummaryWords(n int) Option {
	return func(o *Orchestrator) { o.summaryWords = n }
}

func NewOrchestrator(s store.Store, e Extractor, sm Summarizer, r Redactor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:         s,
		extractor:     e,
		summarizer:    sm,
		redactor:      r,
		summaryWords:  summarize.DefaultMaxWords,
		statusTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Process runs the three model steps in order and stops at the first failure.
func (o *Orchestrator) Process(ctx context.Context, resumeText string) (*models.ProcessedResult, error) {
	record, err := o.extractor.Extract(ctx, resumeText)
	if err != nil {
		return nil, &StepError{Step: "extract", Err: err}
	}

	summary, err := o.summarizer.Summarize(ctx, record, o.summaryWords)
	if err != nil {
		return nil, &StepError{Step: "summarize", Err: err}
	}

	sanitized, err := o.redactor.Remove(ctx, summary)
	if err != nil {
		return nil, &StepError{Step: "redact", Err: err}
	}

	return &models.ProcessedResult{
		Record:           record,
		Summary:          summary,
		SanitizedSummary: sanitized,
	}, nil
}

// ProcessAndStore processes the raw résumé id and stores the result in the
// processed collection. Status writes on the raw document are best effort;
// on failure the raw document is marked failed and the original error is
// returned.
func (o *Orchestrator) ProcessAndStore(ctx context.Context, id string) (*models.ResumeDocument, error) {
	raw, err := o.store.Read(ctx, store.Raw, id)
	if err != nil {
		return nil, fmt.Errorf("read raw resume %s: %w", id, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	logger := slog.With("resume_id", id)
	logger.Info("processing resume", "previous_status", raw.Status)

	raw.Status = models.StatusProcessing
	raw.Error = ""
	if err := o.store.Upsert(ctx, store.Raw, raw); err != nil {
		logger.Warn("failed to record processing status", "error", err)
	}

	start := time.Now()
	result, err := o.Process(ctx, raw.RawText)
	if err != nil {
		o.markFailed(ctx, raw, err)
		logger.Error("resume processing failed", "duration_ms", time.Since(start).Milliseconds(), "error", err)
		return nil, err
	}

	processed := &models.ResumeDocument{
		ID:            raw.ID,
		Filename:      raw.Filename,
		UploadDate:    raw.UploadDate,
		Status:        models.StatusCompleted,
		ProcessedData: result,
	}
	if err := o.store.Upsert(ctx, store.Processed, processed); err != nil {
		err = &StepError{Step: "store", Err: err}
		o.markFailed(ctx, raw, err)
		logger.Error("storing processed resume failed", "error", err)
		return nil, err
	}

	raw.Status = models.StatusCompleted
	raw.Error = ""
	if err := o.store.Upsert(ctx, store.Raw, raw); err != nil {
		logger.Warn("failed to record completed status", "error", err)
	}

	logger.Info("resume processed", "duration_ms", time.Since(start).Milliseconds())
	return processed, nil
}

func (o *Orchestrator) markFailed(ctx context.Context, raw *models.ResumeDocument, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.statusTimeout)
	defer cancel()

	raw.Status = models.StatusFailed
	raw.Error = cause.Error()
	if err := o.store.Upsert(ctx, store.Raw, raw); err != nil {
		slog.Warn("failed to record failed status", "resume_id", raw.ID, "cause", cause, "error", err)
	}
}

// IsPermanent reports whether retrying err cannot succeed: the document is
// missing, or the model broke the extraction contract or rejected the request.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, extraction.ErrNoFunctionCall) ||
		errors.Is(err, extraction.ErrMalformedArguments) ||
		errors.Is(err, extraction.ErrMissingRequiredField) ||
		errors.Is(err, llm.ErrPermanent)
}
