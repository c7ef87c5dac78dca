// Package document accepts résumé uploads and serves stored résumés.
package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/resumeprocessor/internal/guardrails"
	"github.com/nikhilbhutani/resumeprocessor/internal/models"
	"github.com/nikhilbhutani/resumeprocessor/internal/store"
)

var (
	ErrNotFound    = errors.New("resume not found")
	ErrTooLarge    = errors.New("file too large")
	ErrInvalidFile = errors.New("invalid file")
)

// Dispatcher starts processing of a stored raw résumé.
type Dispatcher interface {
	Dispatch(ctx context.Context, id string) error
}

type Service struct {
	store      store.Store
	dispatcher Dispatcher
	extractor  TextExtractor
	maxBytes   int64
	now        func() time.Time
}

func NewService(s store.Store, d Dispatcher, maxBytes int64) *Service {
	return &Service{
		store:      s,
		dispatcher: d,
		extractor:  NewTextExtractor(),
		maxBytes:   maxBytes,
		now:        time.Now,
	}
}

// Submit stores the uploaded file as a pending raw résumé and dispatches it.
// A dispatch failure leaves the document pending; it is logged, not returned,
// because the upload itself succeeded.
func (s *Service) Submit(ctx context.Context, filename, contentType string, data []byte) (*models.ResumeDocument, error) {
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(data), s.maxBytes)
	}

	text, err := s.extractor.Extract(data, filename, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	if f := guardrails.ScanInjection(text); f.Suspicious() {
		slog.Warn("resume text contains prompt injection phrases", "filename", filename, "score", f.Score, "flags", f.Flags)
	}

	doc := &models.ResumeDocument{
		ID:         uuid.NewString(),
		Filename:   filename,
		UploadDate: s.now().UTC(),
		Status:     models.StatusPending,
		RawText:    text,
	}
	if err := s.store.Create(ctx, store.Raw, doc); err != nil {
		return nil, fmt.Errorf("create raw resume: %w", err)
	}

	slog.Info("resume uploaded", "resume_id", doc.ID, "filename", filename, "bytes", len(data), "text_chars", len(text))

	if err := s.dispatcher.Dispatch(ctx, doc.ID); err != nil {
		slog.Error("failed to dispatch resume", "resume_id", doc.ID, "error", err)
	}
	return doc, nil
}

// Get returns the processed résumé when there is one, otherwise the raw one.
func (s *Service) Get(ctx context.Context, id string) (*models.ResumeDocument, error) {
	for _, c := range []store.Collection{store.Processed, store.Raw} {
		doc, err := s.store.Read(ctx, c, id)
		if err != nil {
			return nil, fmt.Errorf("read %s resume: %w", c, err)
		}
		if doc != nil {
			return doc, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// List returns processed résumés, falling back to raw ones when nothing
// processed matches.
func (s *Service) List(ctx context.Context, status models.Status, limit int) ([]*models.ResumeDocument, error) {
	opts := store.QueryOptions{Status: status, Limit: limit}

	docs, err := s.store.Query(ctx, store.Processed, opts)
	if err != nil {
		return nil, fmt.Errorf("list processed resumes: %w", err)
	}
	if len(docs) > 0 {
		return docs, nil
	}

	docs, err = s.store.Query(ctx, store.Raw, opts)
	if err != nil {
		return nil, fmt.Errorf("list raw resumes: %w", err)
	}
	return docs, nil
}

// Reprocess dispatches an existing raw résumé again.
func (s *Service) Reprocess(ctx context.Context, id string) error {
	raw, err := s.store.Read(ctx, store.Raw, id)
	if err != nil {
		return fmt.Errorf("read raw resume: %w", err)
	}
	if raw == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if raw.Status == models.StatusProcessing {
		slog.Warn("reprocessing resume that is still processing", "resume_id", id)
	}
	if err := s.dispatcher.Dispatch(ctx, id); err != nil {
		return fmt.Errorf("dispatch resume: %w", err)
	}
	return nil
}

// Delete removes the résumé from both collections.
func (s *Service) Delete(ctx context.Context, id string) error {
	found := false
	for _, c := range []store.Collection{store.Raw, store.Processed} {
		doc, err := s.store.Read(ctx, c, id)
		if err != nil {
			return fmt.Errorf("read %s resume: %w", c, err)
		}
		if doc == nil {
			continue
		}
		found = true
		if err := s.store.Delete(ctx, c, id); err != nil {
			return fmt.Errorf("delete %s resume: %w", c, err)
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	slog.Info("resume deleted", "resume_id", id)
	return nil
}

// IsClientError reports whether err was caused by the uploaded file.
func IsClientError(err error) bool {
	return errors.Is(err, ErrTooLarge) || errors.Is(err, ErrInvalidFile)
}
