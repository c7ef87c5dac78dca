package store

import (
	"context"
	"errors"

	"github.com/nikhilbhutani/resumeprocessor/internal/models"
	"github.com/nikhilbhutani/resumeprocessor/internal/retry"
)

// Retrying retries transient failures of the wrapped store with backoff.
type Retrying struct {
	inner  Store
	policy retry.Policy
}

func NewRetrying(inner Store, policy retry.Policy) *Retrying {
	policy.Retryable = func(err error) bool { return errors.Is(err, ErrTransient) }
	return &Retrying{inner: inner, policy: policy}
}

func (r *Retrying) Create(ctx context.Context, c Collection, doc *models.ResumeDocument) error {
	return r.policy.Do(ctx, func(ctx context.Context) error {
		return r.inner.Create(ctx, c, doc)
	})
}

func (r *Retrying) Read(ctx context.Context, c Collection, id string) (*models.ResumeDocument, error) {
	var doc *models.ResumeDocument
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		doc, err = r.inner.Read(ctx, c, id)
		return err
	})
	return doc, err
}

func (r *Retrying) Upsert(ctx context.Context, c Collection, doc *models.ResumeDocument) error {
	return r.policy.Do(ctx, func(ctx context.Context) error {
		return r.inner.Upsert(ctx, c, doc)
	})
}

func (r *Retrying) Query(ctx context.Context, c Collection, opts QueryOptions) ([]*models.ResumeDocument, error) {
	var docs []*models.ResumeDocument
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		docs, err = r.inner.Query(ctx, c, opts)
		return err
	})
	return docs, err
}

func (r *Retrying) Delete(ctx context.Context, c Collection, id string) error {
	return r.policy.Do(ctx, func(ctx context.Context) error {
		return r.inner.Delete(ctx, c, id)
	})
}
