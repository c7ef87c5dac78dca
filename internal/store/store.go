// Package store persists résumé documents in two collections: raw uploads
// and processed results.
package store

import (
	"context"
	"errors"

	"github.com/nikhilbhutani/resumeprocessor/internal/models"
)

// Collection names a logical document collection.
type Collection string

const (
	Raw       Collection = "raw"
	Processed Collection = "processed"
)

// DefaultQueryLimit bounds Query when no limit is given.
const DefaultQueryLimit = 100

var (
	// ErrConflict is returned by Create when the id already exists.
	ErrConflict = errors.New("document already exists")
	// ErrTransient marks backend failures worth retrying.
	ErrTransient = errors.New("transient store failure")
	// ErrUnknownCollection is returned for a collection the store does not hold.
	ErrUnknownCollection = errors.New("unknown collection")
)

// Store is the document persistence contract. Read returns (nil, nil) for a
// missing id and Delete of a missing id is a no-op.
type Store interface {
	Create(ctx context.Context, c Collection, doc *models.ResumeDocument) error
	Read(ctx context.Context, c Collection, id string) (*models.ResumeDocument, error)
	Upsert(ctx context.Context, c Collection, doc *models.ResumeDocument) error
	Query(ctx context.Context, c Collection, opts QueryOptions) ([]*models.ResumeDocument, error)
	Delete(ctx context.Context, c Collection, id string) error
}

// QueryOptions filters Query by exact status and caps the result size.
// Results are ordered by upload date, newest first.
type QueryOptions struct {
	Status models.Status
	Limit  int
}

func (o QueryOptions) limit() int {
	if o.Limit <= 0 {
		return DefaultQueryLimit
	}
	return o.Limit
}

// Names maps logical collections onto physical container names.
type Names struct {
	Raw       string
	Processed string
}

func (n Names) physical(c Collection) (string, error) {
	switch c {
	case Raw:
		return n.Raw, nil
	case Processed:
		return n.Processed, nil
	}
	return "", ErrUnknownCollection
}

func validCollection(c Collection) error {
	if c != Raw && c != Processed {
		return ErrUnknownCollection
	}
	return nil
}
