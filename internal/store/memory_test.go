package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/resumeprocessor/internal/models"
)

func TestMemoryStore_Contract(t *testing.T) {
	runContract(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	doc := rawDoc("copy", models.StatusPending, time.Now())
	require.NoError(t, s.Create(ctx, Raw, doc))

	doc.Status = models.StatusFailed
	got, err := s.Read(ctx, Raw, "copy")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)

	got.Status = models.StatusCompleted
	again, err := s.Read(ctx, Raw, "copy")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, again.Status)
}

func TestMemoryStore_UnknownCollection(t *testing.T) {
	_, err := NewMemoryStore().Read(context.Background(), Collection("archive"), "x")
	assert.ErrorIs(t, err, ErrUnknownCollection)
}
