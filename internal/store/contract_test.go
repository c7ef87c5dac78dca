package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/resumeprocessor/internal/models"
)

func rawDoc(id string, status models.Status, uploaded time.Time) *models.ResumeDocument {
	return &models.ResumeDocument{
		ID:         id,
		Filename:   id + ".txt",
		UploadDate: uploaded.UTC(),
		Status:     status,
		RawText:    "Jane Doe, jane@x.com",
	}
}

// runContract exercises the behaviour every Store implementation shares.
func runContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("create then read", func(t *testing.T) {
		s := newStore(t)
		doc := rawDoc("doc-1", models.StatusPending, base)
		require.NoError(t, s.Create(ctx, Raw, doc))

		got, err := s.Read(ctx, Raw, "doc-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, doc.Filename, got.Filename)
		assert.Equal(t, models.StatusPending, got.Status)
		assert.True(t, doc.UploadDate.Equal(got.UploadDate))
	})

	t.Run("create duplicate conflicts", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, Raw, rawDoc("dup", models.StatusPending, base)))
		err := s.Create(ctx, Raw, rawDoc("dup", models.StatusPending, base))
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("collections are independent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, Raw, rawDoc("same", models.StatusPending, base)))
		require.NoError(t, s.Create(ctx, Processed, rawDoc("same", models.StatusCompleted, base)))

		got, err := s.Read(ctx, Processed, "same")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, got.Status)
	})

	t.Run("read absent returns nil", func(t *testing.T) {
		s := newStore(t)
		got, err := s.Read(ctx, Processed, "missing")
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("delete absent is a no-op", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Delete(ctx, Raw, "missing"))
	})

	t.Run("upsert replaces", func(t *testing.T) {
		s := newStore(t)
		doc := rawDoc("up", models.StatusPending, base)
		require.NoError(t, s.Upsert(ctx, Raw, doc))

		doc.Status = models.StatusFailed
		doc.Error = "boom"
		require.NoError(t, s.Upsert(ctx, Raw, doc))

		got, err := s.Read(ctx, Raw, "up")
		require.NoError(t, err)
		assert.Equal(t, models.StatusFailed, got.Status)
		assert.Equal(t, "boom", got.Error)
	})

	t.Run("delete removes", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, Raw, rawDoc("gone", models.StatusPending, base)))
		require.NoError(t, s.Delete(ctx, Raw, "gone"))

		got, err := s.Read(ctx, Raw, "gone")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("query orders filters and limits", func(t *testing.T) {
		s := newStore(t)
		for i := 0; i < 5; i++ {
			status := models.StatusPending
			if i%2 == 0 {
				status = models.StatusCompleted
			}
			require.NoError(t, s.Create(ctx, Raw, rawDoc(fmt.Sprintf("q-%d", i), status, base.Add(time.Duration(i)*time.Hour))))
		}

		all, err := s.Query(ctx, Raw, QueryOptions{})
		require.NoError(t, err)
		require.Len(t, all, 5)
		assert.Equal(t, "q-4", all[0].ID)
		assert.Equal(t, "q-0", all[4].ID)

		completed, err := s.Query(ctx, Raw, QueryOptions{Status: models.StatusCompleted})
		require.NoError(t, err)
		require.Len(t, completed, 3)
		for _, d := range completed {
			assert.Equal(t, models.StatusCompleted, d.Status)
		}

		limited, err := s.Query(ctx, Raw, QueryOptions{Limit: 2})
		require.NoError(t, err)
		require.Len(t, limited, 2)
		assert.Equal(t, []string{"q-4", "q-3"}, []string{limited[0].ID, limited[1].ID})
	})

	t.Run("concurrent read-modify-upsert is last write wins", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, Raw, rawDoc("race", models.StatusPending, base)))

		attempted := []models.Status{models.StatusProcessing, models.StatusFailed}
		var wg sync.WaitGroup
		for _, st := range attempted {
			wg.Add(1)
			go func(st models.Status) {
				defer wg.Done()
				doc, err := s.Read(ctx, Raw, "race")
				if !assert.NoError(t, err) || !assert.NotNil(t, doc) {
					return
				}
				doc.Status = st
				assert.NoError(t, s.Upsert(ctx, Raw, doc))
			}(st)
		}
		wg.Wait()

		got, err := s.Read(ctx, Raw, "race")
		require.NoError(t, err)
		assert.Contains(t, attempted, got.Status)
		assert.Equal(t, "race.txt", got.Filename)
		assert.Equal(t, "Jane Doe, jane@x.com", got.RawText)
	})
}
