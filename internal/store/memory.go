package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/nikhilbhutani/resumeprocessor/internal/models"
)

// MemoryStore keeps documents in process. Documents are stored encoded so
// callers never share memory with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[Collection]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: map[Collection]map[string][]byte{
			Raw:       {},
			Processed: {},
		},
	}
}

func (s *MemoryStore) Create(_ context.Context, c Collection, doc *models.ResumeDocument) error {
	if err := validCollection(c); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[c][doc.ID]; ok {
		return fmt.Errorf("%w: %s/%s", ErrConflict, c, doc.ID)
	}
	s.docs[c][doc.ID] = data
	return nil
}

func (s *MemoryStore) Read(_ context.Context, c Collection, id string) (*models.ResumeDocument, error) {
	if err := validCollection(c); err != nil {
		return nil, err
	}

	s.mu.RLock()
	data, ok := s.docs[c][id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return decode(data)
}

func (s *MemoryStore) Upsert(_ context.Context, c Collection, doc *models.ResumeDocument) error {
	if err := validCollection(c); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	s.mu.Lock()
	s.docs[c][doc.ID] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Query(_ context.Context, c Collection, opts QueryOptions) ([]*models.ResumeDocument, error) {
	if err := validCollection(c); err != nil {
		return nil, err
	}

	s.mu.RLock()
	docs := make([]*models.ResumeDocument, 0, len(s.docs[c]))
	for _, data := range s.docs[c] {
		doc, err := decode(data)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		if opts.Status != "" && doc.Status != opts.Status {
			continue
		}
		docs = append(docs, doc)
	}
	s.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		if docs[i].UploadDate.Equal(docs[j].UploadDate) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].UploadDate.After(docs[j].UploadDate)
	})
	if limit := opts.limit(); len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (s *MemoryStore) Delete(_ context.Context, c Collection, id string) error {
	if err := validCollection(c); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.docs[c], id)
	s.mu.Unlock()
	return nil
}

func decode(data []byte) (*models.ResumeDocument, error) {
	var doc models.ResumeDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}
