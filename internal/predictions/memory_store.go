package predictions

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory implementation of Store
type MemoryStore struct {
	mu      sync.RWMutex
	records []*TransactionRecord
	nextID  int64
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (s *MemoryStore) Create(ctx context.Context, rec *TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = s.nextID
	s.nextID++

	stored := *rec
	stored.Reasons = append([]string(nil), rec.Reasons...)
	s.records = append(s.records, &stored)
	return nil
}

func (s *MemoryStore) ListByOwner(ctx context.Context, ownerID int64) ([]*TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*TransactionRecord
	for _, r := range s.records {
		if r.OwnerID == ownerID {
			copied := *r
			copied.Reasons = append([]string(nil), r.Reasons...)
			out = append(out, &copied)
		}
	}
	return out, nil
}
