package record

import (
	"context"
	"sort"
	"sync"
)

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory implementation of Store.
// It uses maps with an RWMutex for thread-safe access.
// Suitable for development and testing; swap for PostgresStore in production.
type MemoryStore struct {
	mu         sync.RWMutex
	recordings map[string]*Recording
	summaries  map[string]*Summary
}

// NewMemoryStore creates a new in-memory record store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		recordings: make(map[string]*Recording),
		summaries:  make(map[string]*Summary),
	}
}

// SaveRecording upserts a recording. Stores a clone to avoid external mutations.
func (s *MemoryStore) SaveRecording(_ context.Context, rec *Recording) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordings[rec.FileID] = rec.Clone()
	return nil
}

// GetRecording retrieves a recording by file ID.
// Returns a clone to prevent external mutations.
func (s *MemoryStore) GetRecording(_ context.Context, fileID string) (*Recording, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recordings[fileID]
	if !ok {
		return nil, ErrRecordingNotFound
	}
	return rec.Clone(), nil
}

// ListRecordings returns all recordings matching the status filter, newest first.
func (s *MemoryStore) ListRecordings(_ context.Context, status Status) ([]*Recording, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Recording, 0, len(s.recordings))
	for _, rec := range s.recordings {
		if status != "" && rec.Status != status {
			continue
		}
		result = append(result, rec.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// SaveSummary upserts a summary. Stores a clone to avoid external mutations.
func (s *MemoryStore) SaveSummary(_ context.Context, sum *Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[sum.FileID] = sum.Clone()
	return nil
}

// GetSummaryForRecording retrieves the summary for a recording.
func (s *MemoryStore) GetSummaryForRecording(_ context.Context, fileID string) (*Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum, ok := s.summaries[fileID]
	if !ok {
		return nil, ErrSummaryNotFound
	}
	return sum.Clone(), nil
}

// ListSummaries returns all summaries matching the status filter, newest first.
func (s *MemoryStore) ListSummaries(_ context.Context, status Status) ([]*Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Summary, 0, len(s.summaries))
	for _, sum := range s.summaries {
		if status != "" && sum.Status != status {
			continue
		}
		result = append(result, sum.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}
