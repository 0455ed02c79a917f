package storage

import (
	"context"
	"sync"

	"github.com/dealposter/internal/model"
)

const defaultMemoryCapacity = 50

// MemoryRunStore keeps the most recent runs in process memory. It is used
// when no database is configured.
type MemoryRunStore struct {
	mu         sync.RWMutex
	capacity   int
	runs       []model.Run
	deliveries map[string][]model.DeliveryRecord
}

func NewMemoryRunStore(capacity int) *MemoryRunStore {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemoryRunStore{
		capacity:   capacity,
		deliveries: make(map[string][]model.DeliveryRecord),
	}
}

func (s *MemoryRunStore) Create(ctx context.Context, run *model.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = append(s.runs, *run)
	if len(s.runs) > s.capacity {
		evicted := s.runs[0]
		delete(s.deliveries, evicted.ID)
		s.runs = s.runs[1:]
	}
	return nil
}

func (s *MemoryRunStore) Complete(ctx context.Context, run *model.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.runs {
		if s.runs[i].ID == run.ID {
			s.runs[i] = *run
			return nil
		}
	}
	return nil
}

func (s *MemoryRunStore) AddDelivery(ctx context.Context, rec model.DeliveryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deliveries[rec.RunID] = append(s.deliveries[rec.RunID], rec)
	return nil
}

func (s *MemoryRunStore) FindByID(ctx context.Context, id string) (*model.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.runs {
		if s.runs[i].ID == id {
			run := s.runs[i]
			return &run, nil
		}
	}
	return nil, nil
}

// FindRecent returns up to limit runs, newest first.
func (s *MemoryRunStore) FindRecent(ctx context.Context, limit int) ([]model.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.Run, 0, min(limit, len(s.runs)))
	for i := len(s.runs) - 1; i >= 0 && len(runs) < limit; i-- {
		runs = append(runs, s.runs[i])
	}
	return runs, nil
}

func (s *MemoryRunStore) FindDeliveries(ctx context.Context, runID string) ([]model.DeliveryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.DeliveryRecord(nil), s.deliveries[runID]...), nil
}
