package progress

import (
	"context"
	"sync"

	"github.com/yungbote/learndb-studio/internal/domain/learndb"
)

type MemoryStore struct {
	mu   sync.Mutex
	data map[string]learndb.Progression
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]learndb.Progression{}}
}

func (s *MemoryStore) Load(_ context.Context, profileID string) (learndb.Progression, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data[profileID]
	if !ok {
		return learndb.NewProgression(), nil
	}
	return p.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, profileID string, p learndb.Progression) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[profileID] = p.Clone()
	return nil
}
