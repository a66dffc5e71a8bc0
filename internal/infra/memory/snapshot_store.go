package memory

import (
	"context"
	"sync"
)

// SnapshotStore keeps the snapshot record in process memory. It survives engine
// restarts within one process, which is all tests and demos need.
type SnapshotStore struct {
	mu     sync.RWMutex
	record map[string]string
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{record: make(map[string]string)}
}

func (s *SnapshotStore) LoadRecord(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRecord(s.record), nil
}

func (s *SnapshotStore) SaveRecord(_ context.Context, record map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = copyRecord(record)
	return nil
}

func copyRecord(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
