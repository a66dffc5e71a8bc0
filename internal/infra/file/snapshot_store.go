// Package file persists the engine snapshot as a YAML document on local disk,
// for single-host deployments without Redis.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// SnapshotStore writes the flat snapshot record under a namespace key:
//
//	flags:
//	  phase: question
//	  timerRemaining: "12"
type SnapshotStore struct {
	path      string
	namespace string
	mu        sync.Mutex
}

func NewSnapshotStore(path, namespace string) *SnapshotStore {
	return &SnapshotStore{path: path, namespace: namespace}
}

func (s *SnapshotStore) LoadRecord(_ context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	rec := doc[s.namespace]
	if rec == nil {
		rec = map[string]string{}
	}
	return rec, nil
}

// SaveRecord replaces the namespace's record. The file is written to a temp
// sibling and renamed so a crash mid-write leaves the previous snapshot intact.
func (s *SnapshotStore) SaveRecord(_ context.Context, record map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked()
	if err != nil {
		return err
	}
	doc[s.namespace] = record

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) readLocked() (map[string]map[string]string, error) {
	doc := map[string]map[string]string{}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if doc == nil {
		doc = map[string]map[string]string{}
	}
	return doc, nil
}
