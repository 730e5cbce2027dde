package blob

import (
	"context"
	"fmt"
	"strings"
	"sync"

	pkgerrors "github.com/absmach/flaas/pkg/errors"
)

type memoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() Store {
	return &memoryStore{data: make(map[string][]byte)}
}

func (s *memoryStore) Read(_ context.Context, p string) ([]byte, error) {
	key, err := clean(p)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", pkgerrors.ErrNotFound, key)
	}

	return append([]byte(nil), data...), nil
}

func (s *memoryStore) Write(_ context.Context, p string, data []byte) error {
	key, err := clean(p)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), data...)

	return nil
}

func (s *memoryStore) Exists(_ context.Context, p string) (bool, error) {
	key, err := clean(p)
	if err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]

	return ok, nil
}

func (s *memoryStore) List(_ context.Context, p string) ([]string, []string, error) {
	prefix, err := clean(p)
	if err != nil {
		return nil, nil, err
	}

	s.mu.RLock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	dirs, files := children(prefix, keys)

	return dirs, files, nil
}

func (s *memoryStore) Delete(_ context.Context, p string) error {
	key, err := clean(p)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for k := range s.data {
		if k == key || strings.HasPrefix(k, key+"/") {
			delete(s.data, k)
		}
	}

	return nil
}
