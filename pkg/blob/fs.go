package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	pkgerrors "github.com/absmach/flaas/pkg/errors"
)

type fsStore struct {
	root string
}

// NewFSStore keeps blobs as plain files below root.
func NewFSStore(root string) (Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob root: %w", err)
	}

	return &fsStore{root: root}, nil
}

func (s *fsStore) resolve(p string) (string, error) {
	key, err := clean(p)
	if err != nil {
		return "", err
	}

	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

func (s *fsStore) Read(_ context.Context, p string) ([]byte, error) {
	name, err := s.resolve(p)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", pkgerrors.ErrNotFound, p)
	}

	return data, err
}

func (s *fsStore) Write(_ context.Context, p string, data []byte) error {
	name, err := s.resolve(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(name), ".blob-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return err
	}

	return os.Rename(tmp.Name(), name)
}

func (s *fsStore) Exists(_ context.Context, p string) (bool, error) {
	name, err := s.resolve(p)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(name)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	case err != nil:
		return false, err
	}

	return !info.IsDir(), nil
}

func (s *fsStore) List(_ context.Context, p string) ([]string, []string, error) {
	name, err := s.resolve(p)
	if err != nil {
		return nil, nil, err
	}

	entries, err := os.ReadDir(name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	var dirs, files []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())

			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(dirs)
	sort.Strings(files)

	return dirs, files, nil
}

func (s *fsStore) Delete(_ context.Context, p string) error {
	name, err := s.resolve(p)
	if err != nil {
		return err
	}

	return os.RemoveAll(name)
}
