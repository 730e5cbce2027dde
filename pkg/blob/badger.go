package blob

import (
	"context"
	"errors"
	"fmt"

	pkgerrors "github.com/absmach/flaas/pkg/errors"
	"github.com/dgraph-io/badger/v4"
)

var ErrBadger = errors.New("badger blob store error")

type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens a badger database at dir. An empty dir keeps the
// database in memory.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadger, err)
	}

	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) Read(_ context.Context, p string) ([]byte, error) {
	key, err := clean(p)
	if err != nil {
		return nil, err
	}

	var val []byte
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)

		return err
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return nil, fmt.Errorf("%w: %s", pkgerrors.ErrNotFound, key)
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrBadger, err)
	}

	return val, nil
}

func (s *BadgerStore) Write(_ context.Context, p string, data []byte) error {
	key, err := clean(p)
	if err != nil {
		return err
	}

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	}); err != nil {
		return fmt.Errorf("%w: %w", ErrBadger, err)
	}

	return nil
}

func (s *BadgerStore) Exists(ctx context.Context, p string) (bool, error) {
	_, err := s.Read(ctx, p)
	switch {
	case errors.Is(err, pkgerrors.ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	}

	return true, nil
}

func (s *BadgerStore) List(_ context.Context, p string) ([]string, []string, error) {
	prefix, err := clean(p)
	if err != nil {
		return nil, nil, err
	}

	var keys []string
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := []byte(prefix + "/")
		for it.Seek(seek); it.ValidForPrefix(seek); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}

		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrBadger, err)
	}

	dirs, files := children(prefix, keys)

	return dirs, files, nil
}

func (s *BadgerStore) Delete(_ context.Context, p string) error {
	key, err := clean(p)
	if err != nil {
		return err
	}

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	}); err != nil {
		return fmt.Errorf("%w: %w", ErrBadger, err)
	}
	if err := s.db.DropPrefix([]byte(key + "/")); err != nil {
		return fmt.Errorf("%w: %w", ErrBadger, err)
	}

	return nil
}
