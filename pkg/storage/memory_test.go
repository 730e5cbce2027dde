package storage_test

import (
	"errors"
	"testing"

	"github.com/absmach/flaas/pkg/storage"
	"github.com/absmach/flaas/pkg/storage/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepositories(t *testing.T) {
	testutil.RunRepositoryTests(t, func(*testing.T) *storage.Repositories {
		return storage.NewInMemoryRepositories()
	})
}

func TestNewRepositories(t *testing.T) {
	cases := []struct {
		desc string
		cfg  storage.Config
		err  error
	}{
		{desc: "memory", cfg: storage.Config{Type: "memory"}},
		{desc: "unsupported", cfg: storage.Config{Type: "cassandra"}, err: storage.ErrUnsupportedType},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			repos, err := storage.NewRepositories(tc.cfg)
			if tc.err != nil {
				assert.True(t, errors.Is(err, tc.err), "expected %v, got %v", tc.err, err)

				return
			}
			require.NoError(t, err)
			assert.NotNil(t, repos.Projects)
			assert.Nil(t, repos.Closer)
		})
	}
}
