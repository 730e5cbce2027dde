package sqlite_test

import (
	"path/filepath"
	"testing"

	"github.com/absmach/flaas/pkg/storage"
	"github.com/absmach/flaas/pkg/storage/sqlite"
	"github.com/absmach/flaas/pkg/storage/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepos(t *testing.T) *storage.Repositories {
	t.Helper()

	repos, err := storage.NewRepositories(storage.Config{
		Type:       "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { repos.Closer.Close() })

	return repos
}

func TestRepositories(t *testing.T) {
	testutil.RunRepositoryTests(t, newTestRepos)
}

func TestNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flaas.db")

	db, err := sqlite.NewDatabase(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened, err := sqlite.NewDatabase(path)
	require.NoError(t, err, "migrations must be re-applicable to an existing file")
	defer reopened.Close()

	var fk int
	require.NoError(t, reopened.Get(&fk, `PRAGMA foreign_keys`))
	assert.Equal(t, 1, fk)
}
