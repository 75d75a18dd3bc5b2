package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"tiquetera/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   NewFileStore(filepath.Join(t.TempDir(), "nested", "session.json")),
		"redis":  NewRedisStore(cache.NewMemory(), "test", 0),
	}
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load(ctx)
			assert.ErrorIs(t, err, ErrNoSession)

			token, err := store.Token(ctx)
			require.NoError(t, err)
			assert.Empty(t, token)

			want := Session{Token: "tok-1", User: User{ID: 7, Username: "ana", Email: "ana@example.com"}}
			require.NoError(t, store.Save(ctx, want))

			got, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			token, err = store.Token(ctx)
			require.NoError(t, err)
			assert.Equal(t, "tok-1", token)

			require.NoError(t, store.Clear(ctx))
			require.NoError(t, store.Clear(ctx))
			_, err = store.Load(ctx)
			assert.ErrorIs(t, err, ErrNoSession)
		})
	}
}

func TestFileStorePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path)
	require.NoError(t, store.Save(context.Background(), Session{Token: "x"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	_, err := NewFileStore(path).Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSession)
}
