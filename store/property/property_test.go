package property

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sabicash/sabicash/store/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *propertyStore {
	conn, err := db.Open(db.DriverSqlite, filepath.Join(t.TempDir(), "sabicash.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return New(conn, db.DriverSqlite).(*propertyStore)
}

func TestPropertyStore(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	t.Run("missing key leaves value untouched", func(t *testing.T) {
		v := "default"
		require.NoError(t, s.Get(ctx, "missing", &v))
		assert.Equal(t, "default", v)
	})

	t.Run("set then overwrite", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "offset", 1))
		require.NoError(t, s.Set(ctx, "offset", 2))

		var v int
		require.NoError(t, s.Get(ctx, "offset", &v))
		assert.Equal(t, 2, v)

		var version int
		require.NoError(t, s.db.QueryRowContext(ctx, "SELECT version FROM properties WHERE key = ?", "offset").Scan(&version))
		assert.Equal(t, 1, version)
	})

	t.Run("set many and delete", func(t *testing.T) {
		require.NoError(t, s.SetMany(ctx, map[string]any{
			"a": "x",
			"b": map[string]int{"n": 1},
		}))

		var a string
		var b map[string]int
		require.NoError(t, s.Get(ctx, "a", &a))
		require.NoError(t, s.Get(ctx, "b", &b))
		assert.Equal(t, "x", a)
		assert.Equal(t, 1, b["n"])

		require.NoError(t, s.Delete(ctx, "a", "b"))

		a = ""
		require.NoError(t, s.Get(ctx, "a", &a))
		assert.Empty(t, a)
	})
}
