package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLock_SingleWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.lock")
	first := NewFileLock(path)
	second := NewFileLock(path)

	require.NoError(t, first.Acquire())
	assert.ErrorIs(t, second.Acquire(), ErrLocked)

	require.NoError(t, first.Release())
	require.NoError(t, second.Acquire())
	require.NoError(t, second.Release())
	assert.Equal(t, path, first.Path())
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()

	st, err := Open(ctx, Options{Driver: DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, st)

	st, err = Open(ctx, Options{Driver: DriverSQLite, DatabaseURL: filepath.Join(t.TempDir(), "leads.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, st)
	require.NoError(t, st.Close())

	st, err = Open(ctx, Options{Driver: DriverNotion, NotionToken: "secret", NotionDB: "db"})
	require.NoError(t, err)
	assert.IsType(t, &NotionStore{}, st)
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"unknown", Options{Driver: "mysql"}, `unknown driver "mysql"`},
		{"postgres without url", Options{Driver: DriverPostgres}, "requires database_url"},
		{"notion without db", Options{Driver: DriverNotion, NotionToken: "x"}, "requires token and lead_db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(ctx, tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
