package factory

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pg "github.com/localforge/localforge/internal/store/postgres"
	sq "github.com/localforge/localforge/internal/store/sqlite"
)

func TestNewFromDSNEmpty(t *testing.T) {
	_, err := NewFromDSN("   ")
	require.Error(t, err)
}

func TestNewFromDSNSQLiteScheme(t *testing.T) {
	st, err := NewFromDSN("sqlite://" + filepath.Join(t.TempDir(), "a.db"))
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	assert.IsType(t, &sq.DB{}, st)
}

func TestNewFromDSNBarePathIsSQLite(t *testing.T) {
	st, err := NewFromDSN(filepath.Join(t.TempDir(), "b.db"))
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	assert.IsType(t, &sq.DB{}, st)
}

func TestNewFromDSNPostgresSchemes(t *testing.T) {
	for _, dsn := range []string{
		"postgres://user:pw@127.0.0.1:5432/localforge",
		"postgresql://user:pw@127.0.0.1:5432/localforge",
	} {
		st, err := NewFromDSN(dsn)
		require.NoError(t, err, dsn)
		assert.IsType(t, &pg.DB{}, st)
		_ = st.Close()
	}
}
