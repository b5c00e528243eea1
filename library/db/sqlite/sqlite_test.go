package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Laisky/dataroom/library/log"
)

// TestNewGormDB verifies a database file is created with foreign keys on.
func TestNewGormDB(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dataroom.db")
	db, err := NewGormDB(path, log.Logger.Named("test"), false)
	require.NoError(t, err)

	var enabled int
	require.NoError(t, db.Raw("PRAGMA foreign_keys").Scan(&enabled).Error)
	require.Equal(t, 1, enabled)
	require.FileExists(t, path)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func TestNewGormDBRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := NewGormDB("", log.Logger.Named("test"), false)
	require.Error(t, err)
}

// TestLowerFuncFoldsUnicode verifies the registered lower function handles
// non-ASCII letters where the builtin LOWER does not.
func TestLowerFuncFoldsUnicode(t *testing.T) {
	t.Parallel()

	db, err := NewGormDB(filepath.Join(t.TempDir(), "fold.db"), log.Logger.Named("test"), false)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	var folded, builtin string
	require.NoError(t, db.Raw("SELECT "+LowerFunc+"(?)", "RÉSUMÉ Ünïcode").Scan(&folded).Error)
	require.Equal(t, "résumé ünïcode", folded)
	require.NoError(t, db.Raw("SELECT LOWER(?)", "RÉSUMÉ").Scan(&builtin).Error)
	require.Equal(t, "rÉsumÉ", builtin)

	var matched int
	require.NoError(t, db.Raw("SELECT "+LowerFunc+"(?) LIKE "+LowerFunc+"(?)", "Ünïcode RÉSUMÉ body", "%résumé%").Scan(&matched).Error)
	require.Equal(t, 1, matched)
}
