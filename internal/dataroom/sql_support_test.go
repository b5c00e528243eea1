package dataroom

import (
	"testing"

	errors "github.com/Laisky/errors/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestEscapeLike(t *testing.T) {
	t.Parallel()

	require.Equal(t, `50\%\_off\\now`, escapeLike(`50%_off\now`))
	require.Equal(t, `%a\%b%`, containsPattern("a%b"))
	require.Equal(t, "plain", escapeLike("plain"))
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "gorm translated", err: errors.Wrap(gorm.ErrDuplicatedKey, "insert"), want: true},
		{name: "postgres unique", err: errors.Wrap(&pgconn.PgError{Code: "23505"}, "insert"), want: true},
		{name: "postgres fk", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "sqlite unique", err: sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, want: true},
		{name: "sqlite not null", err: sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintNotNull}, want: false},
		{name: "other", err: errors.New("boom"), want: false},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, isUniqueViolation(tc.err), tc.name)
	}
}

func TestIlike(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	require.False(t, isPostgresDialect(db))
	require.Equal(t, `dr_lower(files.name) LIKE dr_lower(?) ESCAPE '\'`, ilike(db, "files.name"))
	require.False(t, isPostgresDialect(nil))
}
