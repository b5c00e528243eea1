package dataroom

import (
	"strings"

	errors "github.com/Laisky/errors/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"github.com/Laisky/dataroom/library/db/sqlite"
)

const pgUniqueViolation = "23505"

var likeEscaper = strings.NewReplacer("\\", "\\\\", "%", "\\%", "_", "\\_")

// escapeLike escapes LIKE metacharacters so user input matches literally.
func escapeLike(raw string) string {
	return likeEscaper.Replace(raw)
}

// isPostgresDialect reports whether the gorm dialector is Postgres.
func isPostgresDialect(db *gorm.DB) bool {
	if db == nil || db.Dialector == nil {
		return false
	}
	return strings.EqualFold(db.Dialector.Name(), "postgres")
}

// isUniqueViolation recognizes unique constraint failures from gorm's
// translated error, pgx, and sqlite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// ilike renders a case-insensitive LIKE condition for column. Outside
// Postgres both sides go through the Unicode aware lower function
// registered by the sqlite driver.
func ilike(db *gorm.DB, column string) string {
	if isPostgresDialect(db) {
		return column + ` ILIKE ? ESCAPE '\'`
	}
	return sqlite.LowerFunc + "(" + column + ") LIKE " + sqlite.LowerFunc + `(?) ESCAPE '\'`
}

// containsPattern wraps escaped input for a substring match.
func containsPattern(raw string) string {
	return "%" + escapeLike(raw) + "%"
}
