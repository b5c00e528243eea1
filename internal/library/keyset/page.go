package keyset

import (
	"time"

	"gorm.io/gorm"
)

// Page is one slice of a keyset-paginated listing.
type Page[T any] struct {
	Items      []T
	NextCursor *string
}

// ClampLimit bounds a requested page size to [1, max], using def when the
// request is not positive.
func ClampLimit(requested, def, max int) int {
	if max <= 0 {
		max = 1
	}
	if def <= 0 || def > max {
		def = max
	}
	switch {
	case requested <= 0:
		return def
	case requested > max:
		return max
	default:
		return requested
	}
}

// Scope restricts a query to rows strictly after pos in the canonical
// (created_at DESC, id DESC) order and fetches one extra row so Trim can
// tell whether another page exists. table qualifies the columns and may be
// empty.
func Scope(table string, pos *Position, limit int) func(*gorm.DB) *gorm.DB {
	createdAt, id := "created_at", "id"
	if table != "" {
		createdAt, id = table+".created_at", table+".id"
	}

	return func(db *gorm.DB) *gorm.DB {
		if pos != nil {
			db = db.Where("("+createdAt+" < ? OR ("+createdAt+" = ? AND "+id+" < ?))",
				pos.CreatedAt, pos.CreatedAt, pos.ID)
		}
		return db.Order(createdAt + " DESC").Order(id + " DESC").Limit(limit + 1)
	}
}

// Trim cuts rows fetched with Scope down to limit and builds the cursor
// for the next page from the last row kept.
func Trim[T any](rows []T, limit int, key func(T) (time.Time, int64)) Page[T] {
	if limit <= 0 {
		return Page[T]{Items: []T{}}
	}
	if len(rows) <= limit {
		return Page[T]{Items: rows}
	}

	rows = rows[:limit]
	createdAt, id := key(rows[limit-1])
	next := Encode(createdAt, id)
	return Page[T]{Items: rows, NextCursor: &next}
}

// Map converts page items while keeping the cursor.
func Map[T, U any](page Page[T], convert func(T) U) Page[U] {
	items := make([]U, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, convert(item))
	}
	return Page[U]{Items: items, NextCursor: page.NextCursor}
}
