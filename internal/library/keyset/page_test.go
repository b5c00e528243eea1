package keyset

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type pageRow struct {
	ID        int64 `gorm:"primaryKey"`
	CreatedAt time.Time
}

func (pageRow) TableName() string { return "page_rows" }

func pageRowKey(r pageRow) (time.Time, int64) { return r.CreatedAt, r.ID }

// newPageDB seeds rows where several share a timestamp so the id tie-break matters.
func newPageDB(t *testing.T, n int) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s-%d?mode=memory&cache=shared", t.Name(), time.Now().UTC().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&pageRow{}))

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		// every three consecutive ids share one timestamp
		at := base.Add(time.Duration((i-1)/3) * time.Second)
		require.NoError(t, db.Create(&pageRow{ID: int64(i), CreatedAt: at}).Error)
	}
	return db
}

// TestClampLimit verifies defaults and bounds for page sizes.
func TestClampLimit(t *testing.T) {
	t.Parallel()

	require.Equal(t, 50, ClampLimit(0, 50, 200))
	require.Equal(t, 50, ClampLimit(-3, 50, 200))
	require.Equal(t, 200, ClampLimit(1000, 50, 200))
	require.Equal(t, 7, ClampLimit(7, 50, 200))
	require.Equal(t, 20, ClampLimit(0, 100, 20))
	require.Equal(t, 1, ClampLimit(5, 5, 0))
}

// TestTrim verifies the next cursor is taken from the last kept row.
func TestTrim(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []pageRow{
		{ID: 3, CreatedAt: base.Add(2 * time.Second)},
		{ID: 2, CreatedAt: base.Add(time.Second)},
		{ID: 1, CreatedAt: base},
	}

	page := Trim(rows, 2, pageRowKey)
	require.Len(t, page.Items, 2)
	require.NotNil(t, page.NextCursor)

	pos, err := Decode(*page.NextCursor)
	require.NoError(t, err)
	require.Equal(t, int64(2), pos.ID)
	require.True(t, base.Add(time.Second).Equal(pos.CreatedAt))

	page = Trim(rows, 3, pageRowKey)
	require.Len(t, page.Items, 3)
	require.Nil(t, page.NextCursor)

	page = Trim(rows, 0, pageRowKey)
	require.Empty(t, page.Items)
	require.Nil(t, page.NextCursor)
}

// TestScopeVisitsEveryRowOnce verifies full iteration is complete and ordered for every page size.
func TestScopeVisitsEveryRowOnce(t *testing.T) {
	t.Parallel()

	const total = 11
	db := newPageDB(t, total)

	for limit := 1; limit <= total+1; limit++ {
		var (
			seen   []int64
			cursor *string
			calls  int
		)
		for {
			calls++
			require.LessOrEqual(t, calls, total+2, "pagination must make progress")

			var pos *Position
			if cursor != nil {
				decoded, err := Decode(*cursor)
				require.NoError(t, err)
				pos = &decoded
			}

			var rows []pageRow
			require.NoError(t, db.Model(&pageRow{}).Scopes(Scope("page_rows", pos, limit)).Find(&rows).Error)

			page := Trim(rows, limit, pageRowKey)
			require.LessOrEqual(t, len(page.Items), limit)
			for _, r := range page.Items {
				seen = append(seen, r.ID)
			}
			if page.NextCursor == nil {
				break
			}
			cursor = page.NextCursor
		}

		expected := make([]int64, 0, total)
		for i := total; i >= 1; i-- {
			expected = append(expected, int64(i))
		}
		require.Equal(t, expected, seen, "limit=%d", limit)
	}
}

// TestMapKeepsCursor verifies item conversion preserves the next cursor.
func TestMapKeepsCursor(t *testing.T) {
	t.Parallel()

	next := "abc"
	page := Map(Page[int]{Items: []int{1, 2}, NextCursor: &next}, func(v int) string { return fmt.Sprint(v * 10) })
	require.Equal(t, []string{"10", "20"}, page.Items)
	require.Equal(t, &next, page.NextCursor)
}
