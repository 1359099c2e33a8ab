package pagination

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestCursorRoundTrip(t *testing.T) {
	original := Cursor{CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 123, time.UTC), ID: uuid.New()}

	parsed, err := ParseCursor(EncodeCursor(original))
	require.NoError(t, err)
	require.NotNil(t, parsed)
	assert.True(t, original.CreatedAt.Equal(parsed.CreatedAt))
	assert.Equal(t, original.ID, parsed.ID)
}

func TestParseCursorEmptyAndInvalid(t *testing.T) {
	parsed, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, parsed)

	for _, bad := range []string{"not-base64!", EncodeCursor(Cursor{})[:4], "bm8tc2VwYXJhdG9y"} {
		_, err = ParseCursor(bad)
		assert.ErrorIs(t, err, ErrInvalidCursor, bad)
	}
}

func TestEncodedCursorIsQuerySafe(t *testing.T) {
	token := EncodeCursor(Cursor{CreatedAt: time.Now(), ID: uuid.New()})
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")
	assert.NotContains(t, token, "=")
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, MaxLimit, NormalizeLimit(1000))
	assert.Equal(t, 7, NormalizeLimit(7))
	assert.Equal(t, 8, LimitWithBuffer(7))
}

type row struct {
	id uuid.UUID
	at time.Time
}

func TestTrimSetsNextCursor(t *testing.T) {
	now := time.Now().UTC()
	rows := []row{{uuid.New(), now}, {uuid.New(), now.Add(-time.Minute)}, {uuid.New(), now.Add(-2 * time.Minute)}}
	key := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page := Trim(rows, 2, key)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)

	cursor, err := ParseCursor(page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, rows[1].id, cursor.ID)

	last := Trim(rows[:1], 2, key)
	assert.Empty(t, last.NextCursor)
	assert.Len(t, Trim[row](nil, 2, key).Items, 0)
}

type entry struct {
	ID        uuid.UUID `gorm:"type:text;primaryKey"`
	Label     string
	CreatedAt time.Time
}

func TestKeysetWalksEveryRowOnce(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&entry{}))

	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := range 5 {
		// two rows share each timestamp so the id tiebreak matters
		at := base.Add(time.Duration(i/2) * time.Minute)
		require.NoError(t, conn.Create(&entry{ID: uuid.New(), Label: fmt.Sprint(i), CreatedAt: at}).Error)
	}

	key := func(e entry) Cursor { return Cursor{CreatedAt: e.CreatedAt, ID: e.ID} }
	seen := map[uuid.UUID]bool{}
	var cursor *Cursor
	for pages := 0; ; pages++ {
		require.Less(t, pages, 5, "pagination did not terminate")
		var rows []entry
		require.NoError(t, conn.Model(&entry{}).Scopes(Keyset(cursor, LimitWithBuffer(2))).Find(&rows).Error)
		page := Trim(rows, 2, key)
		for _, e := range page.Items {
			assert.False(t, seen[e.ID], "row %s returned twice", e.Label)
			seen[e.ID] = true
		}
		if page.NextCursor == "" {
			break
		}
		cursor, err = ParseCursor(page.NextCursor)
		require.NoError(t, err)
	}
	assert.Len(t, seen, 5)
}
