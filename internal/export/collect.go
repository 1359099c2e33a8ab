package export

import (
	"context"

	"github.com/angelmondragon/giftops-backend/pkg/pagination"
)

// MaxRows caps a single download.
const MaxRows = 10000

// PageFunc fetches one page starting at cursor.
type PageFunc[T any] func(ctx context.Context, cursor string) (*pagination.Page[T], error)

// Collect follows cursors until the listing is exhausted or MaxRows is reached.
func Collect[T any](ctx context.Context, fetch PageFunc[T]) ([]T, error) {
	var out []T
	cursor := ""
	for len(out) < MaxRows {
		page, err := fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Items...)
		if page.NextCursor == "" || len(page.Items) == 0 {
			break
		}
		cursor = page.NextCursor
	}
	if len(out) > MaxRows {
		out = out[:MaxRows]
	}
	return out, nil
}
