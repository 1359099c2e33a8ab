package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	cloudbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/angelmondragon/giftops-backend/internal/analytics/types"
	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
)

const (
	// latest status per order inside the window
	ordersByStatusSQL = `
SELECT status, COUNT(*) AS orders FROM (
  SELECT aggregate_id, ARRAY_AGG(status ORDER BY occurred_at DESC LIMIT 1)[OFFSET(0)] AS status
  FROM %s
  WHERE aggregate_type = 'order'
    AND status IS NOT NULL
    AND NOT STARTS_WITH(status, 'payment_')
    AND occurred_at BETWEEN @start AND @end
  GROUP BY aggregate_id
)
GROUP BY status
ORDER BY orders DESC
`

	totalsSQL = `
SELECT
  COUNTIF(event_type = 'order.created') AS orders_created,
  CAST(COALESCE(SUM(IF(event_type = 'order.payment_updated' AND status = 'payment_paid', SAFE_CAST(amount AS NUMERIC), 0)), 0) AS STRING) AS revenue,
  CAST(COALESCE(SUM(IF(event_type = 'invoice.status_changed' AND status = 'paid', SAFE_CAST(amount AS NUMERIC), 0)), 0) AS STRING) AS invoices_paid
FROM %s
WHERE occurred_at BETWEEN @start AND @end
`
)

// Runner executes parameterized SQL. *bigquery.Client from pkg/bigquery
// satisfies it.
type Runner interface {
	Query(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (*cloudbigquery.RowIterator, error)
	QualifiedTable(table string) string
}

type SummaryService interface {
	Summary(ctx context.Context, req types.SummaryRequest) (*types.Summary, error)
}

type summaryService struct {
	client   Runner
	tableRef string
}

func NewSummaryService(client Runner, table string) (SummaryService, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}
	ref := client.QualifiedTable(table)
	if ref == "" {
		return nil, fmt.Errorf("lifecycle table required")
	}
	return &summaryService{client: client, tableRef: ref}, nil
}

func (s *summaryService) Summary(ctx context.Context, req types.SummaryRequest) (*types.Summary, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	params := []cloudbigquery.QueryParameter{
		{Name: "start", Value: req.Since.UTC()},
		{Name: "end", Value: req.Until.UTC()},
	}

	out := &types.Summary{Since: req.Since.UTC(), Until: req.Until.UTC(), OrdersByStatus: []types.StatusCount{}}

	it, err := s.client.Query(ctx, fmt.Sprintf(ordersByStatusSQL, s.tableRef), params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query orders by status")
	}
	for {
		var row struct {
			Status string `bigquery:"status"`
			Orders int64  `bigquery:"orders"`
		}
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read orders by status")
		}
		out.OrdersByStatus = append(out.OrdersByStatus, types.StatusCount{Status: row.Status, Orders: row.Orders})
	}

	it, err = s.client.Query(ctx, fmt.Sprintf(totalsSQL, s.tableRef), params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query totals")
	}
	var totals struct {
		OrdersCreated int64  `bigquery:"orders_created"`
		Revenue       string `bigquery:"revenue"`
		InvoicesPaid  string `bigquery:"invoices_paid"`
	}
	if err := it.Next(&totals); err != nil && !errors.Is(err, iterator.Done) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read totals")
	}
	out.OrdersCreated = totals.OrdersCreated
	out.Revenue = orZero(totals.Revenue)
	out.InvoicesPaid = orZero(totals.InvoicesPaid)
	return out, nil
}

// ValidateRequest rejects empty or inverted windows and windows over a year.
func ValidateRequest(req types.SummaryRequest) error {
	if req.Since.IsZero() || req.Until.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "since and until are required")
	}
	if !req.Until.After(req.Since) {
		return pkgerrors.New(pkgerrors.CodeValidation, "until must be after since")
	}
	if req.Until.Sub(req.Since) > 366*24*time.Hour {
		return pkgerrors.New(pkgerrors.CodeValidation, "window may not exceed one year")
	}
	return nil
}

func orZero(v string) string {
	if v == "" {
		return "0"
	}
	return v
}
