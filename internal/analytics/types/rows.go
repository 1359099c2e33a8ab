package types

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// LifecycleRow is one row of order_lifecycle_events.
type LifecycleRow struct {
	EventID       string              `bigquery:"event_id"`
	EventType     string              `bigquery:"event_type"`
	AggregateType string              `bigquery:"aggregate_type"`
	AggregateID   string              `bigquery:"aggregate_id"`
	Status        bigquery.NullString `bigquery:"status"`
	ActorRole     bigquery.NullString `bigquery:"actor_role"`
	// Amount is NUMERIC in the table; it is streamed as a decimal string.
	Amount     bigquery.NullString `bigquery:"amount"`
	OccurredAt time.Time           `bigquery:"occurred_at"`
}

// LifecycleSchema is the table layout inferred from LifecycleRow, with the
// amount column widened to NUMERIC.
func LifecycleSchema() (bigquery.Schema, error) {
	schema, err := bigquery.InferSchema(LifecycleRow{})
	if err != nil {
		return nil, err
	}
	for _, field := range schema {
		if field.Name == "amount" {
			field.Type = bigquery.NumericFieldType
		}
	}
	return schema, nil
}
