package writer

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/giftops-backend/internal/analytics/types"
)

// Inserter is satisfied by *bigquery.Client from pkg/bigquery.
type Inserter interface {
	InsertRows(ctx context.Context, table string, rows any) error
}

type Config struct {
	LifecycleTable string
	// BatchSize rows are buffered before an insert. One means every row is
	// written synchronously.
	BatchSize int
	// FlushInterval bounds how long a partial batch waits when Run is active.
	FlushInterval time.Duration
	Retry         Backoff
}

// Backoff is an exponential schedule with full jitter, capped at Max.
type Backoff struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

func (b Backoff) withDefaults() Backoff {
	if b.Attempts <= 0 {
		b.Attempts = 3
	}
	if b.Base <= 0 {
		b.Base = 250 * time.Millisecond
	}
	if b.Max <= 0 {
		b.Max = 2 * time.Second
	}
	if b.Max < b.Base {
		b.Max = b.Base
	}
	return b
}

// delay returns the wait before retry n (starting at 1).
func (b Backoff) delay(n int) time.Duration {
	ceiling := b.Base << (n - 1)
	if ceiling <= 0 || ceiling > b.Max {
		ceiling = b.Max
	}
	return ceiling/2 + rand.N(ceiling/2+1)
}

// LifecycleWriter streams order lifecycle rows into BigQuery.
type LifecycleWriter struct {
	client   Inserter
	table    string
	batch    int
	interval time.Duration
	retry    Backoff
	sleep    func(context.Context, time.Duration) error

	mu      sync.Mutex
	pending []*types.LifecycleRow
}

func New(client Inserter, cfg Config) (*LifecycleWriter, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	table := strings.TrimSpace(cfg.LifecycleTable)
	if table == "" {
		return nil, errors.New("lifecycle table is required")
	}
	w := &LifecycleWriter{
		client:   client,
		table:    table,
		batch:    max(cfg.BatchSize, 1),
		interval: cfg.FlushInterval,
		retry:    cfg.Retry.withDefaults(),
		sleep:    sleepCtx,
	}
	if w.interval <= 0 {
		w.interval = 5 * time.Second
	}
	return w, nil
}

// InsertLifecycle queues row and writes the batch once it is full.
func (w *LifecycleWriter) InsertLifecycle(ctx context.Context, row types.LifecycleRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, &row)
	if len(w.pending) < w.batch {
		return nil
	}
	return w.drain(ctx)
}

// Flush writes whatever is queued.
func (w *LifecycleWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.drain(ctx)
}

// Pending reports how many rows are waiting for the next insert.
func (w *LifecycleWriter) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Run flushes partial batches on the configured interval until ctx ends,
// then makes one last attempt with a fresh deadline.
func (w *LifecycleWriter) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.interval)
			defer cancel()
			return w.Flush(final)
		case <-ticker.C:
			if err := w.Flush(ctx); err != nil && ctx.Err() == nil {
				return err
			}
		}
	}
}

// drain must be called with mu held. Rows are dropped after the last attempt
// so one poisoned batch cannot wedge the stream.
func (w *LifecycleWriter) drain(ctx context.Context) error {
	if len(w.pending) == 0 {
		return nil
	}
	rows := withInsertIDs(w.pending)
	w.pending = nil

	var err error
	for attempt := 1; ; attempt++ {
		if err = w.client.InsertRows(ctx, w.table, rows); err == nil {
			return nil
		}
		if attempt >= w.retry.Attempts || !transient(err) {
			break
		}
		if serr := w.sleep(ctx, w.retry.delay(attempt)); serr != nil {
			return serr
		}
	}
	return fmt.Errorf("insert %d rows into %s: %w", len(rows), w.table, err)
}

// withInsertIDs keys each row by its event id so BigQuery drops the
// duplicates a retried insert would otherwise stream.
func withInsertIDs(rows []*types.LifecycleRow) []*cbigquery.StructSaver {
	out := make([]*cbigquery.StructSaver, len(rows))
	for i, row := range rows {
		out[i] = &cbigquery.StructSaver{Struct: row, InsertID: row.EventID}
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// transient is true only when every underlying failure is one BigQuery
// documents as safe to retry.
func transient(err error) bool {
	causes := leaves(err)
	if len(causes) == 0 {
		return false
	}
	for _, cause := range causes {
		if !transientLeaf(cause) {
			return false
		}
	}
	return true
}

// leaves flattens the multi-row error types returned by streaming inserts.
func leaves(err error) []error {
	if err == nil {
		return nil
	}
	var multi cbigquery.MultiError
	if errors.As(err, &multi) {
		return flatten(multi)
	}
	var put cbigquery.PutMultiError
	if errors.As(err, &put) {
		var out []error
		for _, rowErr := range put {
			out = append(out, flatten(rowErr.Errors)...)
		}
		return out
	}
	var row *cbigquery.RowInsertionError
	if errors.As(err, &row) && row != nil {
		return flatten(row.Errors)
	}
	return []error{err}
}

func flatten(errs cbigquery.MultiError) []error {
	var out []error
	for _, e := range errs {
		out = append(out, leaves(e)...)
	}
	return out
}

func transientLeaf(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusRequestTimeout,
			http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		switch st.Code() {
		case codes.Aborted, codes.DeadlineExceeded, codes.Internal,
			codes.ResourceExhausted, codes.Unavailable:
			return true
		}
	}
	return errors.Is(err, context.DeadlineExceeded)
}
