package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/angelmondragon/giftops-backend/pkg/config"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
)

const metadataCheckTimeout = 10 * time.Second

var (
	errProjectIDRequired    = errors.New("gcp project id is required")
	errDatasetRequired      = errors.New("bigquery dataset is required")
	errTableNameRequired    = errors.New("bigquery table name is required")
	errClientNotInitialized = errors.New("bigquery client not initialized")
)

// TableSpec describes a table the caller depends on.
type TableSpec struct {
	Name   string
	Schema bigquery.Schema
	// PartitionField enables daily time partitioning on that column.
	PartitionField string
}

// Client is a dataset-scoped BigQuery handle.
type Client struct {
	client     *bigquery.Client
	dataset    *bigquery.Dataset
	projectID  string
	autoCreate bool
	maxBytes   int64
	logg       *logger.Logger
}

// NewClient opens a client and checks the dataset exists, creating it when
// auto-create is on.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	datasetID := strings.TrimSpace(cfg.Dataset)
	if datasetID == "" {
		return nil, errDatasetRequired
	}
	if strings.TrimSpace(cfg.LifecycleTable) == "" {
		return nil, errTableNameRequired
	}

	bqClient, err := bigquery.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	c := &Client{
		client:     bqClient,
		dataset:    bqClient.Dataset(datasetID),
		projectID:  projectID,
		autoCreate: cfg.AutoCreate,
		maxBytes:   cfg.MaxBytesBilled,
		logg:       logg,
	}
	if err := c.ensureDataset(ctx); err != nil {
		_ = bqClient.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "dataset", datasetID), "bigquery client initialized")
	}
	return c, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	if js := strings.TrimSpace(gcp.CredentialsJSON); js != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(js))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

func (c *Client) ensureDataset(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, metadataCheckTimeout)
	defer cancel()

	_, err := c.dataset.Metadata(ctx)
	switch {
	case err == nil:
		return nil
	case !isNotFound(err):
		return fmt.Errorf("checking dataset %q: %w", c.dataset.DatasetID, err)
	case !c.autoCreate:
		return fmt.Errorf("dataset %q does not exist", c.dataset.DatasetID)
	}
	if err := c.dataset.Create(ctx, &bigquery.DatasetMetadata{}); err != nil && !isConflict(err) {
		return fmt.Errorf("creating dataset %q: %w", c.dataset.DatasetID, err)
	}
	c.logCreated(ctx, "dataset", c.dataset.DatasetID)
	return nil
}

// EnsureTable verifies spec.Name exists. With auto-create on, a missing
// table is created from spec.Schema; a concurrent create by another
// instance counts as success.
func (c *Client) EnsureTable(ctx context.Context, spec TableSpec) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return errTableNameRequired
	}
	ctx, cancel := context.WithTimeout(ctx, metadataCheckTimeout)
	defer cancel()

	table := c.dataset.Table(name)
	_, err := table.Metadata(ctx)
	switch {
	case err == nil:
		return nil
	case !isNotFound(err):
		return fmt.Errorf("checking table %q: %w", name, err)
	case !c.autoCreate || len(spec.Schema) == 0:
		return fmt.Errorf("table %q does not exist", name)
	}

	meta := &bigquery.TableMetadata{Schema: spec.Schema}
	if spec.PartitionField != "" {
		meta.TimePartitioning = &bigquery.TimePartitioning{Type: bigquery.DayPartitioningType, Field: spec.PartitionField}
	}
	if err := table.Create(ctx, meta); err != nil && !isConflict(err) {
		return fmt.Errorf("creating table %q: %w", name, err)
	}
	c.logCreated(ctx, "table", name)
	return nil
}

func (c *Client) logCreated(ctx context.Context, kind, name string) {
	if c.logg != nil {
		c.logg.Warn(c.logg.WithField(ctx, kind, name), "bigquery "+kind+" created")
	}
}

// Ping checks the dataset is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, metadataCheckTimeout)
	defer cancel()
	_, err := c.dataset.Metadata(ctx)
	return err
}

// InsertRows streams rows into table. Rows should implement bigquery.ValueSaver
// or be structs with bigquery tags.
func (c *Client) InsertRows(ctx context.Context, table string, rows any) error {
	if c == nil || c.client == nil {
		return errClientNotInitialized
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return errTableNameRequired
	}
	return c.dataset.Table(table).Inserter().Put(ctx, rows)
}

// QualifiedTable returns `project.dataset.table` for use in SQL.
func (c *Client) QualifiedTable(table string) string {
	if c == nil || c.dataset == nil {
		return ""
	}
	return fmt.Sprintf("`%s.%s.%s`", c.projectID, c.dataset.DatasetID, strings.TrimSpace(table))
}

// Query runs parameterized SQL against the dataset, billed up to the
// configured byte cap.
func (c *Client) Query(ctx context.Context, sql string, params []bigquery.QueryParameter) (*bigquery.RowIterator, error) {
	if c == nil || c.client == nil {
		return nil, errClientNotInitialized
	}
	if strings.TrimSpace(sql) == "" {
		return nil, errors.New("sql query is required")
	}
	q := c.client.Query(sql)
	q.Parameters = params
	q.DefaultProjectID = c.projectID
	q.DefaultDatasetID = c.dataset.DatasetID
	if c.maxBytes > 0 {
		q.MaxBytesBilled = c.maxBytes
	}
	return q.Read(ctx)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func isNotFound(err error) bool { return hasStatus(err, http.StatusNotFound) }

func isConflict(err error) bool { return hasStatus(err, http.StatusConflict) }

func hasStatus(err error, code int) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}
