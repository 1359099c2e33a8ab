package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1, "expected one %s migration", suffix)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestOrdersMigrationKeepsHistoryAppendOnly(t *testing.T) {
	content := readMigration(t, "create_orders")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CREATE TABLE IF NOT EXISTS order_items",
		"CREATE TABLE IF NOT EXISTS order_history_entries",
		"order_history_entries_order_seq_key",
		"'pending_finance_approval'",
		"'delivery_attempted'",
		"payment_method IN ('cod', 'mpesa', 'card')",
	} {
		assert.Contains(t, content, sub)
	}
}

func TestProcurementMigrationEnforcesInvoiceTotals(t *testing.T) {
	content := readMigration(t, "create_procurement")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS stock_requests",
		"CREATE TABLE IF NOT EXISTS stock_request_bids",
		"stock_requests_winning_bid_fk",
		"CHECK (total_amount = sub_total + tax_amount)",
		"invoices_stock_request_key",
	} {
		assert.Contains(t, content, sub)
	}
}

func TestShippingMigrationUniquePair(t *testing.T) {
	content := readMigration(t, "create_shipping")
	assert.Contains(t, content, "shipping_rates_region_method_key ON shipping_rates (region_id, method_id)")
}

func TestValidateDirAcceptsRepoMigrations(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, ValidateDir(dir))
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Rider Zones!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_rider_zones.sql"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "-- +goose Up")
	require.NoError(t, ValidateDir(dir))
}

func TestValidateDirReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_no_down.sql"), []byte("-- +goose Up\n"), 0o644))

	err := ValidateDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad-name.sql")
	assert.Contains(t, err.Error(), "missing \"-- +goose Down\"")
}

func TestNextVersionStaysAfterNewestFile(t *testing.T) {
	existing := []migrationFile{{Version: "20990101000000", Name: "20990101000000_future.sql"}}
	got := nextVersion(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), existing)
	assert.Equal(t, "20990101000001", got)

	assert.Equal(t, "20260101000000", nextVersion(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), nil))
}

func TestEmbeddedSourceMatchesDisk(t *testing.T) {
	fsys, err := source("")
	require.NoError(t, err)
	embedded, err := fs.Glob(fsys, "*.sql")
	require.NoError(t, err)

	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, embedded)
	assert.Len(t, embedded, len(onDisk))
}

func TestNewRunnerRequiresDB(t *testing.T) {
	_, err := NewRunner(nil, "")
	assert.Error(t, err)
}
