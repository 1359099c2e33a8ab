// Package dbtest opens in-memory sqlite databases with the application schema
// for repository and service tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftops-backend/pkg/db"
)

var schema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		display_name TEXT NOT NULL,
		phone TEXT,
		role TEXT NOT NULL,
		disabled INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		last_login_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE customization_group_definitions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		options TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		category TEXT NOT NULL,
		price NUMERIC NOT NULL,
		images TEXT,
		stock_quantity INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		customization_group_id TEXT,
		customization_options TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE shipping_regions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		county TEXT NOT NULL,
		towns TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE shipping_methods (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		base_price NUMERIC NOT NULL,
		duration TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE shipping_rates (
		id TEXT PRIMARY KEY,
		region_id TEXT NOT NULL,
		method_id TEXT NOT NULL,
		custom_price NUMERIC NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE (region_id, method_id)
	)`,
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		order_number INTEGER NOT NULL DEFAULT (abs(random()) % 1000000000),
		customer_id TEXT NOT NULL,
		customer_name TEXT NOT NULL,
		customer_email TEXT NOT NULL,
		customer_phone TEXT,
		status TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		shipping_address TEXT NOT NULL,
		shipping_region_id TEXT NOT NULL,
		shipping_method_id TEXT NOT NULL,
		shipping_cost NUMERIC NOT NULL,
		sub_total NUMERIC NOT NULL,
		total NUMERIC NOT NULL,
		gift_details TEXT,
		rider_id TEXT,
		rider_name TEXT,
		color TEXT,
		rating TEXT,
		bulk_order_request_id TEXT,
		notes TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE order_items (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		product_name TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		unit_price NUMERIC NOT NULL,
		line_total NUMERIC NOT NULL,
		customizations TEXT,
		created_at DATETIME
	)`,
	`CREATE TABLE order_history_entries (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		status TEXT NOT NULL,
		notes TEXT,
		actor_id TEXT,
		actor_role TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE (order_id, seq)
	)`,
	`CREATE TABLE stock_requests (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL,
		product_name TEXT NOT NULL,
		requested_quantity INTEGER NOT NULL,
		notes TEXT,
		status TEXT NOT NULL,
		winning_bid_id TEXT,
		supplier_id TEXT,
		supplier_price NUMERIC,
		tax_rate NUMERIC,
		awarded_at DATETIME,
		awarded_by TEXT,
		fulfilled_quantity INTEGER,
		invoice_id TEXT,
		received_quantity INTEGER,
		received_at DATETIME,
		discrepancy INTEGER,
		closed_reason TEXT,
		created_by TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE stock_request_bids (
		id TEXT PRIMARY KEY,
		stock_request_id TEXT NOT NULL,
		supplier_id TEXT NOT NULL,
		supplier_name TEXT NOT NULL,
		price_per_unit NUMERIC NOT NULL,
		tax_rate NUMERIC NOT NULL DEFAULT 0,
		notes TEXT,
		created_at DATETIME
	)`,
	`CREATE TABLE invoices (
		id TEXT PRIMARY KEY,
		invoice_number TEXT NOT NULL UNIQUE,
		supplier_id TEXT NOT NULL,
		stock_request_id TEXT UNIQUE,
		items TEXT NOT NULL,
		tax_rate NUMERIC NOT NULL,
		sub_total NUMERIC NOT NULL,
		tax_amount NUMERIC NOT NULL,
		total_amount NUMERIC NOT NULL,
		status TEXT NOT NULL,
		notes TEXT,
		due_date DATETIME,
		reviewed_by TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE feedback_threads (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		order_id TEXT,
		subject TEXT NOT NULL,
		status TEXT NOT NULL,
		last_replier_role TEXT NOT NULL,
		last_message_at DATETIME NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE feedback_messages (
		id TEXT PRIMARY KEY,
		thread_id TEXT NOT NULL,
		author_id TEXT NOT NULL,
		author_role TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE bulk_order_requests (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		company_name TEXT NOT NULL,
		contact_name TEXT NOT NULL,
		contact_phone TEXT NOT NULL,
		contact_email TEXT NOT NULL,
		items TEXT NOT NULL,
		desired_date DATETIME,
		shipping_address TEXT NOT NULL,
		shipping_region_id TEXT NOT NULL,
		shipping_method_id TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		status TEXT NOT NULL,
		quoted_unit_prices TEXT,
		quoted_total NUMERIC,
		admin_notes TEXT,
		order_id TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		order_id TEXT,
		assignee_id TEXT NOT NULL,
		created_by TEXT NOT NULL,
		status TEXT NOT NULL,
		due_at DATETIME,
		completed_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		link TEXT,
		event_id TEXT,
		read_at DATETIME,
		created_at DATETIME,
		UNIQUE (user_id, event_id)
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
}

// Open returns a fresh in-memory database named after the running test.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

// OpenClient wraps Open in the application db client.
func OpenClient(t *testing.T) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := Open(t)
	return db.Wrap(conn), conn
}
