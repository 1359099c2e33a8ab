package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testModel struct {
	ID     int
	Name   string
	Status string
	Owner  *string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&testModel{}))
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	conn := newTestDB(t)
	client := Wrap(conn)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}))

	var count int64
	require.NoError(t, conn.Model(&testModel{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)
	require.NoError(t, conn.Model(&testModel{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestGuardedUpdate(t *testing.T) {
	conn := newTestDB(t)
	row := testModel{ID: 1, Name: "a", Status: "open"}
	require.NoError(t, conn.Create(&row).Error)

	ok, err := GuardedUpdate(conn, Guard{
		Table:      "test_models",
		ID:         1,
		Expect:     map[string]any{"status": "open"},
		ExpectNull: []string{"owner"},
	}, map[string]any{"status": "closed", "owner": "me"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = GuardedUpdate(conn, Guard{
		Table:  "test_models",
		ID:     1,
		Expect: map[string]any{"status": "open"},
	}, map[string]any{"status": "reopened"})
	require.NoError(t, err)
	assert.False(t, ok, "second writer must lose the guard")

	var stored testModel
	require.NoError(t, conn.First(&stored, 1).Error)
	assert.Equal(t, "closed", stored.Status)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, "users_email_key"))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23505", ConstraintName: "other"}, "users_email_key"))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
	assert.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: users.email"), ""))
	assert.False(t, IsUniqueViolation(nil, ""))
}

func TestPing(t *testing.T) {
	client := Wrap(newTestDB(t))
	require.NoError(t, client.Ping(context.Background()))
}

func TestWithTxRerunsSerializationFailures(t *testing.T) {
	client := &Client{conn: newTestDB(t), txRetries: 2}
	calls := 0
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: "40001"}
		}
		return tx.Create(&testModel{Name: "third time"}).Error
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = client.WithTx(context.Background(), func(*gorm.DB) error {
		calls++
		return &pgconn.PgError{Code: "23505"}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "constraint errors are not retried")
}

func TestIsRetryableTx(t *testing.T) {
	assert.True(t, IsRetryableTx(fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40P01"})))
	assert.True(t, IsRetryableTx(&pq.Error{Code: "40001"}))
	assert.False(t, IsRetryableTx(errors.New("serialization failure")))
}
