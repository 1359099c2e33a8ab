package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/giftops-backend/pkg/logger"
)

const (
	defaultOutboxRetention       = 30 * 24 * time.Hour
	defaultNotificationRetention = 90 * 24 * time.Hour
)

// purgeFunc deletes rows older than cutoff and reports how many went.
type purgeFunc func(ctx context.Context, cutoff time.Time) (int64, error)

// purgeJob is a retention sweep: everything its purge func selects that is
// older than now minus retention is deleted on each run.
type purgeJob struct {
	name      string
	logg      *logger.Logger
	purge     purgeFunc
	retention time.Duration
	now       func() time.Time
}

func newPurgeJob(name string, logg *logger.Logger, purge purgeFunc, retention, fallback time.Duration) (Job, error) {
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if retention <= 0 {
		retention = fallback
	}
	return &purgeJob{name: name, logg: logg, purge: purge, retention: retention, now: time.Now}, nil
}

func (j *purgeJob) Name() string { return j.name }

func (j *purgeJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.purge(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), j.name+" complete")
	return nil
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	Repository interface {
		DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}
	Retention time.Duration
}

// NewOutboxRetentionJob prunes published outbox rows. Unpublished rows are
// never touched, however old.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, errors.New("outbox repository required")
	}
	return newPurgeJob("outbox-retention", params.Logger, params.Repository.DeletePublishedBefore, params.Retention, defaultOutboxRetention)
}

type NotificationCleanupJobParams struct {
	Logger        *logger.Logger
	Notifications interface {
		PurgeRead(ctx context.Context, cutoff time.Time) (int64, error)
	}
	Retention time.Duration
}

// NewNotificationCleanupJob deletes read notifications past retention.
// Unread rows are kept regardless of age.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Notifications == nil {
		return nil, errors.New("notifications service required")
	}
	return newPurgeJob("notification-cleanup", params.Logger, params.Notifications.PurgeRead, params.Retention, defaultNotificationRetention)
}
