package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/avelazco/labstock-backend/pkg/logger"
)

type expiredNotificationStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// NotificationCleanupJobParams configure the expired notification sweep.
type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	Repository expiredNotificationStore
}

// NewNotificationCleanupJob deletes notifications past their expires_at.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return &notificationCleanupJob{
		logg: params.Logger,
		repo: params.Repository,
		now:  time.Now,
	}, nil
}

type notificationCleanupJob struct {
	logg *logger.Logger
	repo expiredNotificationStore
	now  func() time.Time
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

func (j *notificationCleanupJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	deleted, err := j.repo.DeleteExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("notification cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"as_of":        now,
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "notification cleanup complete")
	return nil
}
