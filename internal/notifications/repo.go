package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/avelazco/labstock-backend/pkg/db/models"
	"github.com/avelazco/labstock-backend/pkg/enums"
	"github.com/avelazco/labstock-backend/pkg/pagination"
)

// visibleClause admits notifications whose target roles are empty
// (broadcast) or contain the caller's role.
const visibleClause = "(COALESCE(cardinality(target_roles), 0) = 0 OR ? = ANY(target_roles))"

const markAllReadQuery = `
INSERT INTO notification_reads (notification_id, user_id, read_at)
SELECT n.id, ?, ?
FROM notifications n
WHERE (COALESCE(cardinality(n.target_roles), 0) = 0 OR ? = ANY(n.target_roles))
  AND NOT EXISTS (
    SELECT 1 FROM notification_reads r
    WHERE r.notification_id = n.id AND r.user_id = ?
  )
ON CONFLICT DO NOTHING
`

// Repository exposes persistence helpers for notifications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	List(ctx context.Context, params listNotificationsParams) ([]NotificationView, *pagination.Cursor, error)
	CountUnread(ctx context.Context, userID uuid.UUID, role enums.UserRole) (int64, error)
	InsertRead(ctx context.Context, notificationID, userID uuid.UUID, now time.Time) (bool, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, role enums.UserRole, now time.Time) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) ([]TypeStat, error)
	HasRecentForComponent(ctx context.Context, componentID uuid.UUID, notificationType enums.NotificationType, since time.Time) (bool, error)
	HasSince(ctx context.Context, notificationType enums.NotificationType, since time.Time) (bool, error)
	MarkEmailSent(ctx context.Context, id uuid.UUID, at time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// NotificationView is a notification plus the caller's read state.
type NotificationView struct {
	models.Notification
	IsRead bool `json:"is_read"`
}

// TypeStat is one per-type row of the notification statistics.
type TypeStat struct {
	Type   enums.NotificationType `json:"type"`
	Total  int64                  `json:"total"`
	Unread int64                  `json:"unread"`
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listNotificationsParams struct {
	UserID     uuid.UUID
	Role       enums.UserRole
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
	Type       *enums.NotificationType
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	var notification models.Notification
	if err := r.db.WithContext(ctx).First(&notification, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listNotificationsParams) ([]NotificationView, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Table("notifications").
		Select("notifications.*, EXISTS (SELECT 1 FROM notification_reads r WHERE r.notification_id = notifications.id AND r.user_id = ?) AS is_read", params.UserID).
		Where(visibleClause, params.Role)

	if params.Type != nil {
		query = query.Where("type = ?", *params.Type)
	}
	if params.UnreadOnly {
		query = query.Where("NOT EXISTS (SELECT 1 FROM notification_reads r WHERE r.notification_id = notifications.id AND r.user_id = ?)", params.UserID)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var views []NotificationView
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Scan(&views).Error; err != nil {
		return nil, nil, err
	}

	if len(views) > normalized {
		next := views[normalized]
		views = views[:normalized]
		return views, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return views, nil, nil
}

func (r *repositoryImpl) CountUnread(ctx context.Context, userID uuid.UUID, role enums.UserRole) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where(visibleClause, role).
		Where("NOT EXISTS (SELECT 1 FROM notification_reads r WHERE r.notification_id = notifications.id AND r.user_id = ?)", userID).
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) InsertRead(ctx context.Context, notificationID, userID uuid.UUID, now time.Time) (bool, error) {
	read := models.NotificationRead{
		NotificationID: notificationID,
		UserID:         userID,
		ReadAt:         now,
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&read)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) MarkAllRead(ctx context.Context, userID uuid.UUID, role enums.UserRole, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Exec(markAllReadQuery, userID, now, role, userID)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Notification{}).Error
}

func (r *repositoryImpl) Stats(ctx context.Context) ([]TypeStat, error) {
	var rows []TypeStat
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Select("type, COUNT(*) AS total, COUNT(*) FILTER (WHERE NOT EXISTS (SELECT 1 FROM notification_reads r WHERE r.notification_id = notifications.id)) AS unread").
		Group("type").
		Order("type ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) HasRecentForComponent(ctx context.Context, componentID uuid.UUID, notificationType enums.NotificationType, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("component_id = ? AND type = ? AND created_at >= ?", componentID, notificationType, since).
		Count(&count).Error
	return count > 0, err
}

func (r *repositoryImpl) HasSince(ctx context.Context, notificationType enums.NotificationType, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("type = ? AND created_at >= ?", notificationType, since).
		Count(&count).Error
	return count > 0, err
}

func (r *repositoryImpl) MarkEmailSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{"email_sent": true, "email_sent_at": at}).Error
}

func (r *repositoryImpl) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
