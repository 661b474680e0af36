package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/avelazco/labstock-backend/pkg/enums"
)

// NotificationTTL is how long a notification lives before the cleanup job
// removes it.
const NotificationTTL = 30 * 24 * time.Hour

// Notification is a role-targeted alert produced by the scanner or by
// inventory mutations. An empty TargetRoles array means broadcast.
type Notification struct {
	ID          uuid.UUID                  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Type        enums.NotificationType     `gorm:"type:notification_type;not null" json:"type"`
	Title       string                     `gorm:"not null" json:"title"`
	Message     string                     `gorm:"not null" json:"message"`
	ComponentID *uuid.UUID                 `gorm:"type:uuid;index" json:"component_id,omitempty"`
	Quantity    *int                       `json:"quantity,omitempty"`
	Threshold   *int                       `json:"threshold,omitempty"`
	Payload     json.RawMessage            `gorm:"type:jsonb" json:"payload,omitempty"`
	TargetRoles pq.StringArray             `gorm:"type:text[]" json:"target_roles"`
	Priority    enums.NotificationPriority `gorm:"type:notification_priority;not null;default:'medium'" json:"priority"`
	EmailSent   bool                       `gorm:"not null;default:false" json:"email_sent"`
	EmailSentAt *time.Time                 `json:"email_sent_at,omitempty"`
	ExpiresAt   time.Time                  `gorm:"not null;index" json:"expires_at"`
	CreatedAt   time.Time                  `gorm:"autoCreateTime;index" json:"created_at"`

	Reads []NotificationRead `gorm:"foreignKey:NotificationID" json:"-"`
}

// TableName overrides gorm's default pluralization.
func (Notification) TableName() string {
	return "notifications"
}

// VisibleTo reports whether a user with the given role may see the
// notification. Empty target roles means everyone.
func (n *Notification) VisibleTo(role enums.UserRole) bool {
	if len(n.TargetRoles) == 0 {
		return true
	}
	for _, target := range n.TargetRoles {
		if target == string(role) {
			return true
		}
	}
	return false
}

// NotificationRead records that one user has acknowledged one notification.
// The composite primary key keeps the write idempotent.
type NotificationRead struct {
	NotificationID uuid.UUID `gorm:"type:uuid;primaryKey" json:"notification_id"`
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	ReadAt         time.Time `gorm:"not null;autoCreateTime" json:"read_at"`
}

// TableName overrides gorm's default pluralization.
func (NotificationRead) TableName() string {
	return "notification_reads"
}
