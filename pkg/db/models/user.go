package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/avelazco/labstock-backend/pkg/enums"
)

// User carries the minimum identity the service needs: actor attribution on
// logs, role gating, and admin email recipients. Account lifecycle is owned
// by the identity service that issues our tokens.
type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Email     string         `gorm:"not null;uniqueIndex" json:"email"`
	Name      string         `gorm:"not null" json:"name"`
	Role      enums.UserRole `gorm:"type:user_role;not null;default:'researcher'" json:"role"`
	IsActive  bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName overrides gorm's default pluralization.
func (User) TableName() string {
	return "users"
}
