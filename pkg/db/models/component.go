package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/avelazco/labstock-backend/pkg/enums"
)

// StaleAfter is how long a component may go without an outward movement
// before the scanner reports it as stale.
const StaleAfter = 90 * 24 * time.Hour

// Component is a catalog entry for a physical part held in the lab.
type Component struct {
	ID                   uuid.UUID               `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ComponentName        string                  `gorm:"not null" json:"component_name"`
	ManufacturerSupplier string                  `gorm:"not null" json:"manufacturer_supplier"`
	PartNumber           string                  `gorm:"not null;uniqueIndex" json:"part_number"`
	Description          string                  `gorm:"not null" json:"description"`
	Quantity             int                     `gorm:"not null;default:0" json:"quantity"`
	LocationBin          string                  `gorm:"not null" json:"location_bin"`
	UnitPrice            decimal.Decimal         `gorm:"type:numeric(12,2);not null;default:0" json:"unit_price"`
	Category             enums.ComponentCategory `gorm:"type:component_category;not null" json:"category"`
	CriticalLowThreshold int                     `gorm:"not null;default:10" json:"critical_low_threshold"`
	LastOutward          time.Time               `gorm:"not null;default:now()" json:"last_outward"`
	DatasheetLink        *string                 `json:"datasheet_link,omitempty"`
	ImageURL             *string                 `json:"image_url,omitempty"`
	Notes                *string                 `json:"notes,omitempty"`
	Tags                 pq.StringArray          `gorm:"type:text[]" json:"tags"`
	CreatedBy            *uuid.UUID              `gorm:"type:uuid" json:"created_by,omitempty"`
	UpdatedBy            *uuid.UUID              `gorm:"type:uuid" json:"updated_by,omitempty"`
	CreatedAt            time.Time               `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time               `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName overrides gorm's default pluralization.
func (Component) TableName() string {
	return "components"
}

// IsLowStock reports whether the on-hand quantity is at or below the
// critical threshold.
func (c *Component) IsLowStock() bool {
	return c.Quantity <= c.CriticalLowThreshold
}

// IsStale reports whether the component has had no outward movement for
// longer than StaleAfter, relative to the supplied clock.
func (c *Component) IsStale(now time.Time) bool {
	return c.LastOutward.Before(now.Add(-StaleAfter))
}

// TotalValue returns quantity x unit price.
func (c *Component) TotalValue() decimal.Decimal {
	return c.UnitPrice.Mul(decimal.NewFromInt(int64(c.Quantity)))
}
