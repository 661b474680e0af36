package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avelazco/labstock-backend/pkg/enums"
)

// StockLog is one append-only audit row describing a stock movement or a
// lifecycle event on a component. ComponentID is deliberately not a foreign
// key: logs must survive component deletion.
type StockLog struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ComponentID      uuid.UUID        `gorm:"type:uuid;not null;index" json:"component_id"`
	Action           enums.LogAction  `gorm:"type:log_action;not null" json:"action"`
	QuantityChanged  int              `gorm:"not null" json:"quantity_changed"`
	PreviousQuantity int              `gorm:"not null" json:"previous_quantity"`
	NewQuantity      int              `gorm:"not null" json:"new_quantity"`
	Reason           string           `gorm:"not null" json:"reason"`
	ProjectName      *string          `json:"project_name,omitempty"`
	BatchID          *string          `json:"batch_id,omitempty"`
	Notes            *string          `json:"notes,omitempty"`
	SupplierName     *string          `json:"supplier_name,omitempty"`
	InvoiceNumber    *string          `json:"invoice_number,omitempty"`
	PurchaseDate     *time.Time       `json:"purchase_date,omitempty"`
	UnitCost         *decimal.Decimal `gorm:"type:numeric(12,2)" json:"unit_cost,omitempty"`
	UserID           *uuid.UUID       `gorm:"type:uuid" json:"user_id,omitempty"`
	CreatedAt        time.Time        `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName overrides gorm's default pluralization.
func (StockLog) TableName() string {
	return "stock_logs"
}
