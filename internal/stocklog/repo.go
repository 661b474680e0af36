package stocklog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avelazco/labstock-backend/pkg/db/models"
	"github.com/avelazco/labstock-backend/pkg/enums"
	"github.com/avelazco/labstock-backend/pkg/pagination"
)

// ListFilter narrows log listings for per-component history and exports.
type ListFilter struct {
	ComponentID *uuid.UUID
	Action      *enums.LogAction
	From        *time.Time
	To          *time.Time
}

// Repository manages persistence for stock log rows. Rows are append-only;
// there is deliberately no update or delete surface.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.StockLog) error
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.StockLog, error)
	ListRecentByComponent(ctx context.Context, componentID uuid.UUID, limit int) ([]models.StockLog, error)
	ListAll(ctx context.Context, filter ListFilter) ([]models.StockLog, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a stock log repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.StockLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func applyFilter(query *gorm.DB, filter ListFilter) *gorm.DB {
	if filter.ComponentID != nil {
		query = query.Where("component_id = ?", *filter.ComponentID)
	}
	if filter.Action != nil {
		query = query.Where("action = ?", *filter.Action)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}
	return query
}

func (r *repository) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.StockLog, error) {
	query := applyFilter(r.db.WithContext(ctx).Model(&models.StockLog{}), filter)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var entries []models.StockLog
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListRecentByComponent(ctx context.Context, componentID uuid.UUID, limit int) ([]models.StockLog, error) {
	if limit <= 0 {
		limit = 10
	}
	var entries []models.StockLog
	if err := r.db.WithContext(ctx).
		Where("component_id = ?", componentID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListAll(ctx context.Context, filter ListFilter) ([]models.StockLog, error) {
	query := applyFilter(r.db.WithContext(ctx).Model(&models.StockLog{}), filter)

	var entries []models.StockLog
	if err := query.Order("created_at DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
