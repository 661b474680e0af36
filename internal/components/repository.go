package components

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/avelazco/labstock-backend/pkg/db/models"
	"github.com/avelazco/labstock-backend/pkg/enums"
	"github.com/avelazco/labstock-backend/pkg/pagination"
)

// ListFilters narrows component listings.
type ListFilters struct {
	Query    string
	Category *enums.ComponentCategory
	Location *string
	LowStock bool
	Stale    bool
}

// CategoryCount is one row of the category breakdown.
type CategoryCount struct {
	Category enums.ComponentCategory `json:"category"`
	Count    int64                   `json:"count"`
}

// LocationCount is one row of the location breakdown.
type LocationCount struct {
	LocationBin string `json:"location_bin"`
	Count       int64  `json:"count"`
}

// ListResult is a single page of components plus the next cursor.
type ListResult struct {
	Components []models.Component `json:"components"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

// Repository manages component persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Component, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Component, error)
	PartNumberExists(ctx context.Context, partNumber string, excludeID *uuid.UUID) (bool, error)
	Create(ctx context.Context, component *models.Component) (*models.Component, error)
	Save(ctx context.Context, component *models.Component) (*models.Component, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filters ListFilters, params pagination.Params, now time.Time) (*ListResult, error)
	ListLowStock(ctx context.Context) ([]models.Component, error)
	ListStale(ctx context.Context, cutoff time.Time) ([]models.Component, error)
	CategoryCounts(ctx context.Context) ([]CategoryCount, error)
	LocationCounts(ctx context.Context) ([]LocationCount, error)
	ListForExport(ctx context.Context, includeEmpty bool) ([]models.Component, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByID loads a component without locking.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Component, error) {
	var component models.Component
	if err := r.db.WithContext(ctx).First(&component, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &component, nil
}

// FindByIDForUpdate loads a component under SELECT ... FOR UPDATE. Callers
// must hold an open transaction; the row lock serializes concurrent stock
// mutations on the same component.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Component, error) {
	var component models.Component
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&component, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &component, nil
}

// PartNumberExists checks for a duplicate part number, optionally excluding
// one component id (used on metadata updates).
func (r *repository) PartNumberExists(ctx context.Context, partNumber string, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Component{}).
		Where("part_number = ?", partNumber)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a new component row.
func (r *repository) Create(ctx context.Context, component *models.Component) (*models.Component, error) {
	if err := r.db.WithContext(ctx).Create(component).Error; err != nil {
		return nil, err
	}
	return component, nil
}

// Save persists all fields of an existing component row.
func (r *repository) Save(ctx context.Context, component *models.Component) (*models.Component, error) {
	if err := r.db.WithContext(ctx).Save(component).Error; err != nil {
		return nil, err
	}
	return component, nil
}

// Delete removes a component by ID.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Component{}).Error
}

// List returns a page of components matching the filters, newest first.
func (r *repository) List(ctx context.Context, filters ListFilters, params pagination.Params, now time.Time) (*ListResult, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).Model(&models.Component{})

	if search := strings.TrimSpace(filters.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where(
			"(LOWER(component_name) LIKE ? OR LOWER(part_number) LIKE ? OR LOWER(description) LIKE ? OR LOWER(manufacturer_supplier) LIKE ?)",
			pattern, pattern, pattern, pattern,
		)
	}
	if filters.Category != nil {
		qb = qb.Where("category = ?", *filters.Category)
	}
	if filters.Location != nil {
		qb = qb.Where("location_bin = ?", *filters.Location)
	}
	if filters.LowStock {
		qb = qb.Where("quantity <= critical_low_threshold")
	}
	if filters.Stale {
		qb = qb.Where("last_outward < ? AND quantity > 0", now.Add(-models.StaleAfter))
	}

	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Component
	if err := qb.
		Order("created_at DESC").Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &ListResult{Components: rows, NextCursor: nextCursor}, nil
}

// ListLowStock returns every component at or below its critical threshold.
func (r *repository) ListLowStock(ctx context.Context) ([]models.Component, error) {
	var rows []models.Component
	if err := r.db.WithContext(ctx).
		Where("quantity <= critical_low_threshold").
		Order("quantity ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListStale returns components with stock but no outward movement since the
// cutoff.
func (r *repository) ListStale(ctx context.Context, cutoff time.Time) ([]models.Component, error) {
	var rows []models.Component
	if err := r.db.WithContext(ctx).
		Where("last_outward < ? AND quantity > 0", cutoff).
		Order("last_outward ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CategoryCounts returns the number of components per category.
func (r *repository) CategoryCounts(ctx context.Context) ([]CategoryCount, error) {
	var rows []CategoryCount
	if err := r.db.WithContext(ctx).
		Model(&models.Component{}).
		Select("category, COUNT(*) AS count").
		Group("category").
		Order("category ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// LocationCounts returns the number of components per location bin.
func (r *repository) LocationCounts(ctx context.Context) ([]LocationCount, error) {
	var rows []LocationCount
	if err := r.db.WithContext(ctx).
		Model(&models.Component{}).
		Select("location_bin, COUNT(*) AS count").
		Group("location_bin").
		Order("location_bin ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListForExport returns components for export, optionally excluding rows
// with zero quantity.
func (r *repository) ListForExport(ctx context.Context, includeEmpty bool) ([]models.Component, error) {
	qb := r.db.WithContext(ctx).Model(&models.Component{})
	if !includeEmpty {
		qb = qb.Where("quantity > 0")
	}
	var rows []models.Component
	if err := qb.Order("component_name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
