package analytics

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/avelazco/labstock-backend/pkg/enums"
)

const movementCountsQuery = `
SELECT
  COUNT(*) FILTER (WHERE action = 'inward')  AS inward,
  COUNT(*) FILTER (WHERE action = 'outward') AS outward
FROM stock_logs
WHERE created_at >= ?
`

const dailyTrendQuery = `
SELECT
  DATE(created_at) AS day,
  COALESCE(SUM(quantity_changed) FILTER (WHERE action = 'inward'), 0)       AS inward,
  COALESCE(SUM(ABS(quantity_changed)) FILTER (WHERE action = 'outward'), 0) AS outward,
  COALESCE(SUM(quantity_changed) FILTER (WHERE action = 'adjustment'), 0)   AS adjustment
FROM stock_logs
WHERE created_at >= ? AND action IN ('inward', 'outward', 'adjustment')
GROUP BY DATE(created_at)
ORDER BY day ASC
`

const topComponentsQuery = `
SELECT
  c.id AS component_id,
  c.component_name,
  c.part_number,
  SUM(ABS(l.quantity_changed)) AS total_outward,
  COUNT(*)                     AS movements
FROM stock_logs l
JOIN components c ON c.id = l.component_id
WHERE l.action = 'outward' AND l.created_at >= ?
GROUP BY c.id, c.component_name, c.part_number
ORDER BY total_outward DESC
LIMIT ?
`

const totalValueQuery = `
SELECT COALESCE(SUM(quantity * unit_price), 0) AS total FROM components
`

// MovementCounts are the inward/outward totals for a window.
type MovementCounts struct {
	Inward  int64 `json:"inward"`
	Outward int64 `json:"outward"`
}

// DailyTrend is one day of aggregated stock movement.
type DailyTrend struct {
	Day        time.Time `json:"day"`
	Inward     int64     `json:"inward"`
	Outward    int64     `json:"outward"`
	Adjustment int64     `json:"adjustment"`
}

// TopComponent is one row of the most-consumed ranking.
type TopComponent struct {
	ComponentID   string `json:"component_id"`
	ComponentName string `json:"component_name"`
	PartNumber    string `json:"part_number"`
	TotalOutward  int64  `json:"total_outward"`
	Movements     int64  `json:"movements"`
}

// CategoryCount is one row of the category distribution.
type CategoryCount struct {
	Category enums.ComponentCategory `json:"category"`
	Count    int64                   `json:"count"`
}

// Repository aggregates inventory data for the dashboards.
type Repository interface {
	ComponentCount(ctx context.Context) (int64, error)
	ActiveUserCount(ctx context.Context) (int64, error)
	LowStockCount(ctx context.Context) (int64, error)
	StaleCount(ctx context.Context, cutoff time.Time) (int64, error)
	MovementCounts(ctx context.Context, since time.Time) (*MovementCounts, error)
	TotalInventoryValue(ctx context.Context) (decimal.Decimal, error)
	CategoryDistribution(ctx context.Context) ([]CategoryCount, error)
	DailyTrends(ctx context.Context, since time.Time) ([]DailyTrend, error)
	TopComponents(ctx context.Context, since time.Time, limit int) ([]TopComponent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds the analytics repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ComponentCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Table("components").Count(&count).Error
	return count, err
}

func (r *repository) ActiveUserCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Table("users").Where("is_active").Count(&count).Error
	return count, err
}

func (r *repository) LowStockCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("components").
		Where("quantity <= critical_low_threshold").
		Count(&count).Error
	return count, err
}

func (r *repository) StaleCount(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("components").
		Where("last_outward < ? AND quantity > 0", cutoff).
		Count(&count).Error
	return count, err
}

func (r *repository) MovementCounts(ctx context.Context, since time.Time) (*MovementCounts, error) {
	var counts MovementCounts
	if err := r.db.WithContext(ctx).Raw(movementCountsQuery, since).Scan(&counts).Error; err != nil {
		return nil, err
	}
	return &counts, nil
}

func (r *repository) TotalInventoryValue(ctx context.Context) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).Raw(totalValueQuery).Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}

func (r *repository) CategoryDistribution(ctx context.Context) ([]CategoryCount, error) {
	var rows []CategoryCount
	err := r.db.WithContext(ctx).
		Table("components").
		Select("category, COUNT(*) AS count").
		Group("category").
		Order("count DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) DailyTrends(ctx context.Context, since time.Time) ([]DailyTrend, error) {
	var rows []DailyTrend
	err := r.db.WithContext(ctx).Raw(dailyTrendQuery, since).Scan(&rows).Error
	return rows, err
}

func (r *repository) TopComponents(ctx context.Context, since time.Time, limit int) ([]TopComponent, error) {
	var rows []TopComponent
	err := r.db.WithContext(ctx).Raw(topComponentsQuery, since, limit).Scan(&rows).Error
	return rows, err
}
