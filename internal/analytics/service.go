package analytics

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avelazco/labstock-backend/pkg/db/models"
	pkgerrors "github.com/avelazco/labstock-backend/pkg/errors"
)

const (
	defaultWindowDays = 30
	maxWindowDays     = 365
	defaultTopLimit   = 10
	maxTopLimit       = 50
)

type componentLister interface {
	ListLowStock(ctx context.Context) ([]models.Component, error)
	ListStale(ctx context.Context, cutoff time.Time) ([]models.Component, error)
}

// Dashboard is the aggregate inventory health snapshot.
type Dashboard struct {
	TotalComponents     int64              `json:"total_components"`
	ActiveUsers         int64              `json:"active_users"`
	LowStockCount       int64              `json:"low_stock_count"`
	LowStockComponents  []models.Component `json:"low_stock_components"`
	StaleCount          int64              `json:"stale_count"`
	StaleComponents     []models.Component `json:"stale_components"`
	Movements30d        MovementCounts     `json:"movements_30d"`
	TotalInventoryValue decimal.Decimal    `json:"total_inventory_value"`
	CategoryBreakdown   []CategoryCount    `json:"category_breakdown"`
}

// TrendsResult wraps the per-day aggregation with its window.
type TrendsResult struct {
	WindowDays int          `json:"window_days"`
	Trends     []DailyTrend `json:"trends"`
}

// TopComponentsResult wraps the consumption ranking with its window.
type TopComponentsResult struct {
	WindowDays int            `json:"window_days"`
	Components []TopComponent `json:"components"`
}

// Service answers the read-only analytics endpoints.
type Service interface {
	Dashboard(ctx context.Context) (*Dashboard, error)
	Trends(ctx context.Context, windowDays int) (*TrendsResult, error)
	TopComponents(ctx context.Context, windowDays, limit int) (*TopComponentsResult, error)
}

type service struct {
	repo       Repository
	components componentLister
	now        func() time.Time
}

// NewService wires the analytics dependencies.
func NewService(repo Repository, components componentLister) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "analytics repository required")
	}
	if components == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "components repository required")
	}
	return &service{repo: repo, components: components, now: time.Now}, nil
}

func (s *service) Dashboard(ctx context.Context) (*Dashboard, error) {
	now := s.now().UTC()
	dashboard := &Dashboard{}

	var err error
	if dashboard.TotalComponents, err = s.repo.ComponentCount(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "component count")
	}
	if dashboard.ActiveUsers, err = s.repo.ActiveUserCount(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "active user count")
	}

	if dashboard.LowStockComponents, err = s.components.ListLowStock(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "low stock list")
	}
	dashboard.LowStockCount = int64(len(dashboard.LowStockComponents))

	if dashboard.StaleComponents, err = s.components.ListStale(ctx, now.Add(-models.StaleAfter)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stale list")
	}
	dashboard.StaleCount = int64(len(dashboard.StaleComponents))

	movements, err := s.repo.MovementCounts(ctx, now.Add(-defaultWindowDays*24*time.Hour))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "movement counts")
	}
	dashboard.Movements30d = *movements

	if dashboard.TotalInventoryValue, err = s.repo.TotalInventoryValue(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inventory value")
	}
	if dashboard.CategoryBreakdown, err = s.repo.CategoryDistribution(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "category distribution")
	}
	return dashboard, nil
}

func (s *service) Trends(ctx context.Context, windowDays int) (*TrendsResult, error) {
	window, err := normalizeWindow(windowDays)
	if err != nil {
		return nil, err
	}
	since := s.now().UTC().Add(-time.Duration(window) * 24 * time.Hour)
	trends, err := s.repo.DailyTrends(ctx, since)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "daily trends")
	}
	return &TrendsResult{WindowDays: window, Trends: trends}, nil
}

func (s *service) TopComponents(ctx context.Context, windowDays, limit int) (*TopComponentsResult, error) {
	window, err := normalizeWindow(windowDays)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultTopLimit
	}
	if limit > maxTopLimit {
		limit = maxTopLimit
	}
	since := s.now().UTC().Add(-time.Duration(window) * 24 * time.Hour)
	components, err := s.repo.TopComponents(ctx, since, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "top components")
	}
	return &TopComponentsResult{WindowDays: window, Components: components}, nil
}

func normalizeWindow(days int) (int, error) {
	if days == 0 {
		return defaultWindowDays, nil
	}
	if days < 0 || days > maxWindowDays {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "window must be between 1 and 365 days")
	}
	return days, nil
}
