package cron

import (
	"context"
	"fmt"

	"github.com/avelazco/labstock-backend/internal/scanner"
)

type stockScanner interface {
	ScanLowStock(ctx context.Context) (*scanner.Result, error)
	ScanStaleStock(ctx context.Context) (*scanner.Result, error)
}

// NewLowStockScanJob wraps the low stock scan as a cron job.
func NewLowStockScanJob(s stockScanner) (Job, error) {
	if s == nil {
		return nil, fmt.Errorf("scanner required")
	}
	return &lowStockScanJob{scanner: s}, nil
}

type lowStockScanJob struct {
	scanner stockScanner
}

func (j *lowStockScanJob) Name() string { return "low-stock-scan" }

func (j *lowStockScanJob) Run(ctx context.Context) error {
	if _, err := j.scanner.ScanLowStock(ctx); err != nil {
		return fmt.Errorf("low stock scan: %w", err)
	}
	return nil
}

// NewStaleStockScanJob wraps the stale stock scan as a cron job.
func NewStaleStockScanJob(s stockScanner) (Job, error) {
	if s == nil {
		return nil, fmt.Errorf("scanner required")
	}
	return &staleStockScanJob{scanner: s}, nil
}

type staleStockScanJob struct {
	scanner stockScanner
}

func (j *staleStockScanJob) Name() string { return "stale-stock-scan" }

func (j *staleStockScanJob) Run(ctx context.Context) error {
	if _, err := j.scanner.ScanStaleStock(ctx); err != nil {
		return fmt.Errorf("stale stock scan: %w", err)
	}
	return nil
}
