package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/avelazco/labstock-backend/internal/scanner"
)

type fakeStockScanner struct {
	lowRuns   int
	staleRuns int
	err       error
}

func (f *fakeStockScanner) ScanLowStock(ctx context.Context) (*scanner.Result, error) {
	f.lowRuns++
	if f.err != nil {
		return nil, f.err
	}
	return &scanner.Result{}, nil
}

func (f *fakeStockScanner) ScanStaleStock(ctx context.Context) (*scanner.Result, error) {
	f.staleRuns++
	if f.err != nil {
		return nil, f.err
	}
	return &scanner.Result{}, nil
}

func TestScanJobsInvokeScanner(t *testing.T) {
	fake := &fakeStockScanner{}

	lowJob, err := NewLowStockScanJob(fake)
	if err != nil {
		t.Fatalf("NewLowStockScanJob: %v", err)
	}
	staleJob, err := NewStaleStockScanJob(fake)
	if err != nil {
		t.Fatalf("NewStaleStockScanJob: %v", err)
	}

	if err := lowJob.Run(context.Background()); err != nil {
		t.Fatalf("low job run: %v", err)
	}
	if err := staleJob.Run(context.Background()); err != nil {
		t.Fatalf("stale job run: %v", err)
	}
	if fake.lowRuns != 1 || fake.staleRuns != 1 {
		t.Fatalf("expected one run each, got low=%d stale=%d", fake.lowRuns, fake.staleRuns)
	}
	if lowJob.Name() != "low-stock-scan" || staleJob.Name() != "stale-stock-scan" {
		t.Fatal("unexpected job names")
	}
}

func TestScanJobsPropagateErrors(t *testing.T) {
	fake := &fakeStockScanner{err: errors.New("db down")}

	lowJob, _ := NewLowStockScanJob(fake)
	if err := lowJob.Run(context.Background()); err == nil {
		t.Fatal("expected error from low stock job")
	}

	staleJob, _ := NewStaleStockScanJob(fake)
	if err := staleJob.Run(context.Background()); err == nil {
		t.Fatal("expected error from stale stock job")
	}
}
