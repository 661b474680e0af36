package components

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/avelazco/labstock-backend/internal/stocklog"
	"github.com/avelazco/labstock-backend/pkg/db/models"
	"github.com/avelazco/labstock-backend/pkg/enums"
	pkgerrors "github.com/avelazco/labstock-backend/pkg/errors"
	"github.com/avelazco/labstock-backend/pkg/pagination"
)

type fakeTxRunner struct {
	calls int
}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	f.calls++
	return fn(nil)
}

type fakeComponentRepo struct {
	byID      map[uuid.UUID]*models.Component
	saveCalls int
}

func newFakeComponentRepo() *fakeComponentRepo {
	return &fakeComponentRepo{byID: make(map[uuid.UUID]*models.Component)}
}

func (f *fakeComponentRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeComponentRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Component, error) {
	component, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *component
	return &copied, nil
}

func (f *fakeComponentRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Component, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeComponentRepo) PartNumberExists(ctx context.Context, partNumber string, excludeID *uuid.UUID) (bool, error) {
	for id, component := range f.byID {
		if excludeID != nil && id == *excludeID {
			continue
		}
		if component.PartNumber == partNumber {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeComponentRepo) Create(ctx context.Context, component *models.Component) (*models.Component, error) {
	if component.ID == uuid.Nil {
		component.ID = uuid.New()
	}
	component.CreatedAt = time.Now()
	copied := *component
	f.byID[component.ID] = &copied
	return component, nil
}

func (f *fakeComponentRepo) Save(ctx context.Context, component *models.Component) (*models.Component, error) {
	f.saveCalls++
	copied := *component
	f.byID[component.ID] = &copied
	return component, nil
}

func (f *fakeComponentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.byID, id)
	return nil
}

func (f *fakeComponentRepo) List(ctx context.Context, filters ListFilters, params pagination.Params, now time.Time) (*ListResult, error) {
	var rows []models.Component
	for _, component := range f.byID {
		rows = append(rows, *component)
	}
	return &ListResult{Components: rows}, nil
}

func (f *fakeComponentRepo) ListLowStock(ctx context.Context) ([]models.Component, error) {
	return nil, nil
}

func (f *fakeComponentRepo) ListStale(ctx context.Context, cutoff time.Time) ([]models.Component, error) {
	return nil, nil
}

func (f *fakeComponentRepo) CategoryCounts(ctx context.Context) ([]CategoryCount, error) {
	return nil, nil
}

func (f *fakeComponentRepo) LocationCounts(ctx context.Context) ([]LocationCount, error) {
	return nil, nil
}

func (f *fakeComponentRepo) ListForExport(ctx context.Context, includeEmpty bool) ([]models.Component, error) {
	return nil, nil
}

type fakeLogRepo struct {
	entries []models.StockLog
}

func (f *fakeLogRepo) WithTx(tx *gorm.DB) stocklog.Repository { return f }

func (f *fakeLogRepo) Create(ctx context.Context, entry *models.StockLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeLogRepo) List(ctx context.Context, filter stocklog.ListFilter, params pagination.Params) ([]models.StockLog, error) {
	var out []models.StockLog
	for _, entry := range f.entries {
		if filter.ComponentID != nil && entry.ComponentID != *filter.ComponentID {
			continue
		}
		if filter.Action != nil && entry.Action != *filter.Action {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (f *fakeLogRepo) ListRecentByComponent(ctx context.Context, componentID uuid.UUID, limit int) ([]models.StockLog, error) {
	return f.List(ctx, stocklog.ListFilter{ComponentID: &componentID}, pagination.Params{})
}

func (f *fakeLogRepo) ListAll(ctx context.Context, filter stocklog.ListFilter) ([]models.StockLog, error) {
	return f.List(ctx, filter, pagination.Params{})
}

func newTestService(t *testing.T) (Service, *fakeComponentRepo, *fakeLogRepo, *time.Time) {
	t.Helper()
	repo := newFakeComponentRepo()
	logs := &fakeLogRepo{}
	svc, err := NewService(&fakeTxRunner{}, repo, logs)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	now := time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)
	svc.(*service).now = func() time.Time { return now }
	return svc, repo, logs, &now
}

func seedFakeComponent(t *testing.T, repo *fakeComponentRepo, quantity int) *models.Component {
	t.Helper()
	component := &models.Component{
		ID:                   uuid.New(),
		ComponentName:        "LM358 Op-Amp",
		ManufacturerSupplier: "TI",
		PartNumber:           "LM358N",
		Description:          "Dual op-amp",
		Quantity:             quantity,
		LocationBin:          "A-12",
		UnitPrice:            decimal.NewFromFloat(0.35),
		Category:             enums.ComponentCategoryICs,
		CriticalLowThreshold: 10,
		LastOutward:          time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
	}
	repo.byID[component.ID] = component
	return component
}

func TestCreateUppercasesPartNumberAndLogsCreation(t *testing.T) {
	svc, _, logs, _ := newTestService(t)

	result, err := svc.Create(context.Background(), CreateComponentInput{
		ComponentName:        "BC547 Transistor",
		ManufacturerSupplier: "ON Semi",
		PartNumber:           "bc547b",
		Description:          "NPN transistor",
		Quantity:             50,
		LocationBin:          "B-03",
		UnitPrice:            decimal.NewFromFloat(0.05),
		Category:             enums.ComponentCategoryTransistors,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if result.Component.PartNumber != "BC547B" {
		t.Fatalf("expected uppercased part number, got %q", result.Component.PartNumber)
	}
	if len(logs.entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs.entries))
	}
	entry := logs.entries[0]
	if entry.Action != enums.LogActionCreated {
		t.Fatalf("expected created action, got %s", entry.Action)
	}
	if entry.PreviousQuantity != 0 || entry.NewQuantity != 50 || entry.QuantityChanged != 50 {
		t.Fatalf("unexpected log quantities %+v", entry)
	}
}

func TestCreateRejectsDuplicatePartNumber(t *testing.T) {
	svc, repo, logs, _ := newTestService(t)
	seedFakeComponent(t, repo, 20)

	_, err := svc.Create(context.Background(), CreateComponentInput{
		ComponentName: "Another",
		PartNumber:    "lm358n",
		Quantity:      1,
		Category:      enums.ComponentCategoryICs,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
	if len(logs.entries) != 0 {
		t.Fatal("no log should be written on conflict")
	}
}

func TestInwardIncreasesQuantityAndBalancesLog(t *testing.T) {
	svc, repo, logs, _ := newTestService(t)
	component := seedFakeComponent(t, repo, 20)

	result, err := svc.Inward(context.Background(), component.ID, StockMovementInput{
		Quantity: 30,
		Reason:   "Restock from supplier",
		Supplier: &SupplierInfo{InvoiceNumber: strPtr("INV-991")},
	})
	if err != nil {
		t.Fatalf("Inward failed: %v", err)
	}

	if result.Component.Quantity != 50 {
		t.Fatalf("expected quantity 50, got %d", result.Component.Quantity)
	}
	entry := logs.entries[0]
	if entry.PreviousQuantity+entry.QuantityChanged != entry.NewQuantity {
		t.Fatalf("log does not balance: %+v", entry)
	}
	if entry.InvoiceNumber == nil || *entry.InvoiceNumber != "INV-991" {
		t.Fatal("supplier info not recorded")
	}
}

func TestOutwardInsufficientStockWritesNothing(t *testing.T) {
	svc, repo, logs, _ := newTestService(t)
	component := seedFakeComponent(t, repo, 5)

	_, err := svc.Outward(context.Background(), component.ID, StockMovementInput{
		Quantity: 8,
		Reason:   "Project Alpha",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}

	details, ok := typed.Details().(map[string]int)
	if !ok || details["available"] != 5 || details["requested"] != 8 {
		t.Fatalf("unexpected details %v", typed.Details())
	}

	if repo.byID[component.ID].Quantity != 5 {
		t.Fatal("quantity must be unchanged after refusal")
	}
	if len(logs.entries) != 0 {
		t.Fatal("no log may be appended after refusal")
	}
}

func TestOutwardStampsLastOutward(t *testing.T) {
	svc, repo, logs, now := newTestService(t)
	component := seedFakeComponent(t, repo, 40)

	result, err := svc.Outward(context.Background(), component.ID, StockMovementInput{
		Quantity:    15,
		Reason:      "Project Beta build",
		ProjectName: strPtr("Beta"),
	})
	if err != nil {
		t.Fatalf("Outward failed: %v", err)
	}

	if result.Component.Quantity != 25 {
		t.Fatalf("expected quantity 25, got %d", result.Component.Quantity)
	}
	if !result.Component.LastOutward.Equal(*now) {
		t.Fatalf("last_outward not stamped, got %v", result.Component.LastOutward)
	}
	entry := logs.entries[0]
	if entry.QuantityChanged != -15 {
		t.Fatalf("expected changed -15, got %d", entry.QuantityChanged)
	}
	if entry.PreviousQuantity+entry.QuantityChanged != entry.NewQuantity {
		t.Fatalf("log does not balance: %+v", entry)
	}
}

func TestAdjustRecordsSignedDelta(t *testing.T) {
	svc, repo, logs, _ := newTestService(t)
	component := seedFakeComponent(t, repo, 40)
	before := component.LastOutward

	result, err := svc.Adjust(context.Background(), component.ID, AdjustInput{
		NewQuantity: 12,
		Reason:      "Annual audit correction",
	})
	if err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}

	entry := logs.entries[0]
	if entry.Action != enums.LogActionAdjustment {
		t.Fatalf("expected adjustment action, got %s", entry.Action)
	}
	if entry.QuantityChanged != -28 {
		t.Fatalf("expected changed -28, got %d", entry.QuantityChanged)
	}
	if !result.Component.LastOutward.Equal(before) {
		t.Fatal("adjust must not touch last_outward")
	}
}

func TestUpdateLogsChangedFieldsWithZeroDelta(t *testing.T) {
	svc, repo, logs, _ := newTestService(t)
	component := seedFakeComponent(t, repo, 40)

	_, err := svc.Update(context.Background(), component.ID, UpdateComponentInput{
		LocationBin: strPtr("C-01"),
		Description: strPtr("Dual op-amp, DIP-8"),
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	entry := logs.entries[0]
	if entry.Action != enums.LogActionUpdated {
		t.Fatalf("expected updated action, got %s", entry.Action)
	}
	if entry.QuantityChanged != 0 || entry.PreviousQuantity != entry.NewQuantity {
		t.Fatalf("update log must carry zero delta: %+v", entry)
	}
	if entry.Notes == nil || !strings.Contains(*entry.Notes, "location_bin") || !strings.Contains(*entry.Notes, "description") {
		t.Fatalf("note should list updated fields, got %v", entry.Notes)
	}
}

func TestUpdateWithoutChangesSkipsLog(t *testing.T) {
	svc, repo, logs, _ := newTestService(t)
	component := seedFakeComponent(t, repo, 40)

	result, err := svc.Update(context.Background(), component.ID, UpdateComponentInput{
		LocationBin: strPtr("A-12"),
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if result.Log != nil {
		t.Fatal("no-op update must not append a log")
	}
	if len(logs.entries) != 0 {
		t.Fatalf("expected no log entries, got %d", len(logs.entries))
	}
}

func TestUpdateRejectsDuplicatePartNumber(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	seedFakeComponent(t, repo, 40)
	other := &models.Component{
		ID:         uuid.New(),
		PartNumber: "NE555P",
		Category:   enums.ComponentCategoryICs,
	}
	repo.byID[other.ID] = other

	_, err := svc.Update(context.Background(), other.ID, UpdateComponentInput{
		PartNumber: strPtr("lm358n"),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
}

func TestDeleteAppendsFinalLogBeforeRemoval(t *testing.T) {
	svc, repo, logs, _ := newTestService(t)
	component := seedFakeComponent(t, repo, 17)

	entry, err := svc.Delete(context.Background(), component.ID, nil)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, ok := repo.byID[component.ID]; ok {
		t.Fatal("component should be removed")
	}
	if entry.Action != enums.LogActionDeleted {
		t.Fatalf("expected deleted action, got %s", entry.Action)
	}
	if entry.QuantityChanged != -17 || entry.NewQuantity != 0 {
		t.Fatalf("deletion log must zero the stock: %+v", entry)
	}
	if len(logs.entries) != 1 || logs.entries[0].ComponentID != component.ID {
		t.Fatal("deletion log must survive the component")
	}
}

func TestMovementValidation(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	component := seedFakeComponent(t, repo, 10)

	cases := []struct {
		name  string
		input StockMovementInput
	}{
		{"zero quantity", StockMovementInput{Quantity: 0, Reason: "x"}},
		{"negative quantity", StockMovementInput{Quantity: -3, Reason: "x"}},
		{"missing reason", StockMovementInput{Quantity: 3, Reason: "  "}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Inward(context.Background(), component.ID, tc.input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected VALIDATION_ERROR, got %v", err)
			}
		})
	}
}

func TestLookupUnknownComponentReturnsNotFound(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Inward(context.Background(), uuid.New(), StockMovementInput{Quantity: 1, Reason: "x"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func strPtr(v string) *string { return &v }
