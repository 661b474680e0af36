package components

import (
	"context"
	stdErrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/avelazco/labstock-backend/internal/stocklog"
	"github.com/avelazco/labstock-backend/pkg/db"
	"github.com/avelazco/labstock-backend/pkg/db/models"
	"github.com/avelazco/labstock-backend/pkg/enums"
	pkgerrors "github.com/avelazco/labstock-backend/pkg/errors"
	"github.com/avelazco/labstock-backend/pkg/pagination"
)

// TxRunner executes fn inside a database transaction. *db.Client satisfies
// this.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the stock transaction operations. Every mutation updates
// the component row and appends exactly one stock log entry in the same
// transaction.
type Service interface {
	Create(ctx context.Context, input CreateComponentInput) (*MutationResult, error)
	Inward(ctx context.Context, componentID uuid.UUID, input StockMovementInput) (*MutationResult, error)
	Outward(ctx context.Context, componentID uuid.UUID, input StockMovementInput) (*MutationResult, error)
	Adjust(ctx context.Context, componentID uuid.UUID, input AdjustInput) (*MutationResult, error)
	Update(ctx context.Context, componentID uuid.UUID, input UpdateComponentInput) (*MutationResult, error)
	Delete(ctx context.Context, componentID uuid.UUID, actorID *uuid.UUID) (*models.StockLog, error)

	Get(ctx context.Context, componentID uuid.UUID) (*ComponentDetail, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error)
	Logs(ctx context.Context, componentID uuid.UUID, action *enums.LogAction, params pagination.Params) ([]models.StockLog, error)
	Categories(ctx context.Context) ([]CategoryCount, error)
	Locations(ctx context.Context) ([]LocationCount, error)
}

// SupplierInfo is the optional purchase metadata recorded on inward moves.
type SupplierInfo struct {
	Name          *string          `json:"name,omitempty"`
	InvoiceNumber *string          `json:"invoice_number,omitempty"`
	PurchaseDate  *time.Time       `json:"purchase_date,omitempty"`
	UnitCost      *decimal.Decimal `json:"unit_cost,omitempty"`
}

// CreateComponentInput carries the full field payload for a new component.
type CreateComponentInput struct {
	ComponentName        string
	ManufacturerSupplier string
	PartNumber           string
	Description          string
	Quantity             int
	LocationBin          string
	UnitPrice            decimal.Decimal
	Category             enums.ComponentCategory
	CriticalLowThreshold *int
	DatasheetLink        *string
	ImageURL             *string
	Notes                *string
	Tags                 []string
	ActorID              *uuid.UUID
}

// StockMovementInput carries a relative quantity movement.
type StockMovementInput struct {
	Quantity    int
	Reason      string
	ProjectName *string
	BatchID     *string
	Notes       *string
	Supplier    *SupplierInfo
	ActorID     *uuid.UUID
}

// AdjustInput sets an absolute quantity target.
type AdjustInput struct {
	NewQuantity int
	Reason      string
	Notes       *string
	ActorID     *uuid.UUID
}

// UpdateComponentInput carries optional metadata changes. Nil fields are
// left untouched. Quantity is deliberately absent; it only moves through
// inward/outward/adjust.
type UpdateComponentInput struct {
	ComponentName        *string
	ManufacturerSupplier *string
	PartNumber           *string
	Description          *string
	LocationBin          *string
	UnitPrice            *decimal.Decimal
	Category             *enums.ComponentCategory
	CriticalLowThreshold *int
	DatasheetLink        *string
	ImageURL             *string
	Notes                *string
	Tags                 []string
	ActorID              *uuid.UUID
}

// MutationResult pairs the updated component with the log entry the
// operation appended.
type MutationResult struct {
	Component *models.Component `json:"component"`
	Log       *models.StockLog  `json:"log"`
}

// ComponentDetail is a component plus its most recent history.
type ComponentDetail struct {
	Component  *models.Component `json:"component"`
	RecentLogs []models.StockLog `json:"recent_logs"`
}

type service struct {
	tx   TxRunner
	repo Repository
	logs stocklog.Repository
	now  func() time.Time
}

// NewService wires the stock transaction processor.
func NewService(tx TxRunner, repo Repository, logs stocklog.Repository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("component repository required")
	}
	if logs == nil {
		return nil, fmt.Errorf("stock log repository required")
	}
	return &service{
		tx:   tx,
		repo: repo,
		logs: logs,
		now:  time.Now,
	}, nil
}

const defaultCriticalLowThreshold = 10

func (s *service) Create(ctx context.Context, input CreateComponentInput) (*MutationResult, error) {
	partNumber := strings.ToUpper(strings.TrimSpace(input.PartNumber))
	if partNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part number is required")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid category %q", input.Category))
	}
	if input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}

	threshold := defaultCriticalLowThreshold
	if input.CriticalLowThreshold != nil {
		if *input.CriticalLowThreshold < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "critical low threshold cannot be negative")
		}
		threshold = *input.CriticalLowThreshold
	}

	var result *MutationResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		logs := s.logs.WithTx(tx)

		exists, err := repo.PartNumberExists(ctx, partNumber, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking part number uniqueness")
		}
		if exists {
			return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("part number %s already exists", partNumber))
		}

		component := &models.Component{
			ComponentName:        strings.TrimSpace(input.ComponentName),
			ManufacturerSupplier: strings.TrimSpace(input.ManufacturerSupplier),
			PartNumber:           partNumber,
			Description:          strings.TrimSpace(input.Description),
			Quantity:             input.Quantity,
			LocationBin:          strings.TrimSpace(input.LocationBin),
			UnitPrice:            input.UnitPrice,
			Category:             input.Category,
			CriticalLowThreshold: threshold,
			LastOutward:          s.now(),
			DatasheetLink:        input.DatasheetLink,
			ImageURL:             input.ImageURL,
			Notes:                input.Notes,
			Tags:                 pq.StringArray(input.Tags),
			CreatedBy:            input.ActorID,
			UpdatedBy:            input.ActorID,
		}
		if _, err := repo.Create(ctx, component); err != nil {
			return s.mapWriteError(err, "inserting component")
		}

		entry := &models.StockLog{
			ComponentID:      component.ID,
			Action:           enums.LogActionCreated,
			QuantityChanged:  component.Quantity,
			PreviousQuantity: 0,
			NewQuantity:      component.Quantity,
			Reason:           "Component created",
			UserID:           input.ActorID,
		}
		if err := logs.Create(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending creation log")
		}

		result = &MutationResult{Component: component, Log: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Inward(ctx context.Context, componentID uuid.UUID, input StockMovementInput) (*MutationResult, error) {
	if err := validateMovement(input); err != nil {
		return nil, err
	}

	var result *MutationResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		logs := s.logs.WithTx(tx)

		component, err := repo.FindByIDForUpdate(ctx, componentID)
		if err != nil {
			return s.mapLookupError(err, componentID)
		}

		previous := component.Quantity
		component.Quantity = previous + input.Quantity
		component.UpdatedBy = input.ActorID
		if _, err := repo.Save(ctx, component); err != nil {
			return s.mapWriteError(err, "updating component quantity")
		}

		entry := movementLog(component.ID, enums.LogActionInward, input, previous, component.Quantity)
		if err := logs.Create(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending inward log")
		}

		result = &MutationResult{Component: component, Log: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Outward(ctx context.Context, componentID uuid.UUID, input StockMovementInput) (*MutationResult, error) {
	if err := validateMovement(input); err != nil {
		return nil, err
	}

	var result *MutationResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		logs := s.logs.WithTx(tx)

		component, err := repo.FindByIDForUpdate(ctx, componentID)
		if err != nil {
			return s.mapLookupError(err, componentID)
		}

		previous := component.Quantity
		if input.Quantity > previous {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").
				WithDetails(map[string]int{
					"available": previous,
					"requested": input.Quantity,
				})
		}

		component.Quantity = previous - input.Quantity
		component.LastOutward = s.now()
		component.UpdatedBy = input.ActorID
		if _, err := repo.Save(ctx, component); err != nil {
			return s.mapWriteError(err, "updating component quantity")
		}

		entry := movementLog(component.ID, enums.LogActionOutward, input, previous, component.Quantity)
		entry.QuantityChanged = -input.Quantity
		if err := logs.Create(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending outward log")
		}

		result = &MutationResult{Component: component, Log: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Adjust(ctx context.Context, componentID uuid.UUID, input AdjustInput) (*MutationResult, error) {
	if input.NewQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjusted quantity cannot be negative")
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason is required")
	}

	var result *MutationResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		logs := s.logs.WithTx(tx)

		component, err := repo.FindByIDForUpdate(ctx, componentID)
		if err != nil {
			return s.mapLookupError(err, componentID)
		}

		previous := component.Quantity
		component.Quantity = input.NewQuantity
		component.UpdatedBy = input.ActorID
		if _, err := repo.Save(ctx, component); err != nil {
			return s.mapWriteError(err, "updating component quantity")
		}

		entry := &models.StockLog{
			ComponentID:      component.ID,
			Action:           enums.LogActionAdjustment,
			QuantityChanged:  input.NewQuantity - previous,
			PreviousQuantity: previous,
			NewQuantity:      input.NewQuantity,
			Reason:           strings.TrimSpace(input.Reason),
			Notes:            input.Notes,
			UserID:           input.ActorID,
		}
		if err := logs.Create(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending adjustment log")
		}

		result = &MutationResult{Component: component, Log: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Update(ctx context.Context, componentID uuid.UUID, input UpdateComponentInput) (*MutationResult, error) {
	if input.Category != nil && !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid category %q", *input.Category))
	}
	if input.UnitPrice != nil && input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}
	if input.CriticalLowThreshold != nil && *input.CriticalLowThreshold < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "critical low threshold cannot be negative")
	}

	var result *MutationResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		logs := s.logs.WithTx(tx)

		component, err := repo.FindByIDForUpdate(ctx, componentID)
		if err != nil {
			return s.mapLookupError(err, componentID)
		}

		changed := applyMetadata(component, input)
		if input.PartNumber != nil {
			normalized := strings.ToUpper(strings.TrimSpace(*input.PartNumber))
			if normalized == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "part number cannot be empty")
			}
			if normalized != component.PartNumber {
				exists, err := repo.PartNumberExists(ctx, normalized, &component.ID)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking part number uniqueness")
				}
				if exists {
					return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("part number %s already exists", normalized))
				}
				component.PartNumber = normalized
				changed = append(changed, "part_number")
			}
		}

		if len(changed) == 0 {
			result = &MutationResult{Component: component}
			return nil
		}

		sort.Strings(changed)
		component.UpdatedBy = input.ActorID
		if _, err := repo.Save(ctx, component); err != nil {
			return s.mapWriteError(err, "updating component metadata")
		}

		note := "Updated fields: " + strings.Join(changed, ", ")
		entry := &models.StockLog{
			ComponentID:      component.ID,
			Action:           enums.LogActionUpdated,
			QuantityChanged:  0,
			PreviousQuantity: component.Quantity,
			NewQuantity:      component.Quantity,
			Reason:           "Component details updated",
			Notes:            &note,
			UserID:           input.ActorID,
		}
		if err := logs.Create(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending update log")
		}

		result = &MutationResult{Component: component, Log: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Delete(ctx context.Context, componentID uuid.UUID, actorID *uuid.UUID) (*models.StockLog, error) {
	var entry *models.StockLog
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		logs := s.logs.WithTx(tx)

		component, err := repo.FindByIDForUpdate(ctx, componentID)
		if err != nil {
			return s.mapLookupError(err, componentID)
		}

		// The log row goes in before the component row goes away so the
		// audit trail records the final state.
		entry = &models.StockLog{
			ComponentID:      component.ID,
			Action:           enums.LogActionDeleted,
			QuantityChanged:  -component.Quantity,
			PreviousQuantity: component.Quantity,
			NewQuantity:      0,
			Reason:           "Component deleted",
			UserID:           actorID,
		}
		if err := logs.Create(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending deletion log")
		}

		if err := repo.Delete(ctx, component.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting component")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) Get(ctx context.Context, componentID uuid.UUID) (*ComponentDetail, error) {
	component, err := s.repo.FindByID(ctx, componentID)
	if err != nil {
		return nil, s.mapLookupError(err, componentID)
	}
	recent, err := s.logs.ListRecentByComponent(ctx, componentID, 10)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading recent logs")
	}
	return &ComponentDetail{Component: component, RecentLogs: recent}, nil
}

func (s *service) List(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error) {
	result, err := s.repo.List(ctx, filters, params, s.now())
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "listing components")
	}
	return result, nil
}

func (s *service) Logs(ctx context.Context, componentID uuid.UUID, action *enums.LogAction, params pagination.Params) ([]models.StockLog, error) {
	if action != nil && !action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid action %q", *action))
	}
	entries, err := s.logs.List(ctx, stocklog.ListFilter{ComponentID: &componentID, Action: action}, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing stock logs")
	}
	return entries, nil
}

func (s *service) Categories(ctx context.Context) ([]CategoryCount, error) {
	counts, err := s.repo.CategoryCounts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "counting categories")
	}
	return counts, nil
}

func (s *service) Locations(ctx context.Context) ([]LocationCount, error) {
	counts, err := s.repo.LocationCounts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "counting locations")
	}
	return counts, nil
}

func validateMovement(input StockMovementInput) error {
	if input.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if strings.TrimSpace(input.Reason) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reason is required")
	}
	return nil
}

func movementLog(componentID uuid.UUID, action enums.LogAction, input StockMovementInput, previous, current int) *models.StockLog {
	entry := &models.StockLog{
		ComponentID:      componentID,
		Action:           action,
		QuantityChanged:  input.Quantity,
		PreviousQuantity: previous,
		NewQuantity:      current,
		Reason:           strings.TrimSpace(input.Reason),
		ProjectName:      input.ProjectName,
		BatchID:          input.BatchID,
		Notes:            input.Notes,
		UserID:           input.ActorID,
	}
	if supplier := input.Supplier; supplier != nil {
		entry.SupplierName = supplier.Name
		entry.InvoiceNumber = supplier.InvoiceNumber
		entry.PurchaseDate = supplier.PurchaseDate
		entry.UnitCost = supplier.UnitCost
	}
	return entry
}

func applyMetadata(component *models.Component, input UpdateComponentInput) []string {
	var changed []string
	if input.ComponentName != nil && *input.ComponentName != component.ComponentName {
		component.ComponentName = *input.ComponentName
		changed = append(changed, "component_name")
	}
	if input.ManufacturerSupplier != nil && *input.ManufacturerSupplier != component.ManufacturerSupplier {
		component.ManufacturerSupplier = *input.ManufacturerSupplier
		changed = append(changed, "manufacturer_supplier")
	}
	if input.Description != nil && *input.Description != component.Description {
		component.Description = *input.Description
		changed = append(changed, "description")
	}
	if input.LocationBin != nil && *input.LocationBin != component.LocationBin {
		component.LocationBin = *input.LocationBin
		changed = append(changed, "location_bin")
	}
	if input.UnitPrice != nil && !input.UnitPrice.Equal(component.UnitPrice) {
		component.UnitPrice = *input.UnitPrice
		changed = append(changed, "unit_price")
	}
	if input.Category != nil && *input.Category != component.Category {
		component.Category = *input.Category
		changed = append(changed, "category")
	}
	if input.CriticalLowThreshold != nil && *input.CriticalLowThreshold != component.CriticalLowThreshold {
		component.CriticalLowThreshold = *input.CriticalLowThreshold
		changed = append(changed, "critical_low_threshold")
	}
	if input.DatasheetLink != nil {
		component.DatasheetLink = input.DatasheetLink
		changed = append(changed, "datasheet_link")
	}
	if input.ImageURL != nil {
		component.ImageURL = input.ImageURL
		changed = append(changed, "image_url")
	}
	if input.Notes != nil {
		component.Notes = input.Notes
		changed = append(changed, "notes")
	}
	if input.Tags != nil {
		component.Tags = pq.StringArray(input.Tags)
		changed = append(changed, "tags")
	}
	return changed
}

func (s *service) mapLookupError(err error, componentID uuid.UUID) error {
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("component %s not found", componentID))
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading component")
}

func (s *service) mapWriteError(err error, message string) error {
	if isUniquePartNumber(err) {
		return pkgerrors.New(pkgerrors.CodeConflict, "part number already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}

func isUniquePartNumber(err error) bool {
	return db.IsUniqueViolation(err, "components_part_number_key")
}
