package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avelazco/labstock-backend/api/responses"
	"github.com/avelazco/labstock-backend/api/validators"
	"github.com/avelazco/labstock-backend/internal/components"
	"github.com/avelazco/labstock-backend/pkg/enums"
	pkgerrors "github.com/avelazco/labstock-backend/pkg/errors"
	"github.com/avelazco/labstock-backend/pkg/logger"
	"github.com/avelazco/labstock-backend/pkg/pagination"
)

type createComponentRequest struct {
	ComponentName        string   `json:"component_name" validate:"required,min=1"`
	ManufacturerSupplier string   `json:"manufacturer_supplier" validate:"required,min=1"`
	PartNumber           string   `json:"part_number" validate:"required,min=1"`
	Description          string   `json:"description" validate:"required,min=1"`
	Quantity             int      `json:"quantity" validate:"min=0"`
	LocationBin          string   `json:"location_bin" validate:"required,min=1"`
	UnitPrice            string   `json:"unit_price" validate:"required"`
	Category             string   `json:"category" validate:"required"`
	CriticalLowThreshold *int     `json:"critical_low_threshold,omitempty" validate:"omitempty,min=0"`
	DatasheetLink        *string  `json:"datasheet_link,omitempty"`
	ImageURL             *string  `json:"image_url,omitempty"`
	Notes                *string  `json:"notes,omitempty"`
	Tags                 []string `json:"tags,omitempty"`
}

type stockMovementRequest struct {
	Quantity    int                  `json:"quantity" validate:"required,min=1"`
	Reason      string               `json:"reason" validate:"required,min=1"`
	ProjectName *string              `json:"project_name,omitempty"`
	BatchID     *string              `json:"batch_id,omitempty"`
	Notes       *string              `json:"notes,omitempty"`
	Supplier    *supplierInfoRequest `json:"supplier,omitempty"`
}

type supplierInfoRequest struct {
	Name          *string    `json:"name,omitempty"`
	InvoiceNumber *string    `json:"invoice_number,omitempty"`
	PurchaseDate  *time.Time `json:"purchase_date,omitempty"`
	UnitCost      *string    `json:"unit_cost,omitempty"`
}

type adjustRequest struct {
	NewQuantity int     `json:"new_quantity" validate:"min=0"`
	Reason      string  `json:"reason" validate:"required,min=1"`
	Notes       *string `json:"notes,omitempty"`
}

type updateComponentRequest struct {
	ComponentName        *string  `json:"component_name,omitempty" validate:"omitempty,min=1"`
	ManufacturerSupplier *string  `json:"manufacturer_supplier,omitempty" validate:"omitempty,min=1"`
	PartNumber           *string  `json:"part_number,omitempty" validate:"omitempty,min=1"`
	Description          *string  `json:"description,omitempty"`
	LocationBin          *string  `json:"location_bin,omitempty" validate:"omitempty,min=1"`
	UnitPrice            *string  `json:"unit_price,omitempty"`
	Category             *string  `json:"category,omitempty"`
	CriticalLowThreshold *int     `json:"critical_low_threshold,omitempty" validate:"omitempty,min=0"`
	DatasheetLink        *string  `json:"datasheet_link,omitempty"`
	ImageURL             *string  `json:"image_url,omitempty"`
	Notes                *string  `json:"notes,omitempty"`
	Tags                 []string `json:"tags,omitempty"`
}

func componentIDParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid component id")
	}
	return id, nil
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit price")
	}
	return price, nil
}

// ComponentCreate registers a new component in the catalog.
func ComponentCreate(svc components.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createComponentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := parsePrice(req.UnitPrice)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Create(r.Context(), components.CreateComponentInput{
			ComponentName:        req.ComponentName,
			ManufacturerSupplier: req.ManufacturerSupplier,
			PartNumber:           req.PartNumber,
			Description:          req.Description,
			Quantity:             req.Quantity,
			LocationBin:          req.LocationBin,
			UnitPrice:            price,
			Category:             enums.ComponentCategory(req.Category),
			CriticalLowThreshold: req.CriticalLowThreshold,
			DatasheetLink:        req.DatasheetLink,
			ImageURL:             req.ImageURL,
			Notes:                req.Notes,
			Tags:                 req.Tags,
			ActorID:              actorID(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// ComponentList returns a filtered, cursor-paginated page of components.
func ComponentList(svc components.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		filters := components.ListFilters{
			Query:    strings.TrimSpace(query.Get("q")),
			LowStock: query.Get("low_stock") == "true",
			Stale:    query.Get("stale") == "true",
		}
		if raw := strings.TrimSpace(query.Get("category")); raw != "" {
			category := enums.ComponentCategory(raw)
			if !category.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid category"))
				return
			}
			filters.Category = &category
		}
		if raw := strings.TrimSpace(query.Get("location")); raw != "" {
			filters.Location = &raw
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), filters, pagination.Params{
			Limit:  limit,
			Cursor: query.Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ComponentGet returns one component with its recent history.
func ComponentGet(svc components.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := componentIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// ComponentUpdate changes component metadata. Quantity moves only through
// the movement endpoints.
func ComponentUpdate(svc components.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := componentIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateComponentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := components.UpdateComponentInput{
			ComponentName:        req.ComponentName,
			ManufacturerSupplier: req.ManufacturerSupplier,
			PartNumber:           req.PartNumber,
			Description:          req.Description,
			LocationBin:          req.LocationBin,
			CriticalLowThreshold: req.CriticalLowThreshold,
			DatasheetLink:        req.DatasheetLink,
			ImageURL:             req.ImageURL,
			Notes:                req.Notes,
			Tags:                 req.Tags,
			ActorID:              actorID(r),
		}
		if req.UnitPrice != nil {
			price, err := parsePrice(*req.UnitPrice)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.UnitPrice = &price
		}
		if req.Category != nil {
			category := enums.ComponentCategory(*req.Category)
			input.Category = &category
		}

		result, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ComponentDelete removes a component, leaving its audit trail behind.
func ComponentDelete(svc components.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := componentIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entry, err := svc.Delete(r.Context(), id, actorID(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": true, "log": entry})
	}
}

func movementInput(req stockMovementRequest, actor *uuid.UUID) (components.StockMovementInput, error) {
	input := components.StockMovementInput{
		Quantity:    req.Quantity,
		Reason:      req.Reason,
		ProjectName: req.ProjectName,
		BatchID:     req.BatchID,
		Notes:       req.Notes,
		ActorID:     actor,
	}
	if req.Supplier != nil {
		supplier := &components.SupplierInfo{
			Name:          req.Supplier.Name,
			InvoiceNumber: req.Supplier.InvoiceNumber,
			PurchaseDate:  req.Supplier.PurchaseDate,
		}
		if req.Supplier.UnitCost != nil {
			cost, err := parsePrice(*req.Supplier.UnitCost)
			if err != nil {
				return input, err
			}
			supplier.UnitCost = &cost
		}
		input.Supplier = supplier
	}
	return input, nil
}

// ComponentInward records stock received.
func ComponentInward(svc components.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := componentIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req stockMovementRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := movementInput(req, actorID(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Inward(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ComponentOutward records stock consumed.
func ComponentOutward(svc components.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := componentIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req stockMovementRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := movementInput(req, actorID(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Outward(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ComponentAdjust sets an absolute quantity after a physical count.
func ComponentAdjust(svc components.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := componentIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req adjustRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Adjust(r.Context(), id, components.AdjustInput{
			NewQuantity: req.NewQuantity,
			Reason:      req.Reason,
			Notes:       req.Notes,
			ActorID:     actorID(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ComponentLogs lists the movement history for one component.
func ComponentLogs(svc components.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := componentIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var action *enums.LogAction
		if raw := strings.TrimSpace(r.URL.Query().Get("action")); raw != "" {
			parsed := enums.LogAction(raw)
			action = &parsed
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.Logs(r.Context(), id, action, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"logs": entries})
	}
}

// ComponentCategories returns the component count per category.
func ComponentCategories(svc components.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := svc.Categories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"categories": counts})
	}
}

// ComponentLocations returns the component count per location bin.
func ComponentLocations(svc components.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := svc.Locations(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"locations": counts})
	}
}
