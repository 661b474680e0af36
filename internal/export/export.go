package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/avelazco/labstock-backend/internal/stocklog"
	"github.com/avelazco/labstock-backend/pkg/db/models"
	pkgerrors "github.com/avelazco/labstock-backend/pkg/errors"
)

// Format selects the export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat validates a format query value, defaulting to CSV.
func ParseFormat(value string) (Format, error) {
	switch value {
	case "", string(FormatCSV):
		return FormatCSV, nil
	case string(FormatJSON):
		return FormatJSON, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "format must be csv or json")
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv"
}

// Filename builds the attachment filename for the given export prefix.
func (f Format) Filename(prefix string, at time.Time) string {
	return fmt.Sprintf("%s_%s.%s", prefix, at.UTC().Format("2006-01-02"), f)
}

type componentSource interface {
	ListForExport(ctx context.Context, includeEmpty bool) ([]models.Component, error)
}

type logSource interface {
	ListAll(ctx context.Context, filter stocklog.ListFilter) ([]models.StockLog, error)
}

// Service streams component and log exports.
type Service struct {
	components componentSource
	logs       logSource
}

// NewService wires the export sources.
func NewService(components componentSource, logs logSource) (*Service, error) {
	if components == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "components source required")
	}
	if logs == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logs source required")
	}
	return &Service{components: components, logs: logs}, nil
}

var componentHeader = []string{
	"id", "component_name", "part_number", "manufacturer_supplier", "category",
	"quantity", "location_bin", "unit_price", "critical_low_threshold",
	"last_outward", "description", "created_at",
}

var logHeader = []string{
	"id", "component_id", "action", "quantity_changed", "previous_quantity",
	"new_quantity", "reason", "project_name", "user_id", "created_at",
}

// WriteComponents encodes the component catalog to the writer.
func (s *Service) WriteComponents(ctx context.Context, w io.Writer, format Format, includeEmpty bool) error {
	components, err := s.components.ListForExport(ctx, includeEmpty)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load components for export")
	}

	if format == FormatJSON {
		return encodeJSON(w, components)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(componentHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range components {
		component := &components[i]
		row := []string{
			component.ID.String(),
			component.ComponentName,
			component.PartNumber,
			component.ManufacturerSupplier,
			string(component.Category),
			strconv.Itoa(component.Quantity),
			component.LocationBin,
			component.UnitPrice.StringFixed(2),
			strconv.Itoa(component.CriticalLowThreshold),
			component.LastOutward.UTC().Format(time.RFC3339),
			component.Description,
			component.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteLogs encodes the stock log history to the writer.
func (s *Service) WriteLogs(ctx context.Context, w io.Writer, format Format, filter stocklog.ListFilter) error {
	entries, err := s.logs.ListAll(ctx, filter)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load logs for export")
	}

	if format == FormatJSON {
		return encodeJSON(w, entries)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(logHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range entries {
		entry := &entries[i]
		row := []string{
			entry.ID.String(),
			entry.ComponentID.String(),
			string(entry.Action),
			strconv.Itoa(entry.QuantityChanged),
			strconv.Itoa(entry.PreviousQuantity),
			strconv.Itoa(entry.NewQuantity),
			entry.Reason,
			stringOrEmpty(entry.ProjectName),
			uuidOrEmpty(entry.UserID),
			entry.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func encodeJSON(w io.Writer, payload any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(payload); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func stringOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func uuidOrEmpty(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
