package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avelazco/labstock-backend/internal/stocklog"
	"github.com/avelazco/labstock-backend/pkg/db/models"
	"github.com/avelazco/labstock-backend/pkg/enums"
)

type fakeComponentSource struct {
	components       []models.Component
	lastIncludeEmpty bool
}

func (f *fakeComponentSource) ListForExport(ctx context.Context, includeEmpty bool) ([]models.Component, error) {
	f.lastIncludeEmpty = includeEmpty
	return f.components, nil
}

type fakeLogSource struct {
	entries    []models.StockLog
	lastFilter stocklog.ListFilter
}

func (f *fakeLogSource) ListAll(ctx context.Context, filter stocklog.ListFilter) ([]models.StockLog, error) {
	f.lastFilter = filter
	return f.entries, nil
}

func sampleComponent() models.Component {
	return models.Component{
		ID:                   uuid.New(),
		ComponentName:        "10k resistor",
		PartNumber:           "RES-10K",
		ManufacturerSupplier: "Yageo",
		Description:          "0805 thick film",
		Quantity:             250,
		LocationBin:          "A3",
		UnitPrice:            decimal.RequireFromString("0.02"),
		Category:             enums.ComponentCategoryResistors,
		CriticalLowThreshold: 50,
		LastOutward:          time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC),
		CreatedAt:            time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestParseFormat(t *testing.T) {
	if format, err := ParseFormat(""); err != nil || format != FormatCSV {
		t.Fatalf("expected csv default, got %v %v", format, err)
	}
	if format, err := ParseFormat("json"); err != nil || format != FormatJSON {
		t.Fatalf("expected json, got %v %v", format, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWriteComponentsCSV(t *testing.T) {
	source := &fakeComponentSource{components: []models.Component{sampleComponent()}}
	svc, err := NewService(source, &fakeLogSource{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	var buf bytes.Buffer
	if err := svc.WriteComponents(context.Background(), &buf, FormatCSV, false); err != nil {
		t.Fatalf("WriteComponents: %v", err)
	}
	if source.lastIncludeEmpty {
		t.Fatal("includeEmpty should pass through as false")
	}

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header plus one row, got %d records", len(records))
	}
	if records[0][1] != "component_name" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	row := records[1]
	if row[1] != "10k resistor" || row[2] != "RES-10K" || row[5] != "250" || row[7] != "0.02" {
		t.Fatalf("unexpected row: %v", row)
	}
}

func TestWriteComponentsJSON(t *testing.T) {
	source := &fakeComponentSource{components: []models.Component{sampleComponent()}}
	svc, err := NewService(source, &fakeLogSource{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	var buf bytes.Buffer
	if err := svc.WriteComponents(context.Background(), &buf, FormatJSON, true); err != nil {
		t.Fatalf("WriteComponents: %v", err)
	}
	if !source.lastIncludeEmpty {
		t.Fatal("includeEmpty should pass through as true")
	}

	var decoded []models.Component
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("parse json: %v", err)
	}
	if len(decoded) != 1 || decoded[0].PartNumber != "RES-10K" {
		t.Fatalf("unexpected payload: %+v", decoded)
	}
}

func TestWriteLogsCSVFiltersPassThrough(t *testing.T) {
	action := enums.LogActionOutward
	userID := uuid.New()
	logs := &fakeLogSource{entries: []models.StockLog{{
		ID:               uuid.New(),
		ComponentID:      uuid.New(),
		Action:           action,
		QuantityChanged:  -5,
		PreviousQuantity: 30,
		NewQuantity:      25,
		Reason:           "prototype build",
		UserID:           &userID,
		CreatedAt:        time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC),
	}}}
	svc, err := NewService(&fakeComponentSource{}, logs)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	from := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	filter := stocklog.ListFilter{Action: &action, From: &from}
	if err := svc.WriteLogs(context.Background(), &buf, FormatCSV, filter); err != nil {
		t.Fatalf("WriteLogs: %v", err)
	}
	if logs.lastFilter.Action == nil || *logs.lastFilter.Action != action {
		t.Fatal("expected action filter to pass through")
	}

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header plus one row, got %d", len(records))
	}
	if records[1][2] != "outward" || records[1][3] != "-5" || records[1][6] != "prototype build" {
		t.Fatalf("unexpected row: %v", records[1])
	}
}

func TestFormatHelpers(t *testing.T) {
	at := time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)
	if FormatCSV.Filename("components", at) != "components_2025-09-15.csv" {
		t.Fatalf("unexpected filename %s", FormatCSV.Filename("components", at))
	}
	if FormatJSON.ContentType() != "application/json" || FormatCSV.ContentType() != "text/csv" {
		t.Fatal("unexpected content types")
	}
}
