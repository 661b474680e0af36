package mailer

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/avelazco/labstock-backend/pkg/config"
)

func TestLowStockTemplateRendersSnapshot(t *testing.T) {
	var body bytes.Buffer
	err := lowStockTmpl.Execute(&body, LowStockAlert{
		ComponentName: "LM358 Op-Amp",
		PartNumber:    "LM358N",
		LocationBin:   "A-12",
		Quantity:      3,
		Threshold:     10,
	})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	html := body.String()
	for _, want := range []string{"LM358 Op-Amp", "LM358N", "A-12", ">3<", ">10<"} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered alert missing %q", want)
		}
	}
}

func TestStaleStockTemplateRendersAllRows(t *testing.T) {
	report := StaleStockReport{
		GeneratedAt: time.Date(2025, 9, 15, 8, 0, 0, 0, time.UTC),
		Items: []StaleStockItem{
			{ComponentName: "BC547", PartNumber: "BC547B", LocationBin: "B-03", Quantity: 120, LastOutward: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)},
			{ComponentName: "NE555", PartNumber: "NE555P", LocationBin: "B-07", Quantity: 40, LastOutward: time.Date(2025, 4, 20, 0, 0, 0, 0, time.UTC)},
		},
	}

	var body bytes.Buffer
	if err := staleStockTmpl.Execute(&body, report); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	html := body.String()
	for _, want := range []string{"BC547B", "NE555P", "2025-05-01", "2025-04-20", "2 component(s)"} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered report missing %q", want)
		}
	}
}

func TestSendRequiresConfiguration(t *testing.T) {
	m := New(config.SMTPConfig{}, nil)
	err := m.SendLowStockAlert(t.Context(), []string{"admin@lab.example"}, LowStockAlert{})
	if err == nil {
		t.Fatal("expected error when smtp host is unset")
	}
}
