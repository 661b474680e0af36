package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/avelazco/labstock-backend/pkg/config"
	"github.com/avelazco/labstock-backend/pkg/logger"
)

// Sender delivers stock alert emails. Implementations must be safe for
// concurrent use.
type Sender interface {
	SendLowStockAlert(ctx context.Context, recipients []string, alert LowStockAlert) error
	SendStaleStockReport(ctx context.Context, recipients []string, report StaleStockReport) error
}

// LowStockAlert carries the component snapshot rendered into the alert email.
type LowStockAlert struct {
	ComponentName string
	PartNumber    string
	LocationBin   string
	Quantity      int
	Threshold     int
}

// StaleStockItem is one row of the stale stock report.
type StaleStockItem struct {
	ComponentName string
	PartNumber    string
	LocationBin   string
	Quantity      int
	LastOutward   time.Time
}

// StaleStockReport is the batch payload for the stale stock email.
type StaleStockReport struct {
	GeneratedAt time.Time
	Items       []StaleStockItem
}

// Mailer sends alert emails over SMTP.
type Mailer struct {
	cfg  config.SMTPConfig
	logg *logger.Logger
}

// New builds a Mailer from SMTP configuration.
func New(cfg config.SMTPConfig, logg *logger.Logger) *Mailer {
	return &Mailer{cfg: cfg, logg: logg}
}

var lowStockTmpl = template.Must(template.New("low_stock").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px;">
  <h2 style="color: #d32f2f;">Low Stock Alert</h2>
  <p><strong>{{.ComponentName}}</strong> ({{.PartNumber}}) is running low.</p>
  <table style="border-collapse: collapse; width: 100%;">
    <tr><td style="padding: 6px; border: 1px solid #ddd;">Current quantity</td><td style="padding: 6px; border: 1px solid #ddd;"><strong>{{.Quantity}}</strong></td></tr>
    <tr><td style="padding: 6px; border: 1px solid #ddd;">Critical threshold</td><td style="padding: 6px; border: 1px solid #ddd;">{{.Threshold}}</td></tr>
    <tr><td style="padding: 6px; border: 1px solid #ddd;">Location</td><td style="padding: 6px; border: 1px solid #ddd;">{{.LocationBin}}</td></tr>
  </table>
  <p style="color: #666; font-size: 12px;">Please restock this component soon.</p>
</div>`))

var staleStockTmpl = template.Must(template.New("stale_stock").Parse(`<div style="font-family: Arial, sans-serif; max-width: 700px;">
  <h2 style="color: #f57c00;">Stale Stock Report</h2>
  <p>{{len .Items}} component(s) have had no outward movement for over 90 days.</p>
  <table style="border-collapse: collapse; width: 100%;">
    <tr style="background: #f5f5f5;">
      <th style="padding: 6px; border: 1px solid #ddd; text-align: left;">Component</th>
      <th style="padding: 6px; border: 1px solid #ddd; text-align: left;">Part #</th>
      <th style="padding: 6px; border: 1px solid #ddd; text-align: left;">Location</th>
      <th style="padding: 6px; border: 1px solid #ddd; text-align: right;">Qty</th>
      <th style="padding: 6px; border: 1px solid #ddd; text-align: left;">Last Outward</th>
    </tr>
    {{range .Items}}<tr>
      <td style="padding: 6px; border: 1px solid #ddd;">{{.ComponentName}}</td>
      <td style="padding: 6px; border: 1px solid #ddd;">{{.PartNumber}}</td>
      <td style="padding: 6px; border: 1px solid #ddd;">{{.LocationBin}}</td>
      <td style="padding: 6px; border: 1px solid #ddd; text-align: right;">{{.Quantity}}</td>
      <td style="padding: 6px; border: 1px solid #ddd;">{{.LastOutward.Format "2006-01-02"}}</td>
    </tr>{{end}}
  </table>
  <p style="color: #666; font-size: 12px;">Generated {{.GeneratedAt.Format "2006-01-02 15:04 MST"}}.</p>
</div>`))

// SendLowStockAlert emails a single low stock alert to the recipients.
func (m *Mailer) SendLowStockAlert(ctx context.Context, recipients []string, alert LowStockAlert) error {
	subject := fmt.Sprintf("Low Stock Alert: %s (%s)", alert.ComponentName, alert.PartNumber)

	var body bytes.Buffer
	if err := lowStockTmpl.Execute(&body, alert); err != nil {
		return fmt.Errorf("rendering low stock template: %w", err)
	}

	return m.send(ctx, recipients, subject, body.String())
}

// SendStaleStockReport emails the batch stale stock report to the recipients.
func (m *Mailer) SendStaleStockReport(ctx context.Context, recipients []string, report StaleStockReport) error {
	subject := fmt.Sprintf("Stale Stock Report: %d component(s) with no recent movement", len(report.Items))

	var body bytes.Buffer
	if err := staleStockTmpl.Execute(&body, report); err != nil {
		return fmt.Errorf("rendering stale stock template: %w", err)
	}

	return m.send(ctx, recipients, subject, body.String())
}

func (m *Mailer) send(ctx context.Context, recipients []string, subject, htmlBody string) error {
	if !m.cfg.Enabled() {
		return fmt.Errorf("smtp is not configured")
	}
	if len(recipients) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(m.cfg.FromName, m.cfg.FromAddress); err != nil {
		return fmt.Errorf("setting from address: %w", err)
	}
	if err := msg.To(recipients...); err != nil {
		return fmt.Errorf("setting recipients: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
	}
	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	return nil
}
