package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/avelazco/labstock-backend/pkg/db/models"
	"github.com/avelazco/labstock-backend/pkg/enums"
	"github.com/avelazco/labstock-backend/pkg/logger"
	"github.com/avelazco/labstock-backend/pkg/mailer"
)

// lowStockDedupWindow is how long a component stays muted after a low stock
// notification is created for it.
const lowStockDedupWindow = 24 * time.Hour

type componentStore interface {
	ListLowStock(ctx context.Context) ([]models.Component, error)
	ListStale(ctx context.Context, cutoff time.Time) ([]models.Component, error)
}

type notificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
	HasRecentForComponent(ctx context.Context, componentID uuid.UUID, notificationType enums.NotificationType, since time.Time) (bool, error)
	HasSince(ctx context.Context, notificationType enums.NotificationType, since time.Time) (bool, error)
	MarkEmailSent(ctx context.Context, id uuid.UUID, at time.Time) error
}

type adminDirectory interface {
	ActiveAdminEmails(ctx context.Context) ([]string, error)
}

// Params configure a Scanner.
type Params struct {
	Logger        *logger.Logger
	Components    componentStore
	Notifications notificationStore
	Admins        adminDirectory
	Mailer        mailer.Sender
	StaleAfter    time.Duration
	DedupWindow   time.Duration
	Location      *time.Location
	DisableEmail  bool
}

// Scanner runs the low stock and stale stock health checks.
type Scanner struct {
	logg          *logger.Logger
	components    componentStore
	notifications notificationStore
	admins        adminDirectory
	mailer        mailer.Sender
	staleAfter    time.Duration
	dedupWindow   time.Duration
	location      *time.Location
	disableEmail  bool
	now           func() time.Time
}

// Result summarizes one scan pass.
type Result struct {
	Scanned       int `json:"scanned"`
	Notified      int `json:"notified"`
	Deduplicated  int `json:"deduplicated"`
	EmailsSent    int `json:"emails_sent"`
	EmailFailures int `json:"email_failures"`
}

// stalePayloadItem is one component entry in the stale stock notification
// payload.
type stalePayloadItem struct {
	ComponentID   uuid.UUID `json:"component_id"`
	ComponentName string    `json:"component_name"`
	PartNumber    string    `json:"part_number"`
	LocationBin   string    `json:"location_bin"`
	Quantity      int       `json:"quantity"`
	LastOutward   time.Time `json:"last_outward"`
}

// New builds a Scanner.
func New(params Params) (*Scanner, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Components == nil {
		return nil, fmt.Errorf("component store required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notification store required")
	}
	staleAfter := params.StaleAfter
	if staleAfter <= 0 {
		staleAfter = models.StaleAfter
	}
	dedupWindow := params.DedupWindow
	if dedupWindow <= 0 {
		dedupWindow = lowStockDedupWindow
	}
	location := params.Location
	if location == nil {
		location = time.UTC
	}
	return &Scanner{
		logg:          params.Logger,
		components:    params.Components,
		notifications: params.Notifications,
		admins:        params.Admins,
		mailer:        params.Mailer,
		staleAfter:    staleAfter,
		dedupWindow:   dedupWindow,
		location:      location,
		disableEmail:  params.DisableEmail,
		now:           time.Now,
	}, nil
}

// ScanLowStock creates one notification per component at or below its
// critical threshold, skipping components already alerted within the dedup
// window. Email delivery is best effort.
func (s *Scanner) ScanLowStock(ctx context.Context) (*Result, error) {
	now := s.now().UTC()
	result := &Result{}

	components, err := s.components.ListLowStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("list low stock components: %w", err)
	}
	result.Scanned = len(components)

	recipients := s.adminRecipients(ctx)

	for i := range components {
		component := components[i]
		recent, err := s.notifications.HasRecentForComponent(ctx, component.ID, enums.NotificationTypeLowStock, now.Add(-s.dedupWindow))
		if err != nil {
			return result, fmt.Errorf("dedup check for component %s: %w", component.ID, err)
		}
		if recent {
			result.Deduplicated++
			continue
		}

		quantity := component.Quantity
		threshold := component.CriticalLowThreshold
		componentID := component.ID
		notification := &models.Notification{
			Type:        enums.NotificationTypeLowStock,
			Title:       fmt.Sprintf("Low stock: %s", component.ComponentName),
			Message:     fmt.Sprintf("%s (%s) is at %d units, at or below the critical threshold of %d.", component.ComponentName, component.PartNumber, quantity, threshold),
			ComponentID: &componentID,
			Quantity:    &quantity,
			Threshold:   &threshold,
			TargetRoles: pq.StringArray{string(enums.UserRoleAdmin), string(enums.UserRoleLabTechnician)},
			Priority:    enums.NotificationPriorityHigh,
			ExpiresAt:   now.Add(models.NotificationTTL),
		}
		if err := s.notifications.Create(ctx, notification); err != nil {
			return result, fmt.Errorf("create low stock notification: %w", err)
		}
		result.Notified++

		s.deliverLowStockEmail(ctx, recipients, &component, notification, result)
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"scanned":      result.Scanned,
		"notified":     result.Notified,
		"deduplicated": result.Deduplicated,
		"emails_sent":  result.EmailsSent,
	})
	s.logg.Info(logCtx, "low stock scan complete")
	return result, nil
}

// ScanStaleStock creates at most one batch notification per local day for
// components with stock that have not moved outward since the cutoff.
func (s *Scanner) ScanStaleStock(ctx context.Context) (*Result, error) {
	now := s.now()
	result := &Result{}

	localNow := now.In(s.location)
	midnight := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, s.location)

	alreadyReported, err := s.notifications.HasSince(ctx, enums.NotificationTypeStaleStock, midnight)
	if err != nil {
		return nil, fmt.Errorf("stale dedup check: %w", err)
	}
	if alreadyReported {
		result.Deduplicated = 1
		s.logg.Info(ctx, "stale stock already reported today; skipping")
		return result, nil
	}

	components, err := s.components.ListStale(ctx, now.UTC().Add(-s.staleAfter))
	if err != nil {
		return nil, fmt.Errorf("list stale components: %w", err)
	}
	result.Scanned = len(components)
	if len(components) == 0 {
		return result, nil
	}

	items := make([]stalePayloadItem, 0, len(components))
	for _, component := range components {
		items = append(items, stalePayloadItem{
			ComponentID:   component.ID,
			ComponentName: component.ComponentName,
			PartNumber:    component.PartNumber,
			LocationBin:   component.LocationBin,
			Quantity:      component.Quantity,
			LastOutward:   component.LastOutward,
		})
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return result, fmt.Errorf("encode stale payload: %w", err)
	}

	notification := &models.Notification{
		Type:        enums.NotificationTypeStaleStock,
		Title:       fmt.Sprintf("Stale stock: %d component(s) with no recent movement", len(items)),
		Message:     fmt.Sprintf("%d component(s) have had stock but no outward movement for over %d days.", len(items), int(s.staleAfter.Hours()/24)),
		Payload:     payload,
		TargetRoles: pq.StringArray{string(enums.UserRoleAdmin)},
		Priority:    enums.NotificationPriorityMedium,
		ExpiresAt:   now.UTC().Add(models.NotificationTTL),
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		return result, fmt.Errorf("create stale stock notification: %w", err)
	}
	result.Notified = 1

	s.deliverStaleReportEmail(ctx, components, notification, result)

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"stale_components": result.Scanned,
		"emails_sent":      result.EmailsSent,
	})
	s.logg.Info(logCtx, "stale stock scan complete")
	return result, nil
}

func (s *Scanner) adminRecipients(ctx context.Context) []string {
	if s.disableEmail || s.mailer == nil || s.admins == nil {
		return nil
	}
	recipients, err := s.admins.ActiveAdminEmails(ctx)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "failed to load admin recipients; skipping emails")
		return nil
	}
	return recipients
}

func (s *Scanner) deliverLowStockEmail(ctx context.Context, recipients []string, component *models.Component, notification *models.Notification, result *Result) {
	if len(recipients) == 0 {
		return
	}
	alert := mailer.LowStockAlert{
		ComponentName: component.ComponentName,
		PartNumber:    component.PartNumber,
		LocationBin:   component.LocationBin,
		Quantity:      component.Quantity,
		Threshold:     component.CriticalLowThreshold,
	}
	if err := s.mailer.SendLowStockAlert(ctx, recipients, alert); err != nil {
		result.EmailFailures++
		s.logg.Warn(s.logg.WithField(ctx, "component_id", component.ID.String()), "low stock email failed: "+err.Error())
		return
	}
	result.EmailsSent++
	if err := s.notifications.MarkEmailSent(ctx, notification.ID, s.now().UTC()); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "notification_id", notification.ID.String()), "failed to stamp email_sent: "+err.Error())
	}
}

func (s *Scanner) deliverStaleReportEmail(ctx context.Context, components []models.Component, notification *models.Notification, result *Result) {
	recipients := s.adminRecipients(ctx)
	if len(recipients) == 0 {
		return
	}
	report := mailer.StaleStockReport{GeneratedAt: s.now().UTC()}
	for _, component := range components {
		report.Items = append(report.Items, mailer.StaleStockItem{
			ComponentName: component.ComponentName,
			PartNumber:    component.PartNumber,
			LocationBin:   component.LocationBin,
			Quantity:      component.Quantity,
			LastOutward:   component.LastOutward,
		})
	}
	if err := s.mailer.SendStaleStockReport(ctx, recipients, report); err != nil {
		result.EmailFailures++
		s.logg.Warn(ctx, "stale stock report email failed: "+err.Error())
		return
	}
	result.EmailsSent++
	if err := s.notifications.MarkEmailSent(ctx, notification.ID, s.now().UTC()); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "notification_id", notification.ID.String()), "failed to stamp email_sent: "+err.Error())
	}
}
