package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/avelazco/labstock-backend/pkg/db/models"
	"github.com/avelazco/labstock-backend/pkg/enums"
	pkgerrors "github.com/avelazco/labstock-backend/pkg/errors"
	"github.com/avelazco/labstock-backend/pkg/pagination"
)

type fakeNotificationRepo struct {
	byID        map[uuid.UUID]*models.Notification
	reads       map[uuid.UUID]map[uuid.UUID]bool
	lastList    listNotificationsParams
	unread      int64
	markAllHits int64
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{
		byID:  make(map[uuid.UUID]*models.Notification),
		reads: make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (f *fakeNotificationRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	copied := *notification
	f.byID[notification.ID] = &copied
	return nil
}

func (f *fakeNotificationRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	notification, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *notification
	return &copied, nil
}

func (f *fakeNotificationRepo) List(ctx context.Context, params listNotificationsParams) ([]NotificationView, *pagination.Cursor, error) {
	f.lastList = params
	var views []NotificationView
	for _, notification := range f.byID {
		if !notification.VisibleTo(params.Role) {
			continue
		}
		views = append(views, NotificationView{
			Notification: *notification,
			IsRead:       f.reads[notification.ID][params.UserID],
		})
	}
	return views, nil, nil
}

func (f *fakeNotificationRepo) CountUnread(ctx context.Context, userID uuid.UUID, role enums.UserRole) (int64, error) {
	return f.unread, nil
}

func (f *fakeNotificationRepo) InsertRead(ctx context.Context, notificationID, userID uuid.UUID, now time.Time) (bool, error) {
	if f.reads[notificationID] == nil {
		f.reads[notificationID] = make(map[uuid.UUID]bool)
	}
	if f.reads[notificationID][userID] {
		return false, nil
	}
	f.reads[notificationID][userID] = true
	return true, nil
}

func (f *fakeNotificationRepo) MarkAllRead(ctx context.Context, userID uuid.UUID, role enums.UserRole, now time.Time) (int64, error) {
	return f.markAllHits, nil
}

func (f *fakeNotificationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.byID, id)
	return nil
}

func (f *fakeNotificationRepo) Stats(ctx context.Context) ([]TypeStat, error) {
	return []TypeStat{{Type: enums.NotificationTypeLowStock, Total: int64(len(f.byID))}}, nil
}

func (f *fakeNotificationRepo) HasRecentForComponent(ctx context.Context, componentID uuid.UUID, notificationType enums.NotificationType, since time.Time) (bool, error) {
	return false, nil
}

func (f *fakeNotificationRepo) HasSince(ctx context.Context, notificationType enums.NotificationType, since time.Time) (bool, error) {
	return false, nil
}

func (f *fakeNotificationRepo) MarkEmailSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return nil
}

func (f *fakeNotificationRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func newTestNotificationService(t *testing.T, repo Repository, now time.Time) Service {
	t.Helper()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	svc.(*service).now = func() time.Time { return now }
	return svc
}

func seedNotification(repo *fakeNotificationRepo, createdAt time.Time, roles ...string) *models.Notification {
	notification := &models.Notification{
		ID:          uuid.New(),
		Type:        enums.NotificationTypeLowStock,
		Title:       "Low stock",
		Message:     "component below threshold",
		TargetRoles: pq.StringArray(roles),
		Priority:    enums.NotificationPriorityHigh,
		ExpiresAt:   createdAt.Add(models.NotificationTTL),
		CreatedAt:   createdAt,
	}
	repo.byID[notification.ID] = notification
	return notification
}

func TestMarkReadIsIdempotent(t *testing.T) {
	repo := newFakeNotificationRepo()
	now := time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)
	svc := newTestNotificationService(t, repo, now)

	notification := seedNotification(repo, now.Add(-time.Hour))
	userID := uuid.New()

	if err := svc.MarkRead(context.Background(), userID, notification.ID); err != nil {
		t.Fatalf("first MarkRead: %v", err)
	}
	if err := svc.MarkRead(context.Background(), userID, notification.ID); err != nil {
		t.Fatalf("second MarkRead should be a no-op, got %v", err)
	}
	if !repo.reads[notification.ID][userID] {
		t.Fatal("expected read record to exist")
	}
}

func TestMarkReadUnknownNotification(t *testing.T) {
	repo := newFakeNotificationRepo()
	now := time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)
	svc := newTestNotificationService(t, repo, now)

	err := svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestDeleteRecentNotificationRequiresAdmin(t *testing.T) {
	repo := newFakeNotificationRepo()
	now := time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)
	svc := newTestNotificationService(t, repo, now)

	notification := seedNotification(repo, now.Add(-time.Hour))

	err := svc.Delete(context.Background(), notification.ID, enums.UserRoleResearcher)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN for recent delete, got %v", err)
	}
	if _, ok := repo.byID[notification.ID]; !ok {
		t.Fatal("notification should not have been removed")
	}

	if err := svc.Delete(context.Background(), notification.ID, enums.UserRoleAdmin); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if _, ok := repo.byID[notification.ID]; ok {
		t.Fatal("expected admin delete to remove the notification")
	}
}

func TestDeleteOldNotificationAllowedForAnyRole(t *testing.T) {
	repo := newFakeNotificationRepo()
	now := time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)
	svc := newTestNotificationService(t, repo, now)

	notification := seedNotification(repo, now.Add(-deleteGracePeriod-time.Hour))

	if err := svc.Delete(context.Background(), notification.ID, enums.UserRoleLabTechnician); err != nil {
		t.Fatalf("delete past grace period: %v", err)
	}
	if _, ok := repo.byID[notification.ID]; ok {
		t.Fatal("expected notification to be removed")
	}
}

func TestListFiltersByRoleVisibility(t *testing.T) {
	repo := newFakeNotificationRepo()
	now := time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)
	svc := newTestNotificationService(t, repo, now)

	broadcast := seedNotification(repo, now.Add(-2*time.Hour))
	seedNotification(repo, now.Add(-time.Hour), string(enums.UserRoleAdmin))

	result, err := svc.List(context.Background(), ListParams{
		UserID: uuid.New(),
		Role:   enums.UserRoleEngineer,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 visible notification, got %d", len(result.Items))
	}
	if result.Items[0].ID != broadcast.ID {
		t.Fatalf("expected broadcast notification, got %s", result.Items[0].ID)
	}

	result, err = svc.List(context.Background(), ListParams{
		UserID: uuid.New(),
		Role:   enums.UserRoleAdmin,
	})
	if err != nil {
		t.Fatalf("List as admin: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 visible notifications for admin, got %d", len(result.Items))
	}
}

func TestListRejectsBadCursor(t *testing.T) {
	repo := newFakeNotificationRepo()
	now := time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)
	svc := newTestNotificationService(t, repo, now)

	_, err := svc.List(context.Background(), ListParams{
		UserID: uuid.New(),
		Role:   enums.UserRoleAdmin,
		Cursor: "not-base64!!",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestUnreadCountRequiresUser(t *testing.T) {
	repo := newFakeNotificationRepo()
	now := time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)
	svc := newTestNotificationService(t, repo, now)

	_, err := svc.UnreadCount(context.Background(), uuid.Nil, enums.UserRoleAdmin)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}

	repo.unread = 4
	count, err := svc.UnreadCount(context.Background(), uuid.New(), enums.UserRoleAdmin)
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected 4 unread, got %d", count)
	}
}

func TestMarkAllReadReportsRowCount(t *testing.T) {
	repo := newFakeNotificationRepo()
	repo.markAllHits = 3
	now := time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)
	svc := newTestNotificationService(t, repo, now)

	count, err := svc.MarkAllRead(context.Background(), uuid.New(), enums.UserRoleResearcher)
	if err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 rows marked, got %d", count)
	}
}
