package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/townielabs/townie-backend/pkg/db/models"
	"github.com/townielabs/townie-backend/pkg/enums"
	pkgerrors "github.com/townielabs/townie-backend/pkg/errors"
	"github.com/townielabs/townie-backend/pkg/logger"
)

type stubRepo struct {
	rows map[uuid.UUID]*models.Notification
}

func newStubRepo() *stubRepo {
	return &stubRepo{rows: map[uuid.UUID]*models.Notification{}}
}

func (r *stubRepo) Create(_ context.Context, n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.CreatedAt = time.Now().UTC()
	r.rows[n.ID] = n
	return nil
}

func (r *stubRepo) List(_ context.Context, params listParams) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range r.rows {
		if n.UserID != params.UserID {
			continue
		}
		if params.UnreadOnly && n.ReadAt != nil {
			continue
		}
		out = append(out, *n)
	}
	return out, nil
}

func (r *stubRepo) MarkRead(_ context.Context, userID, id uuid.UUID, now time.Time) (bool, error) {
	n, ok := r.rows[id]
	if !ok || n.UserID != userID || n.ReadAt != nil {
		return false, nil
	}
	n.ReadAt = &now
	return true, nil
}

func (r *stubRepo) DeleteOlderThan(_ context.Context, _ *gorm.DB, cutoff time.Time) (int64, error) {
	var count int64
	for id, n := range r.rows {
		if n.CreatedAt.Before(cutoff) {
			delete(r.rows, id)
			count++
		}
	}
	return count, nil
}

func (r *stubRepo) MarkAllRead(_ context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	var count int64
	for _, n := range r.rows {
		if n.UserID == userID && n.ReadAt == nil {
			n.ReadAt = &now
			count++
		}
	}
	return count, nil
}

type stubUsers struct {
	users map[uuid.UUID]*models.User
}

func (s *stubUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return s.users[id], nil
}

type stubNotifier struct {
	sent []string
}

func (n *stubNotifier) SendSMS(_ context.Context, mobileNumber, _ string) {
	n.sent = append(n.sent, mobileNumber)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test"})
}

func newTestService(t *testing.T, repo Repository, users UserSource, notifier Notifier) Service {
	t.Helper()
	svc, err := NewService(repo, users, notifier, testLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestPush_RecordsInApp(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo, nil, nil)
	userID := uuid.New()

	err := svc.Push(context.Background(), PushInput{
		UserID:  userID,
		Type:    enums.NotificationTypeOrderAlert,
		Title:   "Order placed",
		Message: "Your order #1024 is waiting for the shop to accept.",
	})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if len(repo.rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(repo.rows))
	}
	for _, n := range repo.rows {
		if n.UserID != userID || n.Type != enums.NotificationTypeOrderAlert {
			t.Fatalf("stored = %+v", n)
		}
	}
}

func TestPush_SMSCopyBestEffort(t *testing.T) {
	repo := newStubRepo()
	userID := uuid.New()
	users := &stubUsers{users: map[uuid.UUID]*models.User{
		userID: {ID: userID, MobileNumber: "+919900112233"},
	}}
	notifier := &stubNotifier{}
	svc := newTestService(t, repo, users, notifier)

	err := svc.Push(context.Background(), PushInput{
		UserID:  userID,
		Type:    enums.NotificationTypeOrderAlert,
		Title:   "Order accepted",
		Message: "The shop accepted your order.",
		SendSMS: true,
	})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if len(notifier.sent) != 1 || notifier.sent[0] != "+919900112233" {
		t.Fatalf("sms sent = %v", notifier.sent)
	}

	// Unknown user never fails the push.
	err = svc.Push(context.Background(), PushInput{
		UserID:  uuid.New(),
		Type:    enums.NotificationTypeOrderAlert,
		Title:   "Order accepted",
		Message: "The shop accepted your order.",
		SendSMS: true,
	})
	if err != nil {
		t.Fatalf("Push with unknown user: %v", err)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("sms sent = %v, want no second send", notifier.sent)
	}
}

func TestPush_Validation(t *testing.T) {
	svc := newTestService(t, newStubRepo(), nil, nil)

	cases := []struct {
		name  string
		input PushInput
	}{
		{"missing user", PushInput{Type: enums.NotificationTypeOrderAlert, Title: "t", Message: "m"}},
		{"bad type", PushInput{UserID: uuid.New(), Type: "carrier_pigeon", Title: "t", Message: "m"}},
		{"empty message", PushInput{UserID: uuid.New(), Type: enums.NotificationTypeOrderAlert, Title: "t"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Push(context.Background(), tc.input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestMarkRead_ScopedToUser(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo, nil, nil)
	owner := uuid.New()

	if err := svc.Push(context.Background(), PushInput{
		UserID:  owner,
		Type:    enums.NotificationTypeShopAlert,
		Title:   "Shop approved",
		Message: "Your shop is live.",
	}); err != nil {
		t.Fatalf("Push: %v", err)
	}
	var id uuid.UUID
	for _, n := range repo.rows {
		id = n.ID
	}

	err := svc.MarkRead(context.Background(), uuid.New(), id)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("foreign user mark read: %v", err)
	}

	if err := svc.MarkRead(context.Background(), owner, id); err != nil {
		t.Fatalf("owner mark read: %v", err)
	}
	if repo.rows[id].ReadAt == nil {
		t.Fatal("read_at not set")
	}
}

func TestMarkAllRead(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo, nil, nil)
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		if err := svc.Push(context.Background(), PushInput{
			UserID:  userID,
			Type:    enums.NotificationTypeOrderAlert,
			Title:   "Update",
			Message: "Order update.",
		}); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}

	count, err := svc.MarkAllRead(context.Background(), userID)
	if err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}

	unread, err := svc.List(context.Background(), ListParams{UserID: userID, UnreadOnly: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(unread) != 0 {
		t.Fatalf("unread = %d, want 0", len(unread))
	}
}
