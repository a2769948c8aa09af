package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/townielabs/townie-backend/pkg/config"
	"github.com/townielabs/townie-backend/pkg/db/models"
	"github.com/townielabs/townie-backend/pkg/enums"
	pkgerrors "github.com/townielabs/townie-backend/pkg/errors"
	"github.com/townielabs/townie-backend/pkg/logger"
	"github.com/townielabs/townie-backend/pkg/security"
)

type stubUsers struct {
	users map[uuid.UUID]*models.User
}

func newStubUsers() *stubUsers {
	return &stubUsers{users: map[uuid.UUID]*models.User{}}
}

func (s *stubUsers) Create(_ context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	s.users[user.ID] = user
	return nil
}

func (s *stubUsers) FindByMobile(_ context.Context, mobileNumber string) (*models.User, error) {
	for _, user := range s.users {
		if user.MobileNumber == mobileNumber {
			return user, nil
		}
	}
	return nil, nil
}

func (s *stubUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, user := range s.users {
		if user.Email != nil && *user.Email == email {
			return user, nil
		}
	}
	return nil, nil
}

func (s *stubUsers) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	if user, ok := s.users[id]; ok {
		user.LastLoginAt = &at
	}
	return nil
}

type stubOTPStore struct {
	codes     map[string]string
	revoked   []string
	denyAfter int64
	requests  int64
}

func newStubOTPStore() *stubOTPStore {
	return &stubOTPStore{codes: map[string]string{}, denyAfter: 100}
}

func (s *stubOTPStore) StoreLoginOTP(_ context.Context, mobile, code string, _ time.Duration) error {
	s.codes[mobile] = code
	return nil
}

func (s *stubOTPStore) GetLoginOTP(_ context.Context, mobile string) (string, error) {
	return s.codes[mobile], nil
}

func (s *stubOTPStore) RevokeLoginOTP(_ context.Context, mobile string) error {
	delete(s.codes, mobile)
	s.revoked = append(s.revoked, mobile)
	return nil
}

func (s *stubOTPStore) FixedWindowAllow(_ context.Context, _ string, _ int64, _ time.Duration) (bool, int64, error) {
	s.requests++
	return s.requests <= s.denyAfter, s.requests, nil
}

type stubSMS struct {
	sent []string
}

func (s *stubSMS) SendSMS(_ context.Context, mobile, _ string) {
	s.sent = append(s.sent, mobile)
}

type stubShops struct {
	shops map[uuid.UUID]*models.Shop
}

func (s *stubShops) FindByUser(_ context.Context, userID uuid.UUID) (*models.Shop, error) {
	for _, shop := range s.shops {
		if shop.UserID == userID {
			return shop, nil
		}
	}
	return nil, nil
}

type fixture struct {
	svc   Service
	users *stubUsers
	otp   *stubOTPStore
	sms   *stubSMS
	shops *stubShops
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users: newStubUsers(),
		otp:   newStubOTPStore(),
		sms:   &stubSMS{},
		shops: &stubShops{shops: map[uuid.UUID]*models.Shop{}},
	}
	svc, err := NewService(ServiceParams{
		Users:    f.users,
		OTPStore: f.otp,
		SMS:      f.sms,
		Shops:    f.shops,
		JWTConfig: config.JWTConfig{
			Secret:            "test-secret",
			Issuer:            "townie-test",
			ExpirationMinutes: 30,
		},
		AuthConfig: config.AuthConfig{
			OTPTTL:    5 * time.Minute,
			OTPWindow: 15 * time.Minute,
			OTPLimit:  5,
			OTPDigits: 6,
		},
		Logger: logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

const testMobile = "+919900112233"

func TestRequestOTP_StoresAndSends(t *testing.T) {
	f := newFixture(t)

	if err := f.svc.RequestOTP(context.Background(), testMobile); err != nil {
		t.Fatalf("RequestOTP: %v", err)
	}
	code := f.otp.codes[testMobile]
	if len(code) != 6 {
		t.Fatalf("stored code = %q, want 6 digits", code)
	}
	if len(f.sms.sent) != 1 || f.sms.sent[0] != testMobile {
		t.Fatalf("sms sent = %v", f.sms.sent)
	}
}

func TestRequestOTP_RejectsBadNumber(t *testing.T) {
	f := newFixture(t)

	err := f.svc.RequestOTP(context.Background(), "not-a-number")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRequestOTP_RateLimited(t *testing.T) {
	f := newFixture(t)
	f.otp.denyAfter = 2

	for i := 0; i < 2; i++ {
		if err := f.svc.RequestOTP(context.Background(), testMobile); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	err := f.svc.RequestOTP(context.Background(), testMobile)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeRateLimit {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

func TestVerifyOTP_ProvisionsFirstLogin(t *testing.T) {
	f := newFixture(t)

	if err := f.svc.RequestOTP(context.Background(), testMobile); err != nil {
		t.Fatalf("RequestOTP: %v", err)
	}
	code := f.otp.codes[testMobile]

	result, err := f.svc.VerifyOTP(context.Background(), VerifyOTPInput{MobileNumber: testMobile, Code: code})
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	if result.Token == "" {
		t.Fatal("expected a minted token")
	}
	if result.User.Role != enums.UserRoleCustomer {
		t.Fatalf("role = %s, want customer", result.User.Role)
	}
	if result.User.LastLoginAt == nil {
		t.Fatal("last login not recorded")
	}
	if len(f.otp.revoked) != 1 {
		t.Fatalf("otp revoked = %v, want consumed once", f.otp.revoked)
	}
}

func TestVerifyOTP_WrongCode(t *testing.T) {
	f := newFixture(t)
	f.otp.codes[testMobile] = "123456"

	_, err := f.svc.VerifyOTP(context.Background(), VerifyOTPInput{MobileNumber: testMobile, Code: "654321"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, ok := f.otp.codes[testMobile]; !ok {
		t.Fatal("wrong code must not consume the stored otp")
	}
}

func TestVerifyOTP_ExpiredCode(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.VerifyOTP(context.Background(), VerifyOTPInput{MobileNumber: testMobile, Code: "123456"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestVerifyOTP_VendorTokenCarriesShop(t *testing.T) {
	f := newFixture(t)
	vendor := &models.User{ID: uuid.New(), MobileNumber: testMobile, Role: enums.UserRoleVendor, IsActive: true}
	f.users.users[vendor.ID] = vendor
	shop := &models.Shop{ID: uuid.New(), UserID: vendor.ID, Status: enums.ShopStatusApproved}
	f.shops.shops[shop.ID] = shop
	f.otp.codes[testMobile] = "111222"

	result, err := f.svc.VerifyOTP(context.Background(), VerifyOTPInput{MobileNumber: testMobile, Code: "111222"})
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	if result.ShopID == nil || *result.ShopID != shop.ID {
		t.Fatalf("shop id = %v, want %s", result.ShopID, shop.ID)
	}
}

func TestVerifyOTP_DisabledAccount(t *testing.T) {
	f := newFixture(t)
	user := &models.User{ID: uuid.New(), MobileNumber: testMobile, Role: enums.UserRoleCustomer, IsActive: false}
	f.users.users[user.ID] = user
	f.otp.codes[testMobile] = "111222"

	_, err := f.svc.VerifyOTP(context.Background(), VerifyOTPInput{MobileNumber: testMobile, Code: "111222"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestAdminLogin(t *testing.T) {
	f := newFixture(t)
	hash, err := security.HashPassword("s3cret-pass", config.PasswordConfig{})
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	email := "ops@townie.in"
	admin := &models.User{
		ID:           uuid.New(),
		MobileNumber: "+918800112233",
		Email:        &email,
		PasswordHash: &hash,
		Role:         enums.UserRoleAdmin,
		IsActive:     true,
	}
	f.users.users[admin.ID] = admin

	result, err := f.svc.AdminLogin(context.Background(), email, "s3cret-pass")
	if err != nil {
		t.Fatalf("AdminLogin: %v", err)
	}
	if result.Token == "" || result.User.Role != enums.UserRoleAdmin {
		t.Fatalf("result = %+v", result)
	}

	_, err = f.svc.AdminLogin(context.Background(), email, "wrong-pass")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	// Non-admin users never pass the password path.
	customer := &models.User{ID: uuid.New(), MobileNumber: "+917700112233", Email: &email, Role: enums.UserRoleCustomer, IsActive: true}
	f.users.users[customer.ID] = customer
	admin.Role = enums.UserRoleCustomer
	_, err = f.svc.AdminLogin(context.Background(), email, "s3cret-pass")
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for non-admin, got %v", err)
	}
}
