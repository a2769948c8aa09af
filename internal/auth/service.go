// Package auth implements mobile-OTP login for customers and vendors and
// password login for admins. Successful logins mint the JWT the API
// middleware validates on every request.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"regexp"
	"time"

	"github.com/google/uuid"

	pkgauth "github.com/townielabs/townie-backend/pkg/auth"
	"github.com/townielabs/townie-backend/pkg/config"
	"github.com/townielabs/townie-backend/pkg/db/models"
	"github.com/townielabs/townie-backend/pkg/enums"
	pkgerrors "github.com/townielabs/townie-backend/pkg/errors"
	"github.com/townielabs/townie-backend/pkg/logger"
	"github.com/townielabs/townie-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"
const invalidOTPMessage = "invalid or expired code"

var mobileNumberPattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

type userRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByMobile(ctx context.Context, mobileNumber string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type otpStore interface {
	StoreLoginOTP(ctx context.Context, mobileNumber, code string, ttl time.Duration) error
	GetLoginOTP(ctx context.Context, mobileNumber string) (string, error)
	RevokeLoginOTP(ctx context.Context, mobileNumber string) error
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type smsSender interface {
	SendSMS(ctx context.Context, mobileNumber, message string)
}

type shopSource interface {
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Shop, error)
}

// Service defines the behavior needed by the auth controller.
type Service interface {
	RequestOTP(ctx context.Context, mobileNumber string) error
	VerifyOTP(ctx context.Context, input VerifyOTPInput) (*LoginResult, error)
	AdminLogin(ctx context.Context, email, password string) (*LoginResult, error)
}

// VerifyOTPInput carries the OTP login verification request.
type VerifyOTPInput struct {
	MobileNumber string
	Code         string
}

// LoginResult is what a successful login returns to the controller.
type LoginResult struct {
	Token  string      `json:"token"`
	User   models.User `json:"user"`
	ShopID *uuid.UUID  `json:"shop_id,omitempty"`
}

type service struct {
	users   userRepository
	otp     otpStore
	sms     smsSender
	shops   shopSource
	jwtCfg  config.JWTConfig
	authCfg config.AuthConfig
	logg    *logger.Logger
	now     func() time.Time
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Users      userRepository
	OTPStore   otpStore
	SMS        smsSender
	Shops      shopSource
	JWTConfig  config.JWTConfig
	AuthConfig config.AuthConfig
	Logger     *logger.Logger
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.OTPStore == nil {
		return nil, fmt.Errorf("otp store is required")
	}
	if params.SMS == nil {
		return nil, fmt.Errorf("sms sender is required")
	}
	if params.Shops == nil {
		return nil, fmt.Errorf("shop source is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		users:   params.Users,
		otp:     params.OTPStore,
		sms:     params.SMS,
		shops:   params.Shops,
		jwtCfg:  params.JWTConfig,
		authCfg: params.AuthConfig,
		logg:    params.Logger,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// RequestOTP stores a short-lived login code and sends it over SMS. The
// fixed-window rate limit keeps one number from draining the gateway.
func (s *service) RequestOTP(ctx context.Context, mobileNumber string) error {
	if !mobileNumberPattern.MatchString(mobileNumber) {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid mobile number")
	}

	allowed, _, err := s.otp.FixedWindowAllow(ctx, "login_otp:"+mobileNumber, s.authCfg.OTPLimit, s.authCfg.OTPWindow)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "otp rate limit check")
	}
	if !allowed {
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many login attempts, try again later")
	}

	code, err := newLoginCode(s.authCfg.OTPDigits)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate login code")
	}
	if err := s.otp.StoreLoginOTP(ctx, mobileNumber, code, s.authCfg.OTPTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store login code")
	}

	s.sms.SendSMS(ctx, mobileNumber, fmt.Sprintf("Your Townie login code is %s", code))
	if s.authCfg.DevEchoOTP {
		s.logg.Info(s.logg.WithField(ctx, "otp", code), "dev otp echo")
	}
	return nil
}

// VerifyOTP checks the code, provisions the user on first login and mints
// the access token. Vendor tokens carry their shop id.
func (s *service) VerifyOTP(ctx context.Context, input VerifyOTPInput) (*LoginResult, error) {
	if !mobileNumberPattern.MatchString(input.MobileNumber) || input.Code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mobile number and code required")
	}

	stored, err := s.otp.GetLoginOTP(ctx, input.MobileNumber)
	if err != nil || stored == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidOTPMessage)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(input.Code)) != 1 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidOTPMessage)
	}
	if err := s.otp.RevokeLoginOTP(ctx, input.MobileNumber); err != nil {
		s.logg.Warn(ctx, "failed to revoke consumed otp")
	}

	user, err := s.users.FindByMobile(ctx, input.MobileNumber)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user == nil {
		user = &models.User{
			MobileNumber: input.MobileNumber,
			Role:         enums.UserRoleCustomer,
			IsActive:     true,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is disabled")
	}

	return s.finishLogin(ctx, user)
}

// AdminLogin is the only password-based path; admin accounts are seeded.
func (s *service) AdminLogin(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user == nil || user.Role != enums.UserRoleAdmin || user.PasswordHash == nil || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	ok, err := security.VerifyPassword(password, *user.PasswordHash)
	if err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	return s.finishLogin(ctx, user)
}

func (s *service) finishLogin(ctx context.Context, user *models.User) (*LoginResult, error) {
	var shopID *uuid.UUID
	if user.Role == enums.UserRoleVendor {
		shop, err := s.shops.FindByUser(ctx, user.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor shop")
		}
		if shop != nil {
			shopID = &shop.ID
		}
	}

	now := s.now()
	token, err := pkgauth.MintAccessToken(s.jwtCfg, now, pkgauth.AccessTokenPayload{
		UserID: user.ID,
		ShopID: shopID,
		Role:   user.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logg.Warn(s.logg.WithUserID(ctx, user.ID.String()), "failed to record last login")
	}

	return &LoginResult{Token: token, User: *user, ShopID: shopID}, nil
}

func newLoginCode(digits int) (string, error) {
	if digits < 4 || digits > 8 {
		digits = 6
	}
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}
