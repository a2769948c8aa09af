package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/townielabs/townie-backend/api/responses"
	"github.com/townielabs/townie-backend/api/validators"
	"github.com/townielabs/townie-backend/internal/auth"
	"github.com/townielabs/townie-backend/pkg/db/models"
	"github.com/townielabs/townie-backend/pkg/enums"
	pkgerrors "github.com/townielabs/townie-backend/pkg/errors"
	"github.com/townielabs/townie-backend/pkg/logger"
)

type requestOTPRequest struct {
	MobileNumber string `json:"mobile_number" validate:"required"`
}

type verifyOTPRequest struct {
	MobileNumber string `json:"mobile_number" validate:"required"`
	Code         string `json:"code" validate:"required"`
}

type adminLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID           uuid.UUID      `json:"id"`
	MobileNumber string         `json:"mobile_number"`
	Email        *string        `json:"email,omitempty"`
	Role         enums.UserRole `json:"role"`
	LastLoginAt  *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

type loginResponse struct {
	Token  string       `json:"token"`
	User   userResponse `json:"user"`
	ShopID *uuid.UUID   `json:"shop_id,omitempty"`
}

func newUserResponse(user models.User) userResponse {
	return userResponse{
		ID:           user.ID,
		MobileNumber: user.MobileNumber,
		Email:        user.Email,
		Role:         user.Role,
		LastLoginAt:  user.LastLoginAt,
		CreatedAt:    user.CreatedAt,
	}
}

func newLoginResponse(result *auth.LoginResult) loginResponse {
	return loginResponse{
		Token:  result.Token,
		User:   newUserResponse(result.User),
		ShopID: result.ShopID,
	}
}

// AuthRequestOTP sends a one-time login code to the supplied mobile number.
func AuthRequestOTP(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		var req requestOTPRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.RequestOTP(r.Context(), req.MobileNumber); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "otp_sent"})
	}
}

// AuthVerifyOTP exchanges a valid OTP for an access token, provisioning the
// customer account on first login.
func AuthVerifyOTP(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		var req verifyOTPRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.VerifyOTP(r.Context(), auth.VerifyOTPInput{
			MobileNumber: req.MobileNumber,
			Code:         req.Code,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newLoginResponse(result))
	}
}

// AdminAuthLogin authenticates the back-office with email and password.
func AdminAuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		var req adminLoginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.AdminLogin(r.Context(), req.Email, req.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newLoginResponse(result))
	}
}
