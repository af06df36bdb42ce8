package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/service"
)

// AuthHandler exposes login and the OTP password reset.
type AuthHandler struct {
	Flow *service.AuthFlow
}

func NewAuthHandler(flow *service.AuthFlow) *AuthHandler {
	return &AuthHandler{Flow: flow}
}

// ----- DTOs -----

type loginReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,max=72"`
}

type forgotPasswordReq struct {
	Number int64 `json:"number" validate:"required,min=1000000000,max=9999999999"`
}

type verifyOTPReq struct {
	Number int64  `json:"number" validate:"required,min=1000000000,max=9999999999"`
	OTP    string `json:"OTP" validate:"required,len=6,numeric"`
}

type setPasswordReq struct {
	Number   int64  `json:"number" validate:"required,min=1000000000,max=9999999999"`
	OTP      string `json:"OTP" validate:"required,len=6,numeric"`
	Password string `json:"password" validate:"required,max=72"`
}

type changePasswordReq struct {
	Contact     int64  `json:"contact" validate:"required,min=1000000000,max=9999999999"`
	Password    string `json:"password" validate:"required,max=72"`
	NewPassword string `json:"newPassword" validate:"required,max=72"`
}

type loginResp struct {
	User        model.Account `json:"user"`
	AccessToken string        `json:"accessToken"`
	ExpiresAt   time.Time     `json:"expiresAt"`
	Username    string        `json:"username"`
	Role        model.Role    `json:"role"`
}

// Login: contact number or email plus password; returns an access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Flow.Login(ctx, req.Username, req.Password)
	if err != nil {
		return err
	}
	return ok(c, loginResp{
		User:        res.Account,
		AccessToken: res.AccessToken.Token,
		ExpiresAt:   res.AccessToken.Exp,
		Username:    res.Username,
		Role:        res.Role,
	})
}

// ForgotPassword issues an OTP for the contact number.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Flow.ForgotPassword(ctx, req.Number); err != nil {
		return err
	}
	return ok(c, "OTP sent.")
}

func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req verifyOTPReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Flow.VerifyOTP(ctx, req.Number, req.OTP); err != nil {
		return err
	}
	return ok(c, "OTP verified.")
}

func (h *AuthHandler) SetPassword(c echo.Context) error {
	var req setPasswordReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Flow.SetPassword(ctx, req.Number, req.OTP, req.Password); err != nil {
		return err
	}
	return ok(c, "Password updated.")
}

// ChangePassword requires a valid access token (see router).
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req changePasswordReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Flow.ChangePassword(ctx, req.Contact, req.Password, req.NewPassword); err != nil {
		return err
	}
	return ok(c, "Password changed.")
}
