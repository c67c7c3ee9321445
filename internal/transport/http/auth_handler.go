package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/freshvalley/dairy-shop-backend/internal/service"
	"github.com/freshvalley/dairy-shop-backend/internal/util"
)

type AuthHandler struct {
	auth *service.AuthService
}

func RegisterAuth(e *echo.Echo, auth *service.AuthService) {
	handler := &AuthHandler{auth: auth}

	group := e.Group("/api/v1/auth")
	group.POST("/register", handler.register)
	group.POST("/login", handler.login)
	group.POST("/logout", handler.logout, RequireAuth(auth))
	group.POST("/forgot-password", handler.forgotPassword)
	group.POST("/verify-otp", handler.verifyOTP)
	group.POST("/reset-password", handler.resetPassword)
}

func (h *AuthHandler) register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if strings.TrimSpace(req.Username) == "" ||
		strings.TrimSpace(req.Email) == "" ||
		strings.TrimSpace(req.Phone) == "" ||
		strings.TrimSpace(req.Address) == "" ||
		req.Password == "" {
		return c.JSON(http.StatusBadRequest, util.Error("username, email, phone, address, and password are required"))
	}
	if req.Password != req.ConfirmPassword {
		return c.JSON(http.StatusBadRequest, util.Error("passwords do not match"))
	}

	user, err := h.auth.Register(c.Request().Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Address:  req.Address,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPasswordInvalid):
			return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
		case errors.Is(err, service.ErrIdentityTaken):
			return c.JSON(http.StatusBadRequest, util.Error("username, email, or phone already registered"))
		default:
			return c.JSON(http.StatusInternalServerError, util.Error("could not create account"))
		}
	}

	return c.JSON(http.StatusCreated, util.Envelope{
		"message": "Account created",
		"user":    user,
	})
}

func (h *AuthHandler) login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, util.Error("username and password are required"))
	}

	result, err := h.auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, util.Error("invalid username or password"))
		}
		return c.JSON(http.StatusInternalServerError, util.Error("could not sign in"))
	}

	return c.JSON(http.StatusOK, util.Envelope{
		"token":      result.Token,
		"expires_at": result.ExpiresAt.UTC().Format(time.RFC3339),
		"user":       result.User,
	})
}

func (h *AuthHandler) logout(c echo.Context) error {
	token := currentToken(c)
	if token == "" {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	if err := h.auth.Logout(c.Request().Context(), token); err != nil {
		return c.JSON(http.StatusInternalServerError, util.Error("could not sign out"))
	}
	return c.JSON(http.StatusOK, util.Success("Signed out"))
}

func (h *AuthHandler) forgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if strings.TrimSpace(req.Phone) == "" {
		return c.JSON(http.StatusBadRequest, util.Error("phone is required"))
	}

	if err := h.auth.RequestPasswordReset(c.Request().Context(), req.Phone); err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			return c.JSON(http.StatusNotFound, util.Error("no account found for that phone number"))
		case errors.Is(err, service.ErrCodeDelivery):
			return c.JSON(http.StatusBadGateway, util.Error("could not deliver the verification code, please try again"))
		default:
			return c.JSON(http.StatusInternalServerError, util.Error("could not start password reset"))
		}
	}

	return c.JSON(http.StatusOK, util.Success("Verification code sent"))
}

func (h *AuthHandler) verifyOTP(c echo.Context) error {
	var req VerifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if strings.TrimSpace(req.Phone) == "" || strings.TrimSpace(req.OTP) == "" {
		return c.JSON(http.StatusBadRequest, util.Error("phone and otp are required"))
	}

	token, err := h.auth.VerifyResetOTP(c.Request().Context(), req.Phone, strings.TrimSpace(req.OTP))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			return c.JSON(http.StatusNotFound, util.Error("no account found for that phone number"))
		case errors.Is(err, service.ErrOTPInvalid):
			return c.JSON(http.StatusBadRequest, util.Error("invalid or expired code"))
		default:
			return c.JSON(http.StatusInternalServerError, util.Error("could not verify code"))
		}
	}

	return c.JSON(http.StatusOK, util.Envelope{
		"message":     "Code verified",
		"reset_token": token,
	})
}

func (h *AuthHandler) resetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if strings.TrimSpace(req.ResetToken) == "" || req.NewPassword == "" || req.ConfirmPassword == "" {
		return c.JSON(http.StatusBadRequest, util.Error("reset_token, new_password, and confirm_password are required"))
	}

	err := h.auth.CompleteReset(c.Request().Context(), strings.TrimSpace(req.ResetToken), req.NewPassword, req.ConfirmPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPasswordInvalid):
			return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
		case errors.Is(err, service.ErrResetTokenInvalid):
			return c.JSON(http.StatusBadRequest, util.Error("invalid or expired reset token"))
		default:
			return c.JSON(http.StatusInternalServerError, util.Error("could not reset password"))
		}
	}

	return c.JSON(http.StatusOK, util.Success("Password updated"))
}
