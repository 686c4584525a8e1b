package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/linemk/greencart/internal/domain/models"
	"github.com/linemk/greencart/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/greencart/internal/service"
)

var validate = validator.New()

// RegisterRequest представляет структуру запроса регистрации с тегами валидации
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest представляет структуру запроса аутентификации
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// VerifyEmailRequest - код подтверждения почты
type VerifyEmailRequest struct {
	OTP string `json:"otp" validate:"required,len=6,numeric"`
}

// userDTO - представление пользователя в ответах, без хэша пароля и кода
type userDTO struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	Email      string         `json:"email"`
	IsSeller   bool           `json:"isSeller"`
	IsVerified bool           `json:"isVerified"`
	CartItems  map[string]int `json:"cartItems"`
}

func toUserDTO(user *models.User) userDTO {
	return userDTO{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		IsSeller:   user.IsSeller,
		IsVerified: user.IsVerified,
		CartItems:  user.CartItems,
	}
}

// setTokenCookie дублирует токен в cookie, чтобы браузерный клиент
// ходил без заголовка Authorization
func setTokenCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     jwtmiddleware.TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// RegisterHandler обрабатывает POST /api/user/register
func RegisterHandler(log *slog.Logger, authService service.AuthServiceInterface, tokenTTL time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RegisterHandler"
		logger := log.With(slog.String("op", op))

		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			writeFailure(logger, w, "invalid request")
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			writeFailure(logger, w, "validation error")
			return
		}

		user, token, err := authService.Register(r.Context(), req.Name, req.Email, req.Password)
		if err != nil {
			logger.Error("registration failed", slog.Any("error", err))
			if errors.Is(err, service.ErrEmailTaken) {
				writeFailure(logger, w, service.ErrEmailTaken.Error())
				return
			}
			writeFailure(logger, w, "registration failed")
			return
		}

		setTokenCookie(w, token, tokenTTL)
		writeJSON(logger, w, http.StatusOK, Envelope{Success: true, User: toUserDTO(user)})
	}
}

// LoginHandler обрабатывает POST /api/user/login
func LoginHandler(log *slog.Logger, authService service.AuthServiceInterface, tokenTTL time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.LoginHandler"
		logger := log.With(slog.String("op", op))

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			writeFailure(logger, w, "invalid request")
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			writeFailure(logger, w, "validation error")
			return
		}

		user, token, err := authService.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			logger.Error("login failed", slog.Any("error", err))
			if errors.Is(err, service.ErrInvalidCredentials) {
				writeFailure(logger, w, service.ErrInvalidCredentials.Error())
				return
			}
			writeFailure(logger, w, "login failed")
			return
		}

		setTokenCookie(w, token, tokenTTL)
		writeJSON(logger, w, http.StatusOK, Envelope{Success: true, User: toUserDTO(user)})
	}
}

// LogoutHandler обрабатывает GET /api/user/logout, просто гасит cookie
func LogoutHandler(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{
			Name:     jwtmiddleware.TokenCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		writeSuccess(log, w, "logged out")
	}
}

// IsAuthHandler обрабатывает GET /api/user/is-auth: guard уже разрезолвил
// пользователя, остается вернуть его
func IsAuthHandler(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.IsAuthHandler"
		logger := log.With(slog.String("op", op))

		user, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("user not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		writeJSON(logger, w, http.StatusOK, Envelope{Success: true, User: toUserDTO(user)})
	}
}

// VerifyEmailHandler обрабатывает POST /api/user/verify-email-otp
func VerifyEmailHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.VerifyEmailHandler"
		logger := log.With(slog.String("op", op))

		user, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("user not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req VerifyEmailRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			writeFailure(logger, w, "invalid request")
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			writeFailure(logger, w, "validation error")
			return
		}

		if err := authService.VerifyEmail(r.Context(), user.ID, req.OTP); err != nil {
			logger.Error("email verification failed", slog.Any("error", err))
			switch {
			case errors.Is(err, service.ErrInvalidOTP):
				writeFailure(logger, w, service.ErrInvalidOTP.Error())
			case errors.Is(err, service.ErrOTPExpired):
				writeFailure(logger, w, service.ErrOTPExpired.Error())
			case errors.Is(err, service.ErrAlreadyVerified):
				writeFailure(logger, w, service.ErrAlreadyVerified.Error())
			default:
				writeFailure(logger, w, "verification failed")
			}
			return
		}
		writeSuccess(logger, w, "email verified")
	}
}

// ResendOTPHandler обрабатывает POST /api/user/resend-email-otp
func ResendOTPHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ResendOTPHandler"
		logger := log.With(slog.String("op", op))

		user, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("user not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := authService.ResendOTP(r.Context(), user.ID); err != nil {
			logger.Error("failed to resend otp", slog.Any("error", err))
			if errors.Is(err, service.ErrAlreadyVerified) {
				writeFailure(logger, w, service.ErrAlreadyVerified.Error())
				return
			}
			writeFailure(logger, w, "failed to resend verification code")
			return
		}
		writeSuccess(logger, w, "verification code sent")
	}
}
