package jwtmiddleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/linemk/greencart/internal/domain/models"
	"github.com/linemk/greencart/internal/storage"
)

type contextKey string

const userKey contextKey = "user"

// TokenCookieName - имя cookie, в которую логин кладет токен; middleware
// читает ее, если заголовка Authorization нет
const TokenCookieName = "token"

// Options управляют поведением guard'а для группы маршрутов.
type Options struct {
	// AllowUnverified пропускает пользователя с неподтвержденной почтой.
	// Включается только для check-auth и маршрутов подтверждения.
	AllowUnverified bool
	// RequireSeller дополнительно требует роль продавца.
	RequireSeller bool
}

// New создаёт middleware аутентификации: токен из заголовка либо из cookie,
// пользователь резолвится из хранилища на каждый запрос.
func New(log *slog.Logger, users storage.UserStorage, opts Options) func(http.Handler) http.Handler {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		panic("JWT_SECRET is not set")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "jwtmiddleware.New"
			logger := log.With(slog.String("op", op))

			tokenStr := extractToken(r)
			if tokenStr == "" {
				writeAuthError(w, http.StatusUnauthorized, "not authorized, no token provided", false)
				return
			}

			// Парсинг и проверка токена
			token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
				// Проверка алгоритма
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				writeAuthError(w, http.StatusUnauthorized, "invalid or expired token", false)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "invalid token claims", false)
				return
			}

			// Извлекаем идентификатор пользователя из поля "sub"
			sub, ok := claims["sub"].(string)
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "invalid token claims: sub not found", false)
				return
			}
			userID, err := strconv.ParseInt(sub, 10, 64)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "invalid token claims: invalid user id", false)
				return
			}

			// Токен валиден, но сам пользователь мог быть удален
			user, err := users.GetUserByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, storage.ErrUserNotFound) {
					writeAuthError(w, http.StatusUnauthorized, "user not found", false)
					return
				}
				logger.Error("failed to resolve user", slog.Any("error", err))
				writeAuthError(w, http.StatusInternalServerError, "internal server error", false)
				return
			}

			// Подтверждение почты обязательно для всего, кроме явно разрешенных операций.
			// Клиент по redirectToVerify уводит пользователя на экран подтверждения.
			if !user.IsVerified && !opts.AllowUnverified {
				writeAuthError(w, http.StatusForbidden, "please verify your email address to access this resource", true)
				return
			}

			if opts.RequireSeller && !user.IsSeller {
				writeAuthError(w, http.StatusForbidden, "seller access required", false)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken достает bearer-токен из заголовка, иначе из cookie
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	if cookie, err := r.Cookie(TokenCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

type authError struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	RedirectToVerify bool   `json:"redirectToVerify,omitempty"`
}

func writeAuthError(w http.ResponseWriter, status int, message string, redirectToVerify bool) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(authError{Success: false, Message: message, RedirectToVerify: redirectToVerify})
}

// FromContext извлекает аутентифицированного пользователя из контекста.
func FromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok
}

// WithUser кладет пользователя в контекст, используется в тестах обработчиков.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}
