package jwtmiddleware_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/linemk/greencart/internal/domain/models"
	"github.com/linemk/greencart/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/greencart/internal/storage"
	"github.com/stretchr/testify/assert"
)

// fakeUserStore резолвит пользователей по id, как это делает guard на каждый запрос
type fakeUserStore struct {
	users map[int64]*models.User
}

var _ storage.UserStorage = (*fakeUserStore)(nil)

func newFakeUserStore(users ...*models.User) *fakeUserStore {
	store := &fakeUserStore{users: make(map[int64]*models.User)}
	for _, u := range users {
		store.users[u.ID] = u
	}
	return store
}

func (f *fakeUserStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (f *fakeUserStore) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserStore) UpdateUserCart(ctx context.Context, id int64, cart map[string]int) error {
	return nil
}

func (f *fakeUserStore) ClearUserCart(ctx context.Context, id int64) error { return nil }

func (f *fakeUserStore) SetUserVerified(ctx context.Context, id int64) error { return nil }

func (f *fakeUserStore) SetUserOTP(ctx context.Context, id int64, otp string, expiresAt time.Time) error {
	return nil
}

// createTestToken создаёт JWT-токен с заданным userID и секретом.
func createTestToken(userID int64, secret string) (string, error) {
	claims := jwt.MapClaims{
		"sub": fmt.Sprintf("%d", userID),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// okHandler возвращает пользователя из контекста, чтобы проверить, что guard его положил
func okHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := jwtmiddleware.FromContext(r.Context())
		assert.True(t, ok, "Authenticated user must be in the request context")
		w.WriteHeader(http.StatusOK)
	})
}

func decodeAuthError(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	var resp map[string]interface{}
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	assert.NoError(t, err, "Auth errors must be JSON")
	return resp
}

func TestMiddleware_MissingToken(t *testing.T) {
	os.Setenv("JWT_SECRET", "testsecret")
	defer os.Unsetenv("JWT_SECRET")

	middleware := jwtmiddleware.New(newTestLogger(), newFakeUserStore(), jwtmiddleware.Options{})
	handler := middleware(okHandler(t))

	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code, "Expected unauthorized status when no token provided")
	resp := decodeAuthError(t, rr)
	assert.Equal(t, false, resp["success"])
}

func TestMiddleware_InvalidToken(t *testing.T) {
	os.Setenv("JWT_SECRET", "testsecret")
	defer os.Unsetenv("JWT_SECRET")

	middleware := jwtmiddleware.New(newTestLogger(), newFakeUserStore(), jwtmiddleware.Options{})
	handler := middleware(okHandler(t))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMiddleware_WrongSecret(t *testing.T) {
	os.Setenv("JWT_SECRET", "testsecret")
	defer os.Unsetenv("JWT_SECRET")

	token, err := createTestToken(1, "othersecret")
	assert.NoError(t, err)

	middleware := jwtmiddleware.New(newTestLogger(), newFakeUserStore(), jwtmiddleware.Options{})
	handler := middleware(okHandler(t))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMiddleware_ValidTokenFromHeader(t *testing.T) {
	os.Setenv("JWT_SECRET", "testsecret")
	defer os.Unsetenv("JWT_SECRET")

	user := &models.User{ID: 1, Email: "test@example.com", IsVerified: true}
	token, err := createTestToken(1, "testsecret")
	assert.NoError(t, err)

	middleware := jwtmiddleware.New(newTestLogger(), newFakeUserStore(user), jwtmiddleware.Options{})
	handler := middleware(okHandler(t))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMiddleware_ValidTokenFromCookie(t *testing.T) {
	os.Setenv("JWT_SECRET", "testsecret")
	defer os.Unsetenv("JWT_SECRET")

	user := &models.User{ID: 1, Email: "test@example.com", IsVerified: true}
	token, err := createTestToken(1, "testsecret")
	assert.NoError(t, err)

	middleware := jwtmiddleware.New(newTestLogger(), newFakeUserStore(user), jwtmiddleware.Options{})
	handler := middleware(okHandler(t))

	// заголовка нет, токен приходит в cookie
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: jwtmiddleware.TokenCookieName, Value: token})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMiddleware_DeletedUser(t *testing.T) {
	os.Setenv("JWT_SECRET", "testsecret")
	defer os.Unsetenv("JWT_SECRET")

	// токен валиден, но пользователя уже нет в хранилище
	token, err := createTestToken(42, "testsecret")
	assert.NoError(t, err)

	middleware := jwtmiddleware.New(newTestLogger(), newFakeUserStore(), jwtmiddleware.Options{})
	handler := middleware(okHandler(t))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMiddleware_UnverifiedUser(t *testing.T) {
	os.Setenv("JWT_SECRET", "testsecret")
	defer os.Unsetenv("JWT_SECRET")

	user := &models.User{ID: 1, Email: "test@example.com", IsVerified: false}
	token, err := createTestToken(1, "testsecret")
	assert.NoError(t, err)

	middleware := jwtmiddleware.New(newTestLogger(), newFakeUserStore(user), jwtmiddleware.Options{})
	handler := middleware(okHandler(t))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	// клиент по redirectToVerify уводит на экран подтверждения
	assert.Equal(t, http.StatusForbidden, rr.Code)
	resp := decodeAuthError(t, rr)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, true, resp["redirectToVerify"])
}

func TestMiddleware_UnverifiedUser_AllowUnverified(t *testing.T) {
	os.Setenv("JWT_SECRET", "testsecret")
	defer os.Unsetenv("JWT_SECRET")

	user := &models.User{ID: 1, Email: "test@example.com", IsVerified: false}
	token, err := createTestToken(1, "testsecret")
	assert.NoError(t, err)

	middleware := jwtmiddleware.New(newTestLogger(), newFakeUserStore(user),
		jwtmiddleware.Options{AllowUnverified: true})
	handler := middleware(okHandler(t))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMiddleware_RequireSeller(t *testing.T) {
	os.Setenv("JWT_SECRET", "testsecret")
	defer os.Unsetenv("JWT_SECRET")

	buyer := &models.User{ID: 1, Email: "buyer@example.com", IsVerified: true}
	seller := &models.User{ID: 2, Email: "seller@example.com", IsVerified: true, IsSeller: true}

	middleware := jwtmiddleware.New(newTestLogger(), newFakeUserStore(buyer, seller),
		jwtmiddleware.Options{RequireSeller: true})
	handler := middleware(okHandler(t))

	// обычный покупатель не проходит
	token, err := createTestToken(1, "testsecret")
	assert.NoError(t, err)
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// продавец проходит
	token, err = createTestToken(2, "testsecret")
	assert.NoError(t, err)
	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
