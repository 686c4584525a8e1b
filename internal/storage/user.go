package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/linemk/greencart/internal/domain/models"
)

var ErrUserNotFound = errors.New("user not found")

type UserStorage interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	UpdateUserCart(ctx context.Context, id int64, cart map[string]int) error
	ClearUserCart(ctx context.Context, id int64) error
	SetUserVerified(ctx context.Context, id int64) error
	SetUserOTP(ctx context.Context, id int64, otp string, expiresAt time.Time) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *userRepository {
	return &userRepository{db: db}
}

const userColumns = "id, name, email, pass_hash, cart_items, is_seller, is_verified, COALESCE(verify_otp, ''), COALESCE(otp_expires_at, 'epoch'::timestamptz), created_at"

// scanUser разбирает строку результата, корзина хранится как jsonb
func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var rawCart []byte
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PassHash, &rawCart,
		&user.IsSeller, &user.IsVerified, &user.VerifyOTP, &user.OTPExpiresAt, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	user.CartItems = map[string]int{}
	if len(rawCart) > 0 {
		if err := json.Unmarshal(rawCart, &user.CartItems); err != nil {
			return nil, fmt.Errorf("failed to decode cart items: %w", err)
		}
	}
	return user, nil
}

// получение уже существующего пользователя
func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email)
	return scanUser(row)
}

func (r *userRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	return scanUser(row)
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	cart := user.CartItems
	if cart == nil {
		cart = map[string]int{}
	}
	rawCart, err := json.Marshal(cart)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cart items: %w", err)
	}

	var id int64
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO users (name, email, pass_hash, cart_items, is_seller, is_verified, verify_otp, otp_expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW()) RETURNING id`,
		user.Name, user.Email, user.PassHash, rawCart, user.IsSeller, user.IsVerified, user.VerifyOTP, user.OTPExpiresAt,
	).Scan(&id)
	if err != nil {
		return nil, err
	}
	user.ID = id
	return user, nil
}

// UpdateUserCart целиком заменяет снапшот корзины, последняя запись выигрывает
func (r *userRepository) UpdateUserCart(ctx context.Context, id int64, cart map[string]int) error {
	if cart == nil {
		cart = map[string]int{}
	}
	rawCart, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to encode cart items: %w", err)
	}
	res, err := r.db.ExecContext(ctx, "UPDATE users SET cart_items = $1 WHERE id = $2", rawCart, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) ClearUserCart(ctx context.Context, id int64) error {
	return r.UpdateUserCart(ctx, id, map[string]int{})
}

func (r *userRepository) SetUserVerified(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET is_verified = TRUE, verify_otp = NULL, otp_expires_at = NULL WHERE id = $1", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) SetUserOTP(ctx context.Context, id int64, otp string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET verify_otp = $1, otp_expires_at = $2 WHERE id = $3", otp, expiresAt, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}
