package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/linemk/greencart/internal/domain/models"
	security "github.com/linemk/greencart/internal/jwt-new"
	"github.com/linemk/greencart/internal/lib/mailer"
	"github.com/linemk/greencart/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidOTP         = errors.New("invalid verification code")
	ErrOTPExpired         = errors.New("verification code expired")
	ErrAlreadyVerified    = errors.New("email already verified")
)

const otpTTL = 10 * time.Minute

type AuthService struct {
	log      *slog.Logger
	userRepo storage.UserStorage
	mail     mailer.Mailer
	tokenTTL time.Duration
}

func NewAuthService(log *slog.Logger, userRepo storage.UserStorage, mail mailer.Mailer, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		log:      log,
		userRepo: userRepo,
		mail:     mail,
		tokenTTL: tokenTTL,
	}
}

type AuthServiceInterface interface {
	Register(ctx context.Context, name, email, password string) (*models.User, string, error)
	Login(ctx context.Context, email, password string) (*models.User, string, error)
	VerifyEmail(ctx context.Context, userID int64, otp string) error
	ResendOTP(ctx context.Context, userID int64) error
}

// Register создаёт нового пользователя с неподтвержденной почтой,
// отправляет код подтверждения и сразу выдает JWT-токен: до ввода кода
// guard пускает только на маршруты подтверждения.
func (a *AuthService) Register(ctx context.Context, name, email, password string) (*models.User, string, error) {
	const op = "auth.Register"
	logger := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)
	logger.Info("registering user")

	if _, err := a.userRepo.GetUserByEmail(ctx, email); err == nil {
		logger.Warn("email already taken")
		return nil, "", fmt.Errorf("%s: %w", op, ErrEmailTaken)
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		logger.Error("failed to check existing user", slog.Any("error", err))
		return nil, "", fmt.Errorf("%s: failed to check existing user: %w", op, err)
	}

	// Хеширование пароля с помощью bcrypt (автоматически добавляет соль)
	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", slog.Any("error", err))
		return nil, "", fmt.Errorf("%s: failed to hash password: %w", op, err)
	}

	otp, err := generateOTP()
	if err != nil {
		logger.Error("failed to generate otp", slog.Any("error", err))
		return nil, "", fmt.Errorf("%s: failed to generate otp: %w", op, err)
	}

	newUser := &models.User{
		Name:         name,
		Email:        email,
		PassHash:     passHash,
		CartItems:    map[string]int{},
		IsVerified:   false,
		VerifyOTP:    otp,
		OTPExpiresAt: time.Now().Add(otpTTL),
	}
	user, err := a.userRepo.CreateUser(ctx, newUser)
	if err != nil {
		logger.Error("failed to create user", slog.Any("error", err))
		return nil, "", fmt.Errorf("%s: failed to create user: %w", op, err)
	}

	if err := a.mail.Send(ctx, email, "Verify your email", "Your verification code: "+otp); err != nil {
		// регистрация не откатывается, код можно запросить повторно
		logger.Error("failed to send otp email", slog.Any("error", err))
	}

	token, err := security.NewToken(ctx, user, a.tokenTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return nil, "", fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("user registered", slog.Int64("userID", user.ID))
	return user, token, nil
}

// Login осуществляет аутентификацию пользователя: пароль сравнивается с
// сохранённым bcrypt-хэшем, после успешной проверки генерируется JWT-токен.
func (a *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	const op = "auth.Login"
	logger := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)
	logger.Info("checking user")

	user, err := a.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			logger.Warn("user not found")
			return nil, "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		logger.Error("failed to get user", slog.Any("error", err))
		return nil, "", fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		logger.Warn("invalid password")
		return nil, "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	token, err := security.NewToken(ctx, user, a.tokenTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return nil, "", fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("user logged in successfully", slog.Int64("userID", user.ID))
	return user, token, nil
}

// VerifyEmail сверяет код подтверждения и помечает почту подтвержденной.
func (a *AuthService) VerifyEmail(ctx context.Context, userID int64, otp string) error {
	const op = "auth.VerifyEmail"
	logger := a.log.With(slog.String("op", op), slog.Int64("userID", userID))

	user, err := a.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		logger.Error("failed to get user", slog.Any("error", err))
		return fmt.Errorf("%s: failed to get user: %w", op, err)
	}
	if user.IsVerified {
		return fmt.Errorf("%s: %w", op, ErrAlreadyVerified)
	}
	if user.VerifyOTP == "" || user.VerifyOTP != otp {
		logger.Warn("otp mismatch")
		return fmt.Errorf("%s: %w", op, ErrInvalidOTP)
	}
	if time.Now().After(user.OTPExpiresAt) {
		logger.Warn("otp expired")
		return fmt.Errorf("%s: %w", op, ErrOTPExpired)
	}

	if err := a.userRepo.SetUserVerified(ctx, userID); err != nil {
		logger.Error("failed to mark user verified", slog.Any("error", err))
		return fmt.Errorf("%s: failed to mark user verified: %w", op, err)
	}
	logger.Info("email verified")
	return nil
}

// ResendOTP выпускает новый код и отправляет его повторно.
func (a *AuthService) ResendOTP(ctx context.Context, userID int64) error {
	const op = "auth.ResendOTP"
	logger := a.log.With(slog.String("op", op), slog.Int64("userID", userID))

	user, err := a.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		logger.Error("failed to get user", slog.Any("error", err))
		return fmt.Errorf("%s: failed to get user: %w", op, err)
	}
	if user.IsVerified {
		return fmt.Errorf("%s: %w", op, ErrAlreadyVerified)
	}

	otp, err := generateOTP()
	if err != nil {
		logger.Error("failed to generate otp", slog.Any("error", err))
		return fmt.Errorf("%s: failed to generate otp: %w", op, err)
	}
	if err := a.userRepo.SetUserOTP(ctx, userID, otp, time.Now().Add(otpTTL)); err != nil {
		logger.Error("failed to store otp", slog.Any("error", err))
		return fmt.Errorf("%s: failed to store otp: %w", op, err)
	}
	if err := a.mail.Send(ctx, user.Email, "Verify your email", "Your verification code: "+otp); err != nil {
		logger.Error("failed to send otp email", slog.Any("error", err))
		return fmt.Errorf("%s: failed to send otp email: %w", op, err)
	}
	logger.Info("otp resent")
	return nil
}

// generateOTP возвращает шестизначный код
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
