package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/greencart/internal/storage"
)

var ErrInvalidCart = errors.New("invalid cart data")

// CartService сохраняет снапшот корзины пользователя.
type CartService interface {
	UpdateCart(ctx context.Context, userID int64, cart map[string]int) error
}

type cartService struct {
	log      *slog.Logger
	userRepo storage.UserStorage
}

func NewCartService(log *slog.Logger, userRepo storage.UserStorage) CartService {
	return &cartService{log: log, userRepo: userRepo}
}

// UpdateCart заменяет корзину целиком, последняя запись выигрывает.
// Слияния на сервере нет: клиент шлет уже сведенный снапшот.
func (s *cartService) UpdateCart(ctx context.Context, userID int64, cart map[string]int) error {
	const op = "service.CartService.UpdateCart"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

	for productID, quantity := range cart {
		if quantity < 0 {
			logger.Warn("negative quantity in cart", slog.String("productID", productID))
			return fmt.Errorf("%s: %w", op, ErrInvalidCart)
		}
	}

	if err := s.userRepo.UpdateUserCart(ctx, userID, cart); err != nil {
		logger.Error("failed to update cart", slog.Any("error", err))
		return fmt.Errorf("%s: failed to update cart: %w", op, err)
	}
	logger.Info("cart updated", slog.Int("items", len(cart)))
	return nil
}
