package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/linemk/greencart/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/greencart/internal/service"
)

// UpdateCartRequest - снапшот корзины целиком, productID строкой
type UpdateCartRequest struct {
	CartItems map[string]int `json:"cartItems" validate:"required"`
}

// UpdateCartHandler обрабатывает POST /api/cart/update
func UpdateCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateCartHandler"
		logger := log.With(slog.String("op", op))

		user, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("user not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req UpdateCartRequest
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

		if err := cartService.UpdateCart(r.Context(), user.ID, req.CartItems); err != nil {
			logger.Error("failed to update cart", slog.Any("error", err))
			if errors.Is(err, service.ErrInvalidCart) {
				writeFailure(logger, w, service.ErrInvalidCart.Error())
				return
			}
			writeFailure(logger, w, "failed to update cart")
			return
		}
		writeSuccess(logger, w, "cart updated")
	}
}
