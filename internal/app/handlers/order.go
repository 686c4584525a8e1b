package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/linemk/greencart/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/greencart/internal/service"
)

// OrderItemRequest - позиция корзины в запросе размещения заказа
type OrderItemRequest struct {
	Product  int64 `json:"product" validate:"required"`
	Quantity int   `json:"quantity" validate:"required,gt=0"`
}

// PlaceOrderRequest представляет входной JSON размещения заказа
type PlaceOrderRequest struct {
	Items   []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	Address int64              `json:"address" validate:"required"`
}

func toOrderItems(items []OrderItemRequest) []service.OrderItemInput {
	out := make([]service.OrderItemInput, 0, len(items))
	for _, item := range items {
		out = append(out, service.OrderItemInput{ProductID: item.Product, Quantity: item.Quantity})
	}
	return out
}

// decodePlaceOrder разбирает и валидирует тело запроса; при ошибке ответ уже отправлен
func decodePlaceOrder(logger *slog.Logger, w http.ResponseWriter, r *http.Request) (*PlaceOrderRequest, bool) {
	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("invalid request: decoding error", slog.Any("error", err))
		writeFailure(logger, w, "invalid request")
		return nil, false
	}
	if err := validate.Struct(req); err != nil {
		logger.Error("invalid request: validation error", slog.Any("error", err))
		writeFailure(logger, w, "invalid data")
		return nil, false
	}
	return &req, true
}

// orderFailureMessage приводит ошибку сервиса к сообщению для клиента
func orderFailureMessage(err error) string {
	if errors.Is(err, service.ErrInvalidOrderData) {
		return "invalid data"
	}
	return err.Error()
}

// PlaceOrderCODHandler обрабатывает POST /api/order/cod
func PlaceOrderCODHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PlaceOrderCODHandler"
		logger := log.With(slog.String("op", op))

		user, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("user not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		req, ok := decodePlaceOrder(logger, w, r)
		if !ok {
			return
		}

		if err := orderService.PlaceOrderCOD(r.Context(), user.ID, toOrderItems(req.Items), req.Address); err != nil {
			logger.Error("failed to place COD order", slog.Any("error", err))
			writeFailure(logger, w, orderFailureMessage(err))
			return
		}
		writeSuccess(logger, w, "Order Placed Successfully")
	}
}

// PlaceOrderStripeHandler обрабатывает POST /api/order/stripe и возвращает
// URL hosted checkout для редиректа
func PlaceOrderStripeHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PlaceOrderStripeHandler"
		logger := log.With(slog.String("op", op))

		user, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("user not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		req, ok := decodePlaceOrder(logger, w, r)
		if !ok {
			return
		}

		url, err := orderService.PlaceOrderOnline(r.Context(), user.ID, toOrderItems(req.Items), req.Address)
		if err != nil {
			logger.Error("failed to place online order", slog.Any("error", err))
			writeFailure(logger, w, orderFailureMessage(err))
			return
		}
		writeJSON(logger, w, http.StatusOK, Envelope{Success: true, URL: url})
	}
}

// UserOrdersHandler обрабатывает GET /api/order/user
func UserOrdersHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UserOrdersHandler"
		logger := log.With(slog.String("op", op))

		user, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("user not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		orders, err := orderService.UserOrders(r.Context(), user.ID)
		if err != nil {
			logger.Error("failed to get orders", slog.Any("error", err))
			writeFailure(logger, w, "failed to get orders")
			return
		}
		writeJSON(logger, w, http.StatusOK, Envelope{Success: true, Orders: orders})
	}
}

// AllOrdersHandler обрабатывает GET /api/order/seller, guard уже проверил роль
func AllOrdersHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AllOrdersHandler"
		logger := log.With(slog.String("op", op))

		orders, err := orderService.AllOrders(r.Context())
		if err != nil {
			logger.Error("failed to get orders", slog.Any("error", err))
			writeFailure(logger, w, "failed to get orders")
			return
		}
		writeJSON(logger, w, http.StatusOK, Envelope{Success: true, Orders: orders})
	}
}
