package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/linemk/greencart/internal/domain/models"
	"github.com/linemk/greencart/internal/payment"
	"github.com/linemk/greencart/internal/storage"
)

// OrderService определяет операции размещения и выборки заказов.
type OrderService interface {
	PlaceOrderCOD(ctx context.Context, userID int64, items []OrderItemInput, addressID int64) error
	PlaceOrderOnline(ctx context.Context, userID int64, items []OrderItemInput, addressID int64) (string, error)
	UserOrders(ctx context.Context, userID int64) ([]*models.Order, error)
	AllOrders(ctx context.Context) ([]*models.Order, error)
}

type orderService struct {
	log          *slog.Logger
	db           *sql.DB
	productRepo  storage.ProductStorage
	addressRepo  storage.AddressStorage
	orderRepo    storage.OrderStorage
	gateway      payment.Gateway
	clientOrigin string // база для success/cancel редиректов hosted checkout
}

func NewOrderService(log *slog.Logger, db *sql.DB, productRepo storage.ProductStorage,
	addressRepo storage.AddressStorage, orderRepo storage.OrderStorage,
	gateway payment.Gateway, clientOrigin string) OrderService {
	return &orderService{
		log:          log,
		db:           db,
		productRepo:  productRepo,
		addressRepo:  addressRepo,
		orderRepo:    orderRepo,
		gateway:      gateway,
		clientOrigin: clientOrigin,
	}
}

// PlaceOrderCOD размещает заказ с оплатой при получении. Заказ создается
// только после успешного расчета суммы, isPaid всегда false.
func (s *orderService) PlaceOrderCOD(ctx context.Context, userID int64, items []OrderItemInput, addressID int64) error {
	const op = "service.OrderService.PlaceOrderCOD"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))
	logger.Info("placing COD order")

	if err := validateOrderInput(items, addressID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.checkAddress(ctx, userID, addressID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	amount, _, err := s.priceOrder(ctx, items)
	if err != nil {
		logger.Error("failed to price order", slog.Any("error", err))
		return err
	}

	if _, err := s.createOrder(ctx, userID, items, addressID, amount, models.PaymentTypeCOD); err != nil {
		logger.Error("failed to create order", slog.Any("error", err))
		return fmt.Errorf("%s: failed to create order: %w", op, err)
	}

	logger.Info("COD order placed", slog.Int("amount", amount))
	return nil
}

// PlaceOrderOnline размещает заказ с онлайн-оплатой и возвращает URL
// hosted checkout. Заказ сохраняется до обращения к шлюзу, чтобы сессия
// могла сослаться на реальный id; при падении шлюза неоплаченный заказ
// остается невидимым для выборок, его подчистит ветка отказа вебхука.
func (s *orderService) PlaceOrderOnline(ctx context.Context, userID int64, items []OrderItemInput, addressID int64) (string, error) {
	const op = "service.OrderService.PlaceOrderOnline"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))
	logger.Info("placing online order")

	if err := validateOrderInput(items, addressID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := s.checkAddress(ctx, userID, addressID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	amount, lineItems, err := s.priceOrder(ctx, items)
	if err != nil {
		logger.Error("failed to price order", slog.Any("error", err))
		return "", err
	}

	orderID, err := s.createOrder(ctx, userID, items, addressID, amount, models.PaymentTypeOnline)
	if err != nil {
		logger.Error("failed to create order", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to create order: %w", op, err)
	}

	// id заказа и пользователя уходят в метаданные строками,
	// сверка вебхука парсит их обратно
	session, err := s.gateway.CreateCheckoutSession(ctx, payment.SessionParams{
		LineItems:  lineItems,
		SuccessURL: s.clientOrigin + "/loader?next=/my-orders",
		CancelURL:  s.clientOrigin + "/cart",
		Metadata: map[string]string{
			"orderId": strconv.FormatInt(orderID, 10),
			"userId":  strconv.FormatInt(userID, 10),
		},
	})
	if err != nil {
		logger.Error("failed to create checkout session", slog.Any("error", err), slog.Int64("orderID", orderID))
		return "", fmt.Errorf("%s: failed to create checkout session: %w", op, err)
	}

	logger.Info("online order placed", slog.Int64("orderID", orderID), slog.String("sessionID", session.ID))
	return session.URL, nil
}

// createOrder сохраняет заказ с позициями в одной транзакции
func (s *orderService) createOrder(ctx context.Context, userID int64, items []OrderItemInput,
	addressID int64, amount int, paymentType string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	order := &models.Order{
		UserID:      userID,
		AddressID:   addressID,
		Amount:      amount,
		PaymentType: paymentType,
		IsPaid:      false,
	}
	for _, item := range items {
		order.Items = append(order.Items, &models.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	orderID, err := s.orderRepo.CreateOrder(ctx, tx, order)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return orderID, nil
}

// checkAddress проверяет, что адрес существует и принадлежит покупателю
func (s *orderService) checkAddress(ctx context.Context, userID, addressID int64) error {
	address, err := s.addressRepo.GetAddressByID(ctx, addressID)
	if err != nil {
		if errors.Is(err, storage.ErrAddressNotFound) {
			return ErrInvalidOrderData
		}
		return fmt.Errorf("failed to get address: %w", err)
	}
	if address.UserID != userID {
		return ErrInvalidOrderData
	}
	return nil
}

// UserOrders возвращает заказы пользователя; неоплаченные онлайн-заказы
// отфильтровываются на уровне SQL.
func (s *orderService) UserOrders(ctx context.Context, userID int64) ([]*models.Order, error) {
	const op = "service.OrderService.UserOrders"
	orders, err := s.orderRepo.GetOrdersByUserID(ctx, userID)
	if err != nil {
		s.log.Error("failed to get user orders", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get orders: %w", op, err)
	}
	return orders, nil
}

// AllOrders возвращает все видимые заказы для продавца.
func (s *orderService) AllOrders(ctx context.Context) ([]*models.Order, error) {
	const op = "service.OrderService.AllOrders"
	orders, err := s.orderRepo.GetAllOrders(ctx)
	if err != nil {
		s.log.Error("failed to get all orders", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get orders: %w", op, err)
	}
	return orders, nil
}
