package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/linemk/greencart/internal/payment"
	"github.com/linemk/greencart/internal/storage"
)

// WebhookService сверяет асинхронные уведомления шлюза с состоянием заказов.
type WebhookService interface {
	// HandleEvent обрабатывает сырое событие. Ошибка возвращается только при
	// невалидной подписи; после успешной проверки событие всегда
	// подтверждается, иначе шлюз будет доставлять его бесконечно.
	HandleEvent(ctx context.Context, payload []byte, signature string) error
}

type webhookService struct {
	log       *slog.Logger
	userRepo  storage.UserStorage
	orderRepo storage.OrderStorage
	gateway   payment.Gateway
}

func NewWebhookService(log *slog.Logger, userRepo storage.UserStorage,
	orderRepo storage.OrderStorage, gateway payment.Gateway) WebhookService {
	return &webhookService{
		log:       log,
		userRepo:  userRepo,
		orderRepo: orderRepo,
		gateway:   gateway,
	}
}

func (s *webhookService) HandleEvent(ctx context.Context, payload []byte, signature string) error {
	const op = "service.WebhookService.HandleEvent"
	logger := s.log.With(slog.String("op", op))

	// Проверка подписи строго до любых изменений состояния
	event, err := s.gateway.ConstructEvent(payload, signature)
	if err != nil {
		logger.Warn("webhook signature verification failed", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}

	logger = logger.With(slog.String("eventType", event.Type))
	switch event.Type {
	case payment.EventPaymentSucceeded:
		s.applyPaymentSucceeded(ctx, logger, event.PaymentIntentID)
	case payment.EventPaymentFailed:
		s.applyPaymentFailed(ctx, logger, event.PaymentIntentID)
	default:
		logger.Info("unhandled event type, acknowledging")
	}
	return nil
}

// applyPaymentSucceeded помечает заказ оплаченным и очищает корзину
// покупателя. Операция идемпотентна: повторная доставка события приводит
// к тому же состоянию. Нерешаемые несостыковки логируются и подтверждаются.
func (s *webhookService) applyPaymentSucceeded(ctx context.Context, logger *slog.Logger, paymentIntentID string) {
	orderID, userID, ok := s.resolveOrderRef(ctx, logger, paymentIntentID)
	if !ok {
		return
	}
	logger = logger.With(slog.Int64("orderID", orderID), slog.Int64("userID", userID))

	if err := s.orderRepo.SetOrderPaid(ctx, orderID); err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			// заказ исчез между созданием сессии и оплатой
			logger.Error("integrity fault: paid order not found")
		} else {
			logger.Error("failed to mark order paid", slog.Any("error", err))
		}
		return
	}

	if err := s.userRepo.ClearUserCart(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			logger.Error("integrity fault: paying user not found")
		} else {
			logger.Error("failed to clear user cart", slog.Any("error", err))
		}
		return
	}
	logger.Info("payment reconciled, order marked paid")
}

// applyPaymentFailed удаляет так и не оплаченный онлайн-заказ.
// Отсутствие заказа не ошибка, событие могло прийти повторно.
func (s *webhookService) applyPaymentFailed(ctx context.Context, logger *slog.Logger, paymentIntentID string) {
	orderID, _, ok := s.resolveOrderRef(ctx, logger, paymentIntentID)
	if !ok {
		return
	}
	logger = logger.With(slog.Int64("orderID", orderID))

	// порядок доставки событий не гарантирован: отказ, пришедший после
	// успешной оплаты того же заказа, игнорируется
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			logger.Info("order already removed, acknowledging")
		} else {
			logger.Error("failed to get order", slog.Any("error", err))
		}
		return
	}
	if order.IsPaid {
		logger.Warn("stale failure event for a paid order, ignoring")
		return
	}

	if err := s.orderRepo.DeleteOrder(ctx, orderID); err != nil {
		logger.Error("failed to delete unpaid order", slog.Any("error", err))
		return
	}
	logger.Info("failed payment reconciled, order removed")
}

// resolveOrderRef восстанавливает {orderId, userId} из метаданных сессии,
// найденной по идентификатору платежа. Метаданные у шлюза - непрозрачные
// строки, парсинг обратно в id обязан быть точным; любая несостыковка
// считается нарушением целостности, логируется и не прерывает обработчик.
func (s *webhookService) resolveOrderRef(ctx context.Context, logger *slog.Logger, paymentIntentID string) (int64, int64, bool) {
	session, err := s.gateway.SessionByPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		logger.Error("integrity fault: failed to resolve checkout session",
			slog.String("paymentIntentID", paymentIntentID), slog.Any("error", err))
		return 0, 0, false
	}

	orderID, err := strconv.ParseInt(session.Metadata["orderId"], 10, 64)
	if err != nil {
		logger.Error("integrity fault: bad orderId in session metadata",
			slog.String("sessionID", session.ID), slog.Any("error", err))
		return 0, 0, false
	}
	userID, err := strconv.ParseInt(session.Metadata["userId"], 10, 64)
	if err != nil {
		logger.Error("integrity fault: bad userId in session metadata",
			slog.String("sessionID", session.ID), slog.Any("error", err))
		return 0, 0, false
	}
	return orderID, userID, true
}
