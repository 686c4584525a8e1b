package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/linemk/greencart/internal/payment"
	"github.com/linemk/greencart/internal/storage"
)

// surchargeRate - фиксированная наценка (налог) на заказ
const surchargeRate = 0.02

// OrderItemInput - позиция корзины на входе размещения заказа
type OrderItemInput struct {
	ProductID int64
	Quantity  int
}

var (
	ErrInvalidOrderData = errors.New("invalid data")
)

// priceOrder резолвит каждую позицию через каталог и считает итоговую сумму.
// Итог: subtotal + floor(subtotal * 0.02) в целых единицах валюты.
// Для hosted checkout дополнительно собираются позиции с ценой за единицу
// в минимальных единицах; наценка на уровне позиции считается без floor -
// так исторически считает и создание заказа у шлюза, выравнивание округлений
// меняло бы действующий контракт.
func (s *orderService) priceOrder(ctx context.Context, items []OrderItemInput) (int, []payment.LineItem, error) {
	const op = "service.OrderService.priceOrder"

	subtotal := 0
	lineItems := make([]payment.LineItem, 0, len(items))
	for _, item := range items {
		product, err := s.productRepo.GetProductByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, storage.ErrProductNotFound) {
				return 0, nil, fmt.Errorf("%s: product with id %d not found: %w", op, item.ProductID, err)
			}
			return 0, nil, fmt.Errorf("%s: failed to get product %d: %w", op, item.ProductID, err)
		}
		subtotal += product.OfferPrice * item.Quantity

		price := float64(product.OfferPrice)
		lineItems = append(lineItems, payment.LineItem{
			Name:       product.Name,
			UnitAmount: int64((price + price*surchargeRate) * 100),
			Quantity:   int64(item.Quantity),
		})
	}

	total := subtotal + int(math.Floor(float64(subtotal)*surchargeRate))
	return total, lineItems, nil
}

// validateOrderInput - быстрая проверка до любых обращений к каталогу
func validateOrderInput(items []OrderItemInput, addressID int64) error {
	if addressID == 0 || len(items) == 0 {
		return ErrInvalidOrderData
	}
	for _, item := range items {
		if item.Quantity < 1 {
			return ErrInvalidOrderData
		}
	}
	return nil
}
