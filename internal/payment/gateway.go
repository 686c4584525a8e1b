package payment

import (
	"context"
	"errors"
)

var (
	// ErrInvalidSignature - событие не прошло проверку подписи вебхука
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrSessionNotFound - по платежу не нашлось ни одной checkout-сессии
	ErrSessionNotFound = errors.New("checkout session not found")
)

// Типы событий, которые обрабатывает сверка платежей
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// LineItem - позиция для hosted checkout, цена в минимальных единицах валюты
type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

// SessionParams - параметры создания checkout-сессии
type SessionParams struct {
	LineItems  []LineItem
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string // корреляция с заказом, только непрозрачные строки
}

// Session - созданная или найденная checkout-сессия
type Session struct {
	ID       string
	URL      string
	Metadata map[string]string
}

// Event - проверенное событие от шлюза
type Event struct {
	Type            string
	PaymentIntentID string
}

// Gateway - порт платежного шлюза. Конструируется явно при старте и
// передается в сервисы, в тестах подменяется фейком.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, params SessionParams) (*Session, error)
	SessionByPaymentIntent(ctx context.Context, paymentIntentID string) (*Session, error)
	ConstructEvent(payload []byte, signature string) (Event, error)
}
