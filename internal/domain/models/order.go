package models

import "time"

// Типы оплаты заказа
const (
	PaymentTypeCOD    = "COD"
	PaymentTypeOnline = "Online"
)

// Order представляет заказ пользователя
type Order struct {
	ID          int64        `json:"id"`
	UserID      int64        `json:"user_id"`
	Items       []*OrderItem `json:"items"`
	Amount      int          `json:"amount"` // итоговая сумма с наценкой, в целых единицах валюты
	AddressID   int64        `json:"address_id"`
	Address     *Address     `json:"address,omitempty"` // заполняется через JOIN при выборке
	PaymentType string       `json:"payment_type"`      // COD или Online
	IsPaid      bool         `json:"is_paid"`
	CreatedAt   time.Time    `json:"created_at"`
}

// OrderItem представляет позицию заказа
type OrderItem struct {
	ID          int64  `json:"id"`
	OrderID     int64  `json:"order_id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"` // снапшот товара; заполняется через JOIN с таблицей products
	OfferPrice  int    `json:"offer_price"`
	Quantity    int    `json:"quantity"`
}
