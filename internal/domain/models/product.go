package models

// Product представляет товар каталога, доступный для заказа
type Product struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Price      int    `json:"price"`      // базовая цена в целых единицах валюты
	OfferPrice int    `json:"offerPrice"` // цена со скидкой, по ней считается заказ
}
