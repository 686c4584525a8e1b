package models

// Address представляет адрес доставки, принадлежащий пользователю
type Address struct {
	ID      int64  `json:"id"`
	UserID  int64  `json:"user_id"`
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zipcode string `json:"zipcode"`
	Country string `json:"country"`
	Phone   string `json:"phone"`
}
