package models

import "time"

// User представляет пользователя магазина
type User struct {
	ID           int64
	Name         string
	Email        string
	PassHash     []byte
	CartItems    map[string]int // productID (строкой) -> количество
	IsSeller     bool
	IsVerified   bool
	VerifyOTP    string    // текущий код подтверждения email, пустая строка если кода нет
	OTPExpiresAt time.Time // срок действия кода
	CreatedAt    time.Time
}
