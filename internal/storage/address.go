package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/linemk/greencart/internal/domain/models"
)

var ErrAddressNotFound = errors.New("address not found")

// AddressStorage описывает чтение адресов доставки.
type AddressStorage interface {
	GetAddressByID(ctx context.Context, id int64) (*models.Address, error)
}

type addressRepository struct {
	db *sql.DB
}

func NewAddressRepository(db *sql.DB) AddressStorage {
	return &addressRepository{db: db}
}

func (r *addressRepository) GetAddressByID(ctx context.Context, id int64) (*models.Address, error) {
	address := &models.Address{}
	row := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, street, city, state, zipcode, country, phone FROM addresses WHERE id = $1", id)
	if err := row.Scan(&address.ID, &address.UserID, &address.Street, &address.City,
		&address.State, &address.Zipcode, &address.Country, &address.Phone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAddressNotFound
		}
		return nil, err
	}
	return address, nil
}
