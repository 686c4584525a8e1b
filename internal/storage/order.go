package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/linemk/greencart/internal/domain/models"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderStorage описывает методы для работы с заказами.
type OrderStorage interface {
	// CreateOrder вставляет заказ вместе с позициями в рамках транзакции и возвращает id.
	CreateOrder(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error)
	// GetOrderByID возвращает заказ без раскрытия позиций и адреса.
	GetOrderByID(ctx context.Context, orderID int64) (*models.Order, error)
	// SetOrderPaid помечает заказ оплаченным. Операция абсолютная: повторный вызов ничего не меняет.
	SetOrderPaid(ctx context.Context, orderID int64) error
	// DeleteOrder удаляет заказ, отсутствие заказа не считается ошибкой.
	DeleteOrder(ctx context.Context, orderID int64) error
	// GetOrdersByUserID возвращает заказы пользователя, видимые клиенту: COD либо оплаченные.
	GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error)
	// GetAllOrders возвращает все видимые заказы для продавца.
	GetAllOrders(ctx context.Context) ([]*models.Order, error)
}

// orderRepository — конкретная реализация OrderStorage.
type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт новый репозиторий заказов.
func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateOrder(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO orders (user_id, address_id, amount, payment_type, is_paid, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING id`,
		order.UserID, order.AddressID, order.Amount, order.PaymentType, order.IsPaid,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create order: %w", err)
	}

	for _, item := range order.Items {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO order_items (order_id, product_id, quantity) VALUES ($1, $2, $3)",
			id, item.ProductID, item.Quantity,
		); err != nil {
			return 0, fmt.Errorf("failed to create order item: %w", err)
		}
	}
	return id, nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, orderID int64) (*models.Order, error) {
	order := &models.Order{}
	row := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, address_id, amount, payment_type, is_paid, created_at FROM orders WHERE id = $1", orderID)
	if err := row.Scan(&order.ID, &order.UserID, &order.AddressID, &order.Amount,
		&order.PaymentType, &order.IsPaid, &order.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) SetOrderPaid(ctx context.Context, orderID int64) error {
	res, err := r.db.ExecContext(ctx, "UPDATE orders SET is_paid = TRUE WHERE id = $1", orderID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *orderRepository) DeleteOrder(ctx context.Context, orderID int64) error {
	// позиции удаляются каскадно; нулевое число строк допустимо,
	// шлюз может доставить событие об отказе повторно
	_, err := r.db.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", orderID)
	return err
}

const visibleOrdersFilter = "(o.payment_type = 'COD' OR o.is_paid)"

func (r *orderRepository) GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error) {
	query := `
		SELECT o.id, o.user_id, o.address_id, o.amount, o.payment_type, o.is_paid, o.created_at,
		       a.street, a.city, a.state, a.zipcode, a.country, a.phone
		FROM orders o
		JOIN addresses a ON o.address_id = a.id
		WHERE o.user_id = $1 AND ` + visibleOrdersFilter + `
		ORDER BY o.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collectOrders(ctx, rows)
}

func (r *orderRepository) GetAllOrders(ctx context.Context) ([]*models.Order, error) {
	query := `
		SELECT o.id, o.user_id, o.address_id, o.amount, o.payment_type, o.is_paid, o.created_at,
		       a.street, a.city, a.state, a.zipcode, a.country, a.phone
		FROM orders o
		JOIN addresses a ON o.address_id = a.id
		WHERE ` + visibleOrdersFilter + `
		ORDER BY o.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collectOrders(ctx, rows)
}

// collectOrders читает заказы из результата и одним запросом подтягивает позиции с товарами
func (r *orderRepository) collectOrders(ctx context.Context, rows *sql.Rows) ([]*models.Order, error) {
	var orders []*models.Order
	byID := make(map[int64]*models.Order)
	var ids []int64

	for rows.Next() {
		order := &models.Order{Address: &models.Address{}}
		if err := rows.Scan(&order.ID, &order.UserID, &order.AddressID, &order.Amount,
			&order.PaymentType, &order.IsPaid, &order.CreatedAt,
			&order.Address.Street, &order.Address.City, &order.Address.State,
			&order.Address.Zipcode, &order.Address.Country, &order.Address.Phone); err != nil {
			return nil, err
		}
		order.Address.ID = order.AddressID
		order.Address.UserID = order.UserID
		orders = append(orders, order)
		byID[order.ID] = order
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT i.id, i.order_id, i.product_id, p.name, p.offer_price, i.quantity
		FROM order_items i
		JOIN products p ON i.product_id = p.id
		WHERE i.order_id = ANY($1)
		ORDER BY i.id`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		item := &models.OrderItem{}
		if err := itemRows.Scan(&item.ID, &item.OrderID, &item.ProductID,
			&item.ProductName, &item.OfferPrice, &item.Quantity); err != nil {
			return nil, err
		}
		if order, ok := byID[item.OrderID]; ok {
			order.Items = append(order.Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}
