package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/greencart/internal/domain/models"
)

var ErrProductNotFound = errors.New("product not found")

// ProductStorage описывает методы чтения каталога, CRUD каталога живет вне этого сервиса.
type ProductStorage interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context) ([]*models.Product, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт репозиторий каталога.
func NewProductRepository(db *sql.DB) ProductStorage {
	return &productRepository{db: db}
}

func (r *productRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	product := &models.Product{}
	row := r.db.QueryRowContext(ctx, "SELECT id, name, price, offer_price FROM products WHERE id = $1", id)
	if err := row.Scan(&product.ID, &product.Name, &product.Price, &product.OfferPrice); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (r *productRepository) ListProducts(ctx context.Context) ([]*models.Product, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, price, offer_price FROM products ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		product := &models.Product{}
		if err := rows.Scan(&product.ID, &product.Name, &product.Price, &product.OfferPrice); err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

// ProductCache - минимальный контракт кеша, реализуется internal/cache
type ProductCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value interface{}) error
}

// cachedProductRepository - сквозное чтение каталога через кеш.
// Промах или ошибка кеша прозрачно уходит в БД, запись в кеш не фатальна.
type cachedProductRepository struct {
	log      *slog.Logger
	products ProductStorage
	cache    ProductCache
}

func NewCachedProductRepository(log *slog.Logger, products ProductStorage, cache ProductCache) ProductStorage {
	return &cachedProductRepository{log: log, products: products, cache: cache}
}

func productCacheKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

func (r *cachedProductRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	key := productCacheKey(id)
	if data, err := r.cache.Get(ctx, key); err == nil {
		product := &models.Product{}
		if err := json.Unmarshal(data, product); err == nil {
			return product, nil
		}
		// битая запись в кеше, перечитываем из БД
		r.log.Warn("corrupted product cache entry", slog.String("key", key))
	}

	product, err := r.products.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, key, product); err != nil {
		r.log.Warn("failed to cache product", slog.String("key", key), slog.Any("error", err))
	}
	return product, nil
}

// ListProducts не кешируется, листинг каталога меняется чаще карточек
func (r *cachedProductRepository) ListProducts(ctx context.Context) ([]*models.Product, error) {
	return r.products.ListProducts(ctx)
}
