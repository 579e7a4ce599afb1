package repository

import (
	"context"
	"errors"
	"time"

	"github.com/example/nazareth-shop/internal/domain/inventory"
	"github.com/example/nazareth-shop/internal/infrastructure/store"
)

type StockRepository struct {
	db *store.DB
}

func NewStockRepository(db *store.DB) *StockRepository {
	return &StockRepository{db: db}
}

func (r *StockRepository) Stock(ctx context.Context, productID string) (int, bool, error) {
	var stock int
	err := r.db.Get(ctx, &stock, "SELECT stock FROM stock_entries WHERE product_id = ?", productID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return stock, true, nil
}

func (r *StockRepository) EnsureEntry(ctx context.Context, productID string, seed int) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO stock_entries (product_id, stock, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (product_id) DO NOTHING`,
		productID, seed, store.ToMillis(time.Now()))
	return err
}

// DecreaseIfSufficient is a single conditional UPDATE so concurrent buyers
// can never drive stock below zero.
func (r *StockRepository) DecreaseIfSufficient(ctx context.Context, productID string, quantity int) (bool, error) {
	n, err := r.db.Exec(ctx,
		`UPDATE stock_entries SET stock = stock - ?, updated_at = ?
		 WHERE product_id = ? AND stock >= ?`,
		quantity, store.ToMillis(time.Now()), productID, quantity)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *StockRepository) Increase(ctx context.Context, productID string, quantity int) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO stock_entries (product_id, stock, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (product_id) DO UPDATE SET stock = stock_entries.stock + excluded.stock, updated_at = excluded.updated_at`,
		productID, quantity, store.ToMillis(time.Now()))
	return err
}

func (r *StockRepository) ListStock(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		ProductID string `db:"product_id"`
		Stock     int    `db:"stock"`
	}
	if err := r.db.Select(ctx, &rows, "SELECT product_id, stock FROM stock_entries"); err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.ProductID] = row.Stock
	}
	return out, nil
}

var _ inventory.Store = (*StockRepository)(nil)
