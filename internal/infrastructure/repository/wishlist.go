package repository

import (
	"context"
	"time"

	"github.com/example/nazareth-shop/internal/domain/wishlist"
	"github.com/example/nazareth-shop/internal/infrastructure/store"
)

type WishlistRepository struct {
	db *store.DB
}

func NewWishlistRepository(db *store.DB) *WishlistRepository {
	return &WishlistRepository{db: db}
}

func (r *WishlistRepository) List(ctx context.Context, userID string) ([]wishlist.Item, error) {
	var rows []struct {
		ProductID string `db:"product_id"`
		AddedAt   int64  `db:"added_at"`
	}
	if err := r.db.Select(ctx, &rows,
		"SELECT product_id, added_at FROM wishlist_items WHERE user_id = ? ORDER BY added_at DESC", userID,
	); err != nil {
		return nil, err
	}
	out := make([]wishlist.Item, 0, len(rows))
	for _, row := range rows {
		out = append(out, wishlist.Item{ProductID: row.ProductID, AddedAt: store.FromMillis(row.AddedAt)})
	}
	return out, nil
}

func (r *WishlistRepository) Contains(ctx context.Context, userID, productID string) (bool, error) {
	var n int
	if err := r.db.Get(ctx, &n,
		"SELECT COUNT(*) FROM wishlist_items WHERE user_id = ? AND product_id = ?", userID, productID,
	); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *WishlistRepository) Add(ctx context.Context, userID, productID string, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO wishlist_items (user_id, product_id, added_at) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, product_id) DO NOTHING`,
		userID, productID, store.ToMillis(at))
	return err
}

func (r *WishlistRepository) Remove(ctx context.Context, userID, productID string) error {
	_, err := r.db.Exec(ctx, "DELETE FROM wishlist_items WHERE user_id = ? AND product_id = ?", userID, productID)
	return err
}

var _ wishlist.Repository = (*WishlistRepository)(nil)
