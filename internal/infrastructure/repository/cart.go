package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/nazareth-shop/internal/domain/cart"
	"github.com/example/nazareth-shop/internal/infrastructure/store"
)

type cartLineRow struct {
	ProductID   string `db:"product_id"`
	ProductName string `db:"product_name"`
	UnitPrice   int    `db:"unit_price"`
	Quantity    int    `db:"quantity"`
	AddedAt     int64  `db:"added_at"`
}

type CartRepository struct {
	db *store.DB
}

func NewCartRepository(db *store.DB) *CartRepository {
	return &CartRepository{db: db}
}

// Get returns an empty cart for unknown ids.
func (r *CartRepository) Get(ctx context.Context, cartID string) (*cart.Cart, error) {
	c := &cart.Cart{ID: cartID, Lines: []cart.Line{}}

	var code sql.NullString
	err := r.db.Get(ctx, &code, "SELECT coupon_code FROM carts WHERE cart_id = ?", cartID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	c.CouponCode = code.String

	var rows []cartLineRow
	if err := r.db.Select(ctx, &rows,
		`SELECT product_id, product_name, unit_price, quantity, added_at
		 FROM cart_lines WHERE cart_id = ? ORDER BY added_at ASC, product_id ASC`, cartID,
	); err != nil {
		return nil, err
	}
	for _, row := range rows {
		c.Lines = append(c.Lines, cart.Line{
			ProductID:   row.ProductID,
			ProductName: row.ProductName,
			UnitPrice:   row.UnitPrice,
			Quantity:    row.Quantity,
			AddedAt:     store.FromMillis(row.AddedAt),
		})
	}
	return c, nil
}

func (r *CartRepository) UpsertLine(ctx context.Context, cartID string, line cart.Line) error {
	return r.db.WithinTx(ctx, func(ctx context.Context) error {
		if err := r.touch(ctx, cartID); err != nil {
			return err
		}
		return r.upsert(ctx, cartID, line)
	})
}

// UpdateLine hands fn the current line and saves the line it returns, all in
// one transaction. Upserting the carts row first locks it, so concurrent
// updates of the same cart run one after another. A returned line with no
// quantity is not saved.
func (r *CartRepository) UpdateLine(ctx context.Context, cartID, productID string, fn cart.LineFunc) error {
	return r.db.WithinTx(ctx, func(ctx context.Context) error {
		if err := r.touch(ctx, cartID); err != nil {
			return err
		}

		var row cartLineRow
		found := true
		err := r.db.Get(ctx, &row,
			`SELECT product_id, product_name, unit_price, quantity, added_at
			 FROM cart_lines WHERE cart_id = ? AND product_id = ?`, cartID, productID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			found = false
		case err != nil:
			return err
		}

		existing := cart.Line{}
		if found {
			existing = cart.Line{
				ProductID:   row.ProductID,
				ProductName: row.ProductName,
				UnitPrice:   row.UnitPrice,
				Quantity:    row.Quantity,
				AddedAt:     store.FromMillis(row.AddedAt),
			}
		}

		line, err := fn(ctx, existing, found)
		if err != nil {
			return err
		}
		if line.Quantity <= 0 {
			return nil
		}
		return r.upsert(ctx, cartID, line)
	})
}

func (r *CartRepository) upsert(ctx context.Context, cartID string, line cart.Line) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO cart_lines (cart_id, product_id, product_name, unit_price, quantity, added_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (cart_id, product_id) DO UPDATE SET
		   product_name = excluded.product_name,
		   unit_price = excluded.unit_price,
		   quantity = excluded.quantity`,
		cartID, line.ProductID, line.ProductName, line.UnitPrice, line.Quantity, store.ToMillis(line.AddedAt))
	return err
}

func (r *CartRepository) RemoveLine(ctx context.Context, cartID, productID string) error {
	_, err := r.db.Exec(ctx, "DELETE FROM cart_lines WHERE cart_id = ? AND product_id = ?", cartID, productID)
	return err
}

func (r *CartRepository) Clear(ctx context.Context, cartID string) error {
	return r.db.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := r.db.Exec(ctx, "DELETE FROM cart_lines WHERE cart_id = ?", cartID); err != nil {
			return err
		}
		_, err := r.db.Exec(ctx, "DELETE FROM carts WHERE cart_id = ?", cartID)
		return err
	})
}

func (r *CartRepository) SetCoupon(ctx context.Context, cartID, code string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO carts (cart_id, coupon_code, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (cart_id) DO UPDATE SET coupon_code = excluded.coupon_code, updated_at = excluded.updated_at`,
		cartID, nullString(code), store.ToMillis(time.Now()))
	return err
}

func (r *CartRepository) touch(ctx context.Context, cartID string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO carts (cart_id, updated_at) VALUES (?, ?)
		 ON CONFLICT (cart_id) DO UPDATE SET updated_at = excluded.updated_at`,
		cartID, store.ToMillis(time.Now()))
	return err
}

var _ cart.Repository = (*CartRepository)(nil)
