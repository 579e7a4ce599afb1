package repository

import (
	"context"

	"github.com/example/nazareth-shop/internal/domain/review"
	"github.com/example/nazareth-shop/internal/infrastructure/store"
)

type reviewRow struct {
	ID        string `db:"id"`
	ProductID string `db:"product_id"`
	UserID    string `db:"user_id"`
	Author    string `db:"author"`
	Rating    int    `db:"rating"`
	Title     string `db:"title"`
	Content   string `db:"content"`
	Helpful   int    `db:"helpful"`
	Verified  bool   `db:"verified"`
	CreatedAt int64  `db:"created_at"`
}

type ReviewRepository struct {
	db *store.DB
}

func NewReviewRepository(db *store.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) Create(ctx context.Context, rv *review.Review) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO reviews (id, product_id, user_id, author, rating, title, content, helpful, verified, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rv.ID, rv.ProductID, rv.UserID, rv.Author, rv.Rating, rv.Title, rv.Content,
		rv.Helpful, rv.Verified, store.ToMillis(rv.CreatedAt))
	return err
}

func (r *ReviewRepository) ListByProduct(ctx context.Context, productID string) ([]review.Review, error) {
	var rows []reviewRow
	if err := r.db.Select(ctx, &rows,
		`SELECT id, product_id, user_id, author, rating, title, content, helpful, verified, created_at
		 FROM reviews WHERE product_id = ? ORDER BY created_at DESC, id DESC`, productID,
	); err != nil {
		return nil, err
	}
	out := make([]review.Review, 0, len(rows))
	for _, row := range rows {
		out = append(out, review.Review{
			ID:        row.ID,
			ProductID: row.ProductID,
			UserID:    row.UserID,
			Author:    row.Author,
			Rating:    row.Rating,
			Title:     row.Title,
			Content:   row.Content,
			Helpful:   row.Helpful,
			Verified:  row.Verified,
			CreatedAt: store.FromMillis(row.CreatedAt),
		})
	}
	return out, nil
}

func (r *ReviewRepository) IncrementHelpful(ctx context.Context, id string) (int, error) {
	var helpful int
	err := r.db.WithinTx(ctx, func(ctx context.Context) error {
		n, err := r.db.Exec(ctx, "UPDATE reviews SET helpful = helpful + 1 WHERE id = ?", id)
		if err != nil {
			return err
		}
		if n == 0 {
			return review.ErrReviewNotFound
		}
		return r.db.Get(ctx, &helpful, "SELECT helpful FROM reviews WHERE id = ?", id)
	})
	return helpful, err
}

var _ review.Repository = (*ReviewRepository)(nil)
