package wishlist

import (
	"context"
	"errors"
	"time"
)

var ErrProductNotFound = errors.New("product not found")

type Item struct {
	ProductID string    `json:"productId"`
	AddedAt   time.Time `json:"addedAt"`
}

type Repository interface {
	List(ctx context.Context, userID string) ([]Item, error)
	Contains(ctx context.Context, userID, productID string) (bool, error)
	Add(ctx context.Context, userID, productID string, at time.Time) error
	Remove(ctx context.Context, userID, productID string) error
}

type ProductChecker interface {
	Exists(productID string) bool
}

type Service struct {
	repo     Repository
	products ProductChecker
}

func NewService(repo Repository, products ProductChecker) *Service {
	return &Service{repo: repo, products: products}
}

func (s *Service) List(ctx context.Context, userID string) ([]Item, error) {
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

// Toggle adds the product when absent and removes it otherwise. It returns
// whether the product is in the wishlist afterwards.
func (s *Service) Toggle(ctx context.Context, userID, productID string) (bool, error) {
	if !s.products.Exists(productID) {
		return false, ErrProductNotFound
	}
	present, err := s.repo.Contains(ctx, userID, productID)
	if err != nil {
		return false, err
	}
	if present {
		return false, s.repo.Remove(ctx, userID, productID)
	}
	return true, s.repo.Add(ctx, userID, productID, time.Now().UTC())
}
