package review

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrReviewNotFound  = errors.New("review not found")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrInvalidContent  = errors.New("title and content are required")
	ErrProductNotFound = errors.New("product not found")
)

type Review struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	UserID    string    `json:"userId"`
	Author    string    `json:"author"`
	Rating    int       `json:"rating"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Helpful   int       `json:"helpful"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary is a product's reviews, newest first, with the average rating.
type Summary struct {
	ProductID     string   `json:"productId"`
	Reviews       []Review `json:"reviews"`
	Count         int      `json:"count"`
	AverageRating float64  `json:"averageRating"`
}

type Repository interface {
	Create(ctx context.Context, r *Review) error
	ListByProduct(ctx context.Context, productID string) ([]Review, error)
	IncrementHelpful(ctx context.Context, id string) (int, error)
}

// PurchaseChecker reports whether a user has a paid order containing a product.
type PurchaseChecker interface {
	HasPurchased(ctx context.Context, userID, productID string) (bool, error)
}

type ProductChecker interface {
	Exists(productID string) bool
}

type Service struct {
	repo      Repository
	purchases PurchaseChecker
	products  ProductChecker
	now       func() time.Time
}

func NewService(repo Repository, purchases PurchaseChecker, products ProductChecker) *Service {
	return &Service{repo: repo, purchases: purchases, products: products, now: time.Now}
}

type NewReview struct {
	ProductID string
	UserID    string
	Author    string
	Rating    int
	Title     string
	Content   string
}

func (s *Service) Add(ctx context.Context, in NewReview) (*Review, error) {
	if !s.products.Exists(in.ProductID) {
		return nil, ErrProductNotFound
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, ErrInvalidRating
	}
	title, content := strings.TrimSpace(in.Title), strings.TrimSpace(in.Content)
	if title == "" || content == "" {
		return nil, ErrInvalidContent
	}

	verified, err := s.purchases.HasPurchased(ctx, in.UserID, in.ProductID)
	if err != nil {
		return nil, fmt.Errorf("check purchase: %w", err)
	}

	r := &Review{
		ID:        uuid.New().String(),
		ProductID: in.ProductID,
		UserID:    in.UserID,
		Author:    in.Author,
		Rating:    in.Rating,
		Title:     title,
		Content:   content,
		Verified:  verified,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) ForProduct(ctx context.Context, productID string) (*Summary, error) {
	reviews, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []Review{}
	}
	return &Summary{
		ProductID:     productID,
		Reviews:       reviews,
		Count:         len(reviews),
		AverageRating: AverageRating(reviews),
	}, nil
}

func (s *Service) MarkHelpful(ctx context.Context, id string) (int, error) {
	return s.repo.IncrementHelpful(ctx, id)
}

// AverageRating is the mean rating rounded to one decimal, 0 without reviews.
func AverageRating(reviews []Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return math.Round(float64(sum)/float64(len(reviews))*10) / 10
}
