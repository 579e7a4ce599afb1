package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/nazareth-shop/internal/domain/catalog"
	"github.com/example/nazareth-shop/internal/domain/coupon"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidProduct  = errors.New("product_id is required")
	ErrInvalidCart     = errors.New("cart id is required")
	ErrLineNotFound    = errors.New("product is not in the cart")
)

// Line is a product snapshot taken when the item was added.
type Line struct {
	ProductID   string    `json:"productId"`
	ProductName string    `json:"productName"`
	UnitPrice   int       `json:"unitPrice"`
	Quantity    int       `json:"quantity"`
	AddedAt     time.Time `json:"addedAt"`
}

func (l Line) Subtotal() int {
	return l.UnitPrice * l.Quantity
}

type Cart struct {
	ID         string `json:"id"`
	Lines      []Line `json:"lines"`
	CouponCode string `json:"couponCode,omitempty"`
}

func (c *Cart) TotalItems() int {
	total := 0
	for _, l := range c.Lines {
		total += l.Quantity
	}
	return total
}

func (c *Cart) TotalPrice() int {
	total := 0
	for _, l := range c.Lines {
		total += l.Subtotal()
	}
	return total
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c *Cart) line(productID string) (Line, bool) {
	for _, l := range c.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return Line{}, false
}

// Change describes the outcome of a quantity mutation.
type Change struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Clamped   bool   `json:"clamped"`
	Available int    `json:"available"`
	Removed   bool   `json:"removed,omitempty"`
}

// Summary is a priced view of a cart.
type Summary struct {
	Cart       *Cart              `json:"cart"`
	TotalItems int                `json:"totalItems"`
	Subtotal   int                `json:"subtotal"`
	Discount   int                `json:"discount"`
	Total      int                `json:"total"`
	Coupon     *coupon.Validation `json:"coupon,omitempty"`
}

// LineFunc receives a cart line and returns its new state. ctx carries the
// caller's transaction.
type LineFunc func(ctx context.Context, existing Line, found bool) (Line, error)

// Repository persists carts. Get returns an empty cart for unknown ids.
// UpdateLine applies fn atomically with respect to other updates of the cart.
type Repository interface {
	Get(ctx context.Context, cartID string) (*Cart, error)
	UpsertLine(ctx context.Context, cartID string, line Line) error
	UpdateLine(ctx context.Context, cartID, productID string, fn LineFunc) error
	RemoveLine(ctx context.Context, cartID, productID string) error
	Clear(ctx context.Context, cartID string) error
	SetCoupon(ctx context.Context, cartID, code string) error
}

type StockReader interface {
	GetStock(ctx context.Context, productID string) (int, error)
}

type CouponQuoter interface {
	Quote(ctx context.Context, code string, subtotal int, userID string) (int, coupon.Validation, error)
}

type Service struct {
	repo    Repository
	stock   StockReader
	coupons CouponQuoter
	now     func() time.Time
}

func NewService(repo Repository, stock StockReader, coupons CouponQuoter) *Service {
	return &Service{repo: repo, stock: stock, coupons: coupons, now: time.Now}
}

func (s *Service) Get(ctx context.Context, cartID string) (*Cart, error) {
	if cartID == "" {
		return nil, ErrInvalidCart
	}
	return s.repo.Get(ctx, cartID)
}

// AddItem adds quantity of product, clamping to what stock still allows.
// Nothing is added when no more units are available.
func (s *Service) AddItem(ctx context.Context, cartID string, product catalog.Product, quantity int) (Change, error) {
	if cartID == "" {
		return Change{}, ErrInvalidCart
	}
	if product.ID == "" {
		return Change{}, ErrInvalidProduct
	}
	if quantity <= 0 {
		return Change{}, ErrInvalidQuantity
	}

	var change Change
	err := s.repo.UpdateLine(ctx, cartID, product.ID, func(ctx context.Context, existing Line, found bool) (Line, error) {
		available, err := s.stock.GetStock(ctx, product.ID)
		if err != nil {
			return Line{}, err
		}
		change = Change{ProductID: product.ID, Quantity: existing.Quantity, Available: available}

		add := quantity
		if existing.Quantity+add > available {
			change.Clamped = true
			add = available - existing.Quantity
			if add <= 0 {
				return Line{}, nil
			}
		}

		line := Line{
			ProductID:   product.ID,
			ProductName: product.KoreanName,
			UnitPrice:   product.Price,
			Quantity:    existing.Quantity + add,
			AddedAt:     s.now(),
		}
		if line.ProductName == "" {
			line.ProductName = product.Name
		}
		if found {
			line.ProductName, line.UnitPrice, line.AddedAt = existing.ProductName, existing.UnitPrice, existing.AddedAt
		}
		change.Quantity = line.Quantity
		return line, nil
	})
	if err != nil {
		return Change{}, fmt.Errorf("save cart line: %w", err)
	}
	return change, nil
}

// UpdateQuantity sets a line's quantity. Zero or less removes the line; a
// quantity above stock is clamped, and a sold-out product is removed.
func (s *Service) UpdateQuantity(ctx context.Context, cartID, productID string, quantity int) (Change, error) {
	if cartID == "" {
		return Change{}, ErrInvalidCart
	}
	c, err := s.repo.Get(ctx, cartID)
	if err != nil {
		return Change{}, err
	}
	existing, found := c.line(productID)
	if !found {
		return Change{}, ErrLineNotFound
	}

	if quantity <= 0 {
		if err := s.repo.RemoveLine(ctx, cartID, productID); err != nil {
			return Change{}, err
		}
		return Change{ProductID: productID, Removed: true}, nil
	}

	available, err := s.stock.GetStock(ctx, productID)
	if err != nil {
		return Change{}, err
	}
	change := Change{ProductID: productID, Quantity: quantity, Available: available}

	if quantity > available {
		change.Clamped = true
		change.Quantity = available
	}
	if change.Quantity == 0 {
		if err := s.repo.RemoveLine(ctx, cartID, productID); err != nil {
			return Change{}, err
		}
		change.Removed = true
		return change, nil
	}

	existing.Quantity = change.Quantity
	if err := s.repo.UpsertLine(ctx, cartID, existing); err != nil {
		return Change{}, fmt.Errorf("save cart line: %w", err)
	}
	return change, nil
}

func (s *Service) RemoveItem(ctx context.Context, cartID, productID string) error {
	if cartID == "" {
		return ErrInvalidCart
	}
	if productID == "" {
		return ErrInvalidProduct
	}
	return s.repo.RemoveLine(ctx, cartID, productID)
}

// Clear empties the cart and drops its coupon selection.
func (s *Service) Clear(ctx context.Context, cartID string) error {
	if cartID == "" {
		return ErrInvalidCart
	}
	return s.repo.Clear(ctx, cartID)
}

// ApplyCoupon validates code against the current subtotal and stores it when
// valid. Selecting a coupon never consumes a use.
func (s *Service) ApplyCoupon(ctx context.Context, cartID, code, userID string) (coupon.Validation, error) {
	if cartID == "" {
		return coupon.Validation{}, ErrInvalidCart
	}
	c, err := s.repo.Get(ctx, cartID)
	if err != nil {
		return coupon.Validation{}, err
	}
	_, v, err := s.coupons.Quote(ctx, code, c.TotalPrice(), userID)
	if err != nil {
		return coupon.Validation{}, err
	}
	if !v.Valid {
		return v, nil
	}
	if err := s.repo.SetCoupon(ctx, cartID, coupon.NormalizeCode(code)); err != nil {
		return coupon.Validation{}, err
	}
	return v, nil
}

func (s *Service) RemoveCoupon(ctx context.Context, cartID string) error {
	if cartID == "" {
		return ErrInvalidCart
	}
	return s.repo.SetCoupon(ctx, cartID, "")
}

// Summarize prices the cart, re-validating its coupon against the subtotal.
func (s *Service) Summarize(ctx context.Context, cartID, userID string) (*Summary, error) {
	c, err := s.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Cart: c, TotalItems: c.TotalItems(), Subtotal: c.TotalPrice()}
	if c.CouponCode != "" {
		discount, v, err := s.coupons.Quote(ctx, c.CouponCode, sum.Subtotal, userID)
		if err != nil {
			return nil, err
		}
		sum.Discount = discount
		sum.Coupon = &v
	}
	sum.Total = sum.Subtotal - sum.Discount
	return sum, nil
}
