package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/nazareth-shop/internal/infrastructure/store"
	"github.com/example/nazareth-shop/internal/metrics"
)

const (
	AggregateType = "Inventory"

	DefaultLowStockThreshold = 10
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
)

// Store persists stock entries. Implementations take the transaction from ctx.
type Store interface {
	// Stock returns the entry, found=false when the product has none yet.
	Stock(ctx context.Context, productID string) (stock int, found bool, err error)
	// EnsureEntry inserts seed stock unless an entry exists.
	EnsureEntry(ctx context.Context, productID string, seed int) error
	// DecreaseIfSufficient subtracts quantity only when stock >= quantity.
	DecreaseIfSufficient(ctx context.Context, productID string, quantity int) (bool, error)
	Increase(ctx context.Context, productID string, quantity int) error
	ListStock(ctx context.Context) (map[string]int, error)
}

// SeedSource supplies initial stock for products without an entry.
type SeedSource interface {
	SeedStock(productID string) int
	IDs() []string
}

// Level is a product's current stock for the admin inventory view.
type Level struct {
	ProductID  string `json:"productId"`
	Stock      int    `json:"stock"`
	LowStock   bool   `json:"lowStock"`
	OutOfStock bool   `json:"outOfStock"`
}

// Ledger is the authoritative stock count per product.
type Ledger struct {
	store      Store
	seeds      SeedSource
	eventStore store.EventStoreInterface
}

func NewLedger(s Store, seeds SeedSource, es store.EventStoreInterface) *Ledger {
	return &Ledger{store: s, seeds: seeds, eventStore: es}
}

// GetStock returns the ledger entry, or the seed stock for untouched products.
func (l *Ledger) GetStock(ctx context.Context, productID string) (int, error) {
	stock, found, err := l.store.Stock(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("read stock %s: %w", productID, err)
	}
	if !found {
		return l.seeds.SeedStock(productID), nil
	}
	return stock, nil
}

func (l *Ledger) IsInStock(ctx context.Context, productID string, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, ErrInvalidQuantity
	}
	stock, err := l.GetStock(ctx, productID)
	if err != nil {
		return false, err
	}
	return stock >= quantity, nil
}

// DecreaseStock subtracts quantity and reports false, without mutating,
// when stock is insufficient.
func (l *Ledger) DecreaseStock(ctx context.Context, productID string, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, ErrInvalidQuantity
	}
	if err := l.store.EnsureEntry(ctx, productID, l.seeds.SeedStock(productID)); err != nil {
		return false, fmt.Errorf("seed stock %s: %w", productID, err)
	}
	ok, err := l.store.DecreaseIfSufficient(ctx, productID, quantity)
	if err != nil {
		return false, fmt.Errorf("decrease stock %s: %w", productID, err)
	}
	if !ok {
		metrics.StockRejectionsTotal.Inc()
		return false, nil
	}

	if err := l.appendEvent(ctx, productID, EventStockDecreased, StockDecreased{
		ProductID:   productID,
		Quantity:    quantity,
		DecreasedAt: time.Now(),
	}); err != nil {
		return false, err
	}
	return true, nil
}

// IncreaseStock seeds the entry if absent, then adds quantity.
func (l *Ledger) IncreaseStock(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if err := l.store.EnsureEntry(ctx, productID, l.seeds.SeedStock(productID)); err != nil {
		return fmt.Errorf("seed stock %s: %w", productID, err)
	}
	if err := l.store.Increase(ctx, productID, quantity); err != nil {
		return fmt.Errorf("increase stock %s: %w", productID, err)
	}

	return l.appendEvent(ctx, productID, EventStockIncreased, StockIncreased{
		ProductID:   productID,
		Quantity:    quantity,
		IncreasedAt: time.Now(),
	})
}

// IsLowStock reports 0 < stock <= threshold.
func (l *Ledger) IsLowStock(ctx context.Context, productID string, threshold int) (bool, error) {
	stock, err := l.GetStock(ctx, productID)
	if err != nil {
		return false, err
	}
	return isLow(stock, threshold), nil
}

// Snapshot lists every catalog product with its current stock.
func (l *Ledger) Snapshot(ctx context.Context) ([]Level, error) {
	entries, err := l.store.ListStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}

	ids := l.seeds.IDs()
	levels := make([]Level, 0, len(ids))
	for _, id := range ids {
		stock, ok := entries[id]
		if !ok {
			stock = l.seeds.SeedStock(id)
		}
		levels = append(levels, Level{
			ProductID:  id,
			Stock:      stock,
			LowStock:   isLow(stock, DefaultLowStockThreshold),
			OutOfStock: stock == 0,
		})
	}
	return levels, nil
}

func isLow(stock, threshold int) bool {
	return stock > 0 && stock <= threshold
}

func (l *Ledger) appendEvent(ctx context.Context, productID, eventType string, data any) error {
	if l.eventStore == nil {
		return nil
	}
	if _, err := l.eventStore.Append(ctx, productID, AggregateType, eventType, data); err != nil {
		return fmt.Errorf("append %s: %w", eventType, err)
	}
	return nil
}
