package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/nazareth-shop/internal/infrastructure/store/mocks"
)

type fakeSeeds map[string]int

func (f fakeSeeds) SeedStock(id string) int { return f[id] }

func (f fakeSeeds) IDs() []string {
	return []string{"lambie-plush", "coco-blanket", "eco-bag"}
}

type memoryStore struct {
	mu      sync.Mutex
	entries map[string]int
	err     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: make(map[string]int)}
}

func (m *memoryStore) Stock(_ context.Context, id string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, false, m.err
	}
	s, ok := m.entries[id]
	return s, ok, nil
}

func (m *memoryStore) EnsureEntry(_ context.Context, id string, seed int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		m.entries[id] = seed
	}
	return nil
}

func (m *memoryStore) DecreaseIfSufficient(_ context.Context, id string, q int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries[id] < q {
		return false, nil
	}
	m.entries[id] -= q
	return true, nil
}

func (m *memoryStore) Increase(_ context.Context, id string, q int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] += q
	return nil
}

func (m *memoryStore) ListStock(context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out, nil
}

func newTestLedger() (*Ledger, *memoryStore, *mocks.MockEventStore) {
	st := newMemoryStore()
	es := mocks.NewMockEventStore()
	seeds := fakeSeeds{"lambie-plush": 28, "coco-blanket": 12, "eco-bag": 3}
	return NewLedger(st, seeds, es), st, es
}

// ============================================
// GetStock / IsInStock Tests
// ============================================

func TestLedger_GetStock_FallsBackToSeed(t *testing.T) {
	ledger, _, _ := newTestLedger()
	ctx := context.Background()

	stock, err := ledger.GetStock(ctx, "lambie-plush")
	require.NoError(t, err)
	assert.Equal(t, 28, stock)

	stock, err = ledger.GetStock(ctx, "unknown")
	require.NoError(t, err)
	assert.Equal(t, 0, stock)
}

func TestLedger_GetStock_StoreError(t *testing.T) {
	ledger, st, _ := newTestLedger()
	st.err = errors.New("db down")

	_, err := ledger.GetStock(context.Background(), "lambie-plush")
	assert.Error(t, err)
}

func TestLedger_IsInStock(t *testing.T) {
	ledger, _, _ := newTestLedger()
	ctx := context.Background()

	tests := []struct {
		name     string
		quantity int
		want     bool
		wantErr  error
	}{
		{"default single unit", 1, true, nil},
		{"exact stock", 12, true, nil},
		{"over stock", 13, false, nil},
		{"zero quantity", 0, false, ErrInvalidQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := ledger.IsInStock(ctx, "coco-blanket", tt.quantity)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

// ============================================
// DecreaseStock Tests
// ============================================

func TestLedger_DecreaseStock_Success(t *testing.T) {
	ledger, _, es := newTestLedger()
	ctx := context.Background()

	ok, err := ledger.DecreaseStock(ctx, "coco-blanket", 2)

	require.NoError(t, err)
	assert.True(t, ok)
	stock, _ := ledger.GetStock(ctx, "coco-blanket")
	assert.Equal(t, 10, stock)
	require.Len(t, es.AppendCalls, 1)
	assert.Equal(t, EventStockDecreased, es.AppendCalls[0].EventType)
	assert.Equal(t, AggregateType, es.AppendCalls[0].AggregateType)
}

func TestLedger_DecreaseStock_Insufficient(t *testing.T) {
	ledger, _, es := newTestLedger()
	ctx := context.Background()

	ok, err := ledger.DecreaseStock(ctx, "eco-bag", 4)

	require.NoError(t, err)
	assert.False(t, ok)
	stock, _ := ledger.GetStock(ctx, "eco-bag")
	assert.Equal(t, 3, stock)
	assert.Empty(t, es.AppendCalls)
}

func TestLedger_DecreaseStock_UnknownProduct(t *testing.T) {
	ledger, _, _ := newTestLedger()

	ok, err := ledger.DecreaseStock(context.Background(), "unknown", 1)

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedger_DecreaseStock_InvalidQuantity(t *testing.T) {
	ledger, _, _ := newTestLedger()

	for _, q := range []int{0, -1} {
		_, err := ledger.DecreaseStock(context.Background(), "eco-bag", q)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	}
}

func TestLedger_DecreaseStock_ConcurrentNeverOversells(t *testing.T) {
	ledger, _, _ := newTestLedger()
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := ledger.DecreaseStock(ctx, "eco-bag", 1)
			if err == nil && ok {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, successes)
	stock, _ := ledger.GetStock(ctx, "eco-bag")
	assert.Equal(t, 0, stock)
}

// ============================================
// IncreaseStock Tests
// ============================================

func TestLedger_IncreaseStock_SeedsThenAdds(t *testing.T) {
	ledger, _, es := newTestLedger()
	ctx := context.Background()

	require.NoError(t, ledger.IncreaseStock(ctx, "coco-blanket", 5))
	stock, _ := ledger.GetStock(ctx, "coco-blanket")
	assert.Equal(t, 17, stock)

	require.NoError(t, ledger.IncreaseStock(ctx, "unknown", 4))
	stock, _ = ledger.GetStock(ctx, "unknown")
	assert.Equal(t, 4, stock)

	assert.Equal(t, []string{EventStockIncreased, EventStockIncreased}, es.EventTypes())
}

func TestLedger_IncreaseStock_InvalidQuantity(t *testing.T) {
	ledger, _, _ := newTestLedger()
	assert.ErrorIs(t, ledger.IncreaseStock(context.Background(), "eco-bag", 0), ErrInvalidQuantity)
}

func TestLedger_EventStoreFailurePropagates(t *testing.T) {
	ledger, _, es := newTestLedger()
	es.AppendErr = errors.New("outbox full")

	err := ledger.IncreaseStock(context.Background(), "eco-bag", 1)
	assert.Error(t, err)
}

// ============================================
// Low Stock / Snapshot Tests
// ============================================

func TestLedger_IsLowStock(t *testing.T) {
	ledger, _, _ := newTestLedger()
	ctx := context.Background()

	low, err := ledger.IsLowStock(ctx, "eco-bag", DefaultLowStockThreshold)
	require.NoError(t, err)
	assert.True(t, low)

	low, _ = ledger.IsLowStock(ctx, "lambie-plush", DefaultLowStockThreshold)
	assert.False(t, low)

	_, _ = ledger.DecreaseStock(ctx, "eco-bag", 3)
	low, _ = ledger.IsLowStock(ctx, "eco-bag", DefaultLowStockThreshold)
	assert.False(t, low, "out of stock is not low stock")
}

func TestLedger_Snapshot(t *testing.T) {
	ledger, _, _ := newTestLedger()
	ctx := context.Background()
	_, _ = ledger.DecreaseStock(ctx, "eco-bag", 3)

	levels, err := ledger.Snapshot(ctx)

	require.NoError(t, err)
	require.Len(t, levels, 3)
	assert.Equal(t, Level{ProductID: "lambie-plush", Stock: 28}, levels[0])
	assert.Equal(t, Level{ProductID: "coco-blanket", Stock: 12}, levels[1])
	assert.Equal(t, Level{ProductID: "eco-bag", Stock: 0, OutOfStock: true}, levels[2])
}
