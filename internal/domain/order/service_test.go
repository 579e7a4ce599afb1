package order

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/nazareth-shop/internal/infrastructure/store/mocks"
)

type memoryRepo struct {
	orders map[string]Order
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{orders: make(map[string]Order)}
}

func (m *memoryRepo) Create(_ context.Context, o *Order) error {
	if _, ok := m.orders[o.ID]; ok {
		return ErrOrderExists
	}
	m.orders[o.ID] = *o
	return nil
}

func (m *memoryRepo) Get(_ context.Context, id string) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return &o, nil
}

func (m *memoryRepo) Update(_ context.Context, o *Order) error {
	m.orders[o.ID] = *o
	return nil
}

func (m *memoryRepo) ListByUser(_ context.Context, userID string) ([]Order, error) {
	var out []Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memoryRepo) List(_ context.Context, f ListFilter) ([]Order, error) {
	var out []Order
	for _, o := range m.orders {
		if f.Status == "" || o.Status == f.Status {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memoryRepo) HasPurchased(_ context.Context, userID, productID string) (bool, error) {
	for _, o := range m.orders {
		if o.UserID != userID || o.Status == StatusCancelled {
			continue
		}
		for _, l := range o.Lines {
			if l.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}

type restockCall struct {
	ProductID string
	Quantity  int
}

type fakeRestocker struct {
	calls []restockCall
	err   error
}

func (f *fakeRestocker) IncreaseStock(_ context.Context, productID string, quantity int) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, restockCall{productID, quantity})
	return nil
}

func newTestOrderService() (*Service, *memoryRepo, *fakeRestocker, *mocks.MockEventStore) {
	repo := newMemoryRepo()
	stock := &fakeRestocker{}
	es := mocks.NewMockEventStore()
	svc := NewService(repo, &mocks.MockTransactor{}, stock, es)
	return svc, repo, stock, es
}

var testLines = []Line{
	{ProductID: "lambie-plush", ProductName: "램비 인형", UnitPrice: 35000, Quantity: 2},
	{ProductID: "eco-bag", ProductName: "리틀 나사렛 에코백", UnitPrice: 15000, Quantity: 1},
}

func placeTestOrder(t *testing.T, svc *Service) *Order {
	t.Helper()
	o, err := svc.Place(context.Background(), PlaceParams{
		MerchantUID: "order_1_abcdef01",
		PaymentID:   "imp_1",
		UserID:      "user-1",
		Lines:       testLines,
		Shipping:    Shipping{Name: "홍길동", Email: "hong@example.com", Phone: "010-1234-5678", Address: "서울"},
		CouponCode:  "SAVE5000",
		Discount:    5000,
	})
	require.NoError(t, err)
	return o
}

// ============================================
// Place Order Tests
// ============================================

func TestService_Place_Success(t *testing.T) {
	svc, _, _, es := newTestOrderService()

	o := placeTestOrder(t, svc)

	assert.Equal(t, "order_1_abcdef01", o.ID)
	assert.Equal(t, StatusPaid, o.Status)
	assert.Equal(t, 85000, o.Subtotal)
	assert.Equal(t, 80000, o.TotalAmount)
	assert.NotNil(t, o.PaidAt)

	require.Len(t, es.AppendCalls, 1)
	assert.Equal(t, EventOrderPaid, es.AppendCalls[0].EventType)
	paid := es.AppendCalls[0].Data.(OrderPaid)
	assert.Equal(t, "hong@example.com", paid.BuyerEmail)
	assert.Equal(t, 80000, paid.Total)
}

func TestService_Place_EmptyItems(t *testing.T) {
	svc, _, _, es := newTestOrderService()

	o, err := svc.Place(context.Background(), PlaceParams{MerchantUID: "order_x"})

	assert.ErrorIs(t, err, ErrEmptyOrder)
	assert.Nil(t, o)
	assert.Empty(t, es.AppendCalls)
}

func TestService_Place_Duplicate(t *testing.T) {
	svc, _, _, _ := newTestOrderService()
	placeTestOrder(t, svc)

	_, err := svc.Place(context.Background(), PlaceParams{MerchantUID: "order_1_abcdef01", Lines: testLines})
	assert.ErrorIs(t, err, ErrOrderExists)
}

// ============================================
// Transition Tests
// ============================================

func TestService_Lifecycle_HappyPath(t *testing.T) {
	svc, _, _, es := newTestOrderService()
	ctx := context.Background()
	o := placeTestOrder(t, svc)

	_, err := svc.MarkPreparing(ctx, o.ID)
	require.NoError(t, err)
	shipped, err := svc.Ship(ctx, o.ID)
	require.NoError(t, err)
	assert.NotNil(t, shipped.ShippedAt)
	delivered, err := svc.Deliver(ctx, o.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusDelivered, delivered.Status)
	assert.NotNil(t, delivered.DeliveredAt)
	assert.Equal(t,
		[]string{EventOrderPaid, EventOrderPreparing, EventOrderShipped, EventOrderDelivered},
		es.EventTypes())
}

func TestService_Transition_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		path    []Status
		target  Status
		wantErr error
	}{
		{"paid to paid", nil, StatusPaid, ErrOrderAlreadyPaid},
		{"paid skips to shipped", nil, StatusShipped, ErrInvalidStatus},
		{"paid skips to delivered", nil, StatusDelivered, ErrInvalidStatus},
		{"delivered is terminal", []Status{StatusPreparing, StatusShipped, StatusDelivered}, StatusCancelled, ErrOrderDelivered},
		{"cancelled is terminal", []Status{StatusCancelled}, StatusPreparing, ErrOrderCancelled},
		{"cancel twice", []Status{StatusCancelled}, StatusCancelled, ErrOrderCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _, _ := newTestOrderService()
			ctx := context.Background()
			o := placeTestOrder(t, svc)
			for _, step := range tt.path {
				_, err := svc.Transition(ctx, o.ID, step, "")
				require.NoError(t, err)
			}

			_, err := svc.Transition(ctx, o.ID, tt.target, "")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_Transition_NotFound(t *testing.T) {
	svc, _, _, _ := newTestOrderService()

	_, err := svc.Ship(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrder_TransitionError_PendingNotPaid(t *testing.T) {
	o := &Order{Status: StatusPending}

	assert.False(t, o.CanTransitionTo(StatusShipped))
	assert.ErrorIs(t, o.transitionError(StatusShipped), ErrOrderNotPaid)
	assert.True(t, o.CanTransitionTo(StatusPaid))
}

// ============================================
// Cancel Tests
// ============================================

func TestService_Cancel_Restocks(t *testing.T) {
	for _, path := range [][]Status{nil, {StatusPreparing}, {StatusPreparing, StatusShipped}} {
		svc, _, stock, es := newTestOrderService()
		ctx := context.Background()
		o := placeTestOrder(t, svc)
		for _, step := range path {
			_, err := svc.Transition(ctx, o.ID, step, "")
			require.NoError(t, err)
		}

		cancelled, err := svc.Cancel(ctx, o.ID, "customer request")

		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, cancelled.Status)
		assert.NotNil(t, cancelled.CancelledAt)
		assert.Equal(t, []restockCall{{"lambie-plush", 2}, {"eco-bag", 1}}, stock.calls)
		types := es.EventTypes()
		assert.Equal(t, EventOrderCancelled, types[len(types)-1])
	}
}

func TestService_Cancel_RestockFailureAborts(t *testing.T) {
	svc, repo, stock, _ := newTestOrderService()
	o := placeTestOrder(t, svc)
	stock.err = errors.New("ledger down")

	_, err := svc.Cancel(context.Background(), o.ID, "")

	assert.Error(t, err)
	assert.Equal(t, StatusPaid, repo.orders[o.ID].Status)
}

// ============================================
// Lookup Tests
// ============================================

func TestService_GetForUserAndGuest(t *testing.T) {
	svc, _, _, _ := newTestOrderService()
	ctx := context.Background()
	o := placeTestOrder(t, svc)

	_, err := svc.GetForUser(ctx, o.ID, "user-1")
	assert.NoError(t, err)
	_, err = svc.GetForUser(ctx, o.ID, "user-2")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = svc.GetForGuest(ctx, o.ID, "01012345678")
	assert.NoError(t, err)
	_, err = svc.GetForGuest(ctx, o.ID, "010-0000-0000")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestService_List_UnknownStatus(t *testing.T) {
	svc, _, _, _ := newTestOrderService()

	_, err := svc.List(context.Background(), ListFilter{Status: "lost"})
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestService_HasPurchased(t *testing.T) {
	svc, _, _, _ := newTestOrderService()
	ctx := context.Background()
	placeTestOrder(t, svc)

	ok, err := svc.HasPurchased(ctx, "user-1", "eco-bag")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = svc.HasPurchased(ctx, "", "eco-bag")
	assert.False(t, ok)
}

// ============================================
// Helper Tests
// ============================================

func TestName(t *testing.T) {
	assert.Equal(t, "", Name(nil))
	assert.Equal(t, "램비 인형", Name(testLines[:1]))
	assert.Equal(t, "램비 인형 외 1건", Name(testLines))
}

func TestNewMerchantUID(t *testing.T) {
	now := time.UnixMilli(1767225600000)

	a, err := NewMerchantUID(now)
	require.NoError(t, err)
	b, err := NewMerchantUID(now)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, "order_1767225600000_"))
	assert.Len(t, a, len("order_1767225600000_")+8)
	assert.NotEqual(t, a, b)
}

func TestShipping_Validate(t *testing.T) {
	assert.NoError(t, Shipping{Name: "a", Phone: "1", Address: "x"}.Validate())
	assert.ErrorIs(t, Shipping{Name: "a", Phone: " ", Address: "x"}.Validate(), ErrInvalidShipping)
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus(" Shipped ")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, st)

	_, err = ParseStatus("lost")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}
