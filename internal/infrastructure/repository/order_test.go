package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/nazareth-shop/internal/domain/order"
	"github.com/example/nazareth-shop/internal/infrastructure/repository"
	"github.com/example/nazareth-shop/internal/infrastructure/store/storetest"
)

func testOrder(id, userID string, created time.Time) *order.Order {
	paid := created
	return &order.Order{
		ID:        id,
		PaymentID: "imp_" + id,
		UserID:    userID,
		Lines: []order.Line{
			{ProductID: "lambie-plush", ProductName: "램비 인형", UnitPrice: 30000, Quantity: 1},
			{ProductID: "eco-bag", ProductName: "에코백", UnitPrice: 15000, Quantity: 2},
		},
		Shipping:    order.Shipping{Name: "홍길동", Phone: "010-1234-5678", Address: "서울시 종로구"},
		Subtotal:    60000,
		Discount:    6000,
		TotalAmount: 54000,
		Status:      order.StatusPaid,
		CreatedAt:   created,
		PaidAt:      &paid,
		UpdatedAt:   created,
	}
}

// ============================================
// Orders
// ============================================

func TestOrderRepository_CreateGetRoundTrip(t *testing.T) {
	repo := repository.NewOrderRepository(storetest.New(t))
	ctx := context.Background()
	created := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, testOrder("order_1", "user-1", created)))

	got, err := repo.Get(ctx, "order_1")
	require.NoError(t, err)
	assert.Len(t, got.Lines, 2)
	assert.Equal(t, "010-1234-5678", got.Shipping.Phone)
	assert.Equal(t, 54000, got.TotalAmount)
	require.NotNil(t, got.PaidAt)
	assert.Equal(t, created, *got.PaidAt)
	assert.Nil(t, got.ShippedAt)

	err = repo.Create(ctx, testOrder("order_1", "user-1", created))
	assert.ErrorIs(t, err, order.ErrOrderExists)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestOrderRepository_UpdateAndList(t *testing.T) {
	repo := repository.NewOrderRepository(storetest.New(t))
	ctx := context.Background()
	base := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, testOrder("order_1", "user-1", base)))
	require.NoError(t, repo.Create(ctx, testOrder("order_2", "user-1", base.Add(time.Hour))))
	require.NoError(t, repo.Create(ctx, testOrder("order_3", "", base.Add(2*time.Hour))))

	o, err := repo.Get(ctx, "order_1")
	require.NoError(t, err)
	shipped := base.Add(24 * time.Hour)
	o.Status = order.StatusShipped
	o.ShippedAt = &shipped
	o.UpdatedAt = shipped
	require.NoError(t, repo.Update(ctx, o))

	mine, err := repo.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "order_2", mine[0].ID)

	shippedOnly, err := repo.List(ctx, order.ListFilter{Status: order.StatusShipped, Limit: 10})
	require.NoError(t, err)
	require.Len(t, shippedOnly, 1)
	assert.Equal(t, "order_1", shippedOnly[0].ID)

	page, err := repo.List(ctx, order.ListFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "order_2", page[0].ID)

	assert.ErrorIs(t, repo.Update(ctx, &order.Order{ID: "missing"}), order.ErrOrderNotFound)
}

func TestOrderRepository_HasPurchased(t *testing.T) {
	repo := repository.NewOrderRepository(storetest.New(t))
	ctx := context.Background()
	o := testOrder("order_1", "user-1", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, o))

	tests := []struct {
		name    string
		userID  string
		product string
		want    bool
	}{
		{"bought", "user-1", "eco-bag", true},
		{"other product", "user-1", "mug", false},
		{"other user", "user-2", "eco-bag", false},
		{"guest", "", "eco-bag", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.HasPurchased(ctx, tt.userID, tt.product)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	o.Status = order.StatusCancelled
	require.NoError(t, repo.Update(ctx, o))
	got, err := repo.HasPurchased(ctx, "user-1", "eco-bag")
	require.NoError(t, err)
	assert.False(t, got)
}

// ============================================
// Payment intents
// ============================================

func TestIntentRepository_Lifecycle(t *testing.T) {
	repo := repository.NewIntentRepository(storetest.New(t))
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, &order.PaymentIntent{
		MerchantUID: "order_1",
		CartID:      "cart-1",
		Lines:       []order.Line{{ProductID: "eco-bag", ProductName: "에코백", UnitPrice: 15000, Quantity: 1}},
		Shipping:    order.Shipping{Name: "홍길동", Phone: "01012345678", Address: "서울"},
		Subtotal:    15000,
		Amount:      15000,
		Status:      order.IntentOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}))
	require.NoError(t, repo.Create(ctx, &order.PaymentIntent{
		MerchantUID: "order_2", CartID: "cart-2", Lines: []order.Line{}, Status: order.IntentOpen,
		CreatedAt: now.Add(time.Second), UpdatedAt: now,
	}))

	require.NoError(t, repo.UpdateStatus(ctx, "order_1", order.IntentReview, "amount mismatch", "imp_1"))
	require.NoError(t, repo.UpdateStatus(ctx, "order_1", order.IntentReview, "still", ""))

	got, err := repo.Get(ctx, "order_1")
	require.NoError(t, err)
	assert.Equal(t, order.IntentReview, got.Status)
	assert.Equal(t, "still", got.FailureReason)
	assert.Equal(t, "imp_1", got.PaymentID)
	assert.Len(t, got.Lines, 1)

	pending, err := repo.ListByStatus(ctx, []order.IntentStatus{order.IntentOpen, order.IntentReview}, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "order_1", pending[0].MerchantUID)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, order.ErrIntentNotFound)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, "missing", order.IntentFailed, "", ""), order.ErrIntentNotFound)
}
