package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/nazareth-shop/internal/domain/order"
	"github.com/example/nazareth-shop/internal/email"
	"github.com/example/nazareth-shop/internal/infrastructure/store"
)

// =============================================================================
// Fakes
// =============================================================================

type sentMail struct {
	to      string
	summary email.OrderSummary
}

type fakeSender struct {
	sent []sentMail
	err  error
}

func (f *fakeSender) SendOrderConfirmation(to string, summary email.OrderSummary) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, summary: summary})
	return nil
}

func paidEvent(t *testing.T, paid order.OrderPaid) store.Event {
	t.Helper()
	data, err := json.Marshal(paid)
	require.NoError(t, err)
	return store.Event{
		ID:            "evt-1",
		AggregateID:   paid.OrderID,
		AggregateType: order.AggregateType,
		EventType:     order.EventOrderPaid,
		Data:          data,
		Timestamp:     time.Now(),
	}
}

// =============================================================================
// HandleEvent
// =============================================================================

func TestHandleEvent_OrderPaidSendsConfirmation(t *testing.T) {
	sender := &fakeSender{}
	h := NewHandler(sender, zap.NewNop())

	err := h.HandleEvent(context.Background(), paidEvent(t, order.OrderPaid{
		OrderID:    "order_1_aa",
		BuyerName:  "Kim",
		BuyerEmail: "kim@example.com",
		Lines:      []order.Line{{ProductID: "p-1", ProductName: "Tee", UnitPrice: 20000, Quantity: 2}},
		CouponCode: "SAVE10",
		Subtotal:   40000,
		Discount:   4000,
		Total:      36000,
	}))

	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "kim@example.com", sender.sent[0].to)
	assert.Equal(t, 36000, sender.sent[0].summary.Total)
	assert.Equal(t, "SAVE10", sender.sent[0].summary.CouponCode)
	require.Len(t, sender.sent[0].summary.Items, 1)
	assert.Equal(t, "Tee", sender.sent[0].summary.Items[0].Name)
	assert.Equal(t, 20000, sender.sent[0].summary.Items[0].UnitPrice)
}

func TestHandleEvent_SkipsWithoutEmail(t *testing.T) {
	sender := &fakeSender{}
	h := NewHandler(sender, zap.NewNop())

	err := h.HandleEvent(context.Background(), paidEvent(t, order.OrderPaid{OrderID: "order_1"}))

	require.NoError(t, err)
	assert.Empty(t, sender.sent)
}

func TestHandleEvent_IgnoresOtherEvents(t *testing.T) {
	sender := &fakeSender{}
	h := NewHandler(sender, zap.NewNop())

	err := h.HandleEvent(context.Background(), store.Event{EventType: order.EventOrderShipped, Data: []byte(`{}`)})

	require.NoError(t, err)
	assert.Empty(t, sender.sent)
}

func TestHandleEvent_Errors(t *testing.T) {
	t.Run("undecodable payload", func(t *testing.T) {
		h := NewHandler(&fakeSender{}, zap.NewNop())
		err := h.HandleEvent(context.Background(), store.Event{EventType: order.EventOrderPaid, Data: []byte(`{`)})
		assert.Error(t, err)
	})

	t.Run("sender failure", func(t *testing.T) {
		boom := errors.New("smtp down")
		h := NewHandler(&fakeSender{err: boom}, zap.NewNop())
		err := h.HandleEvent(context.Background(), paidEvent(t, order.OrderPaid{OrderID: "o", BuyerEmail: "a@b.c"}))
		assert.ErrorIs(t, err, boom)
	})
}
