package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scriptedGateway struct {
	errs      []error
	payment   *Payment
	calls     int
	cancelled []string
}

func (g *scriptedGateway) GetPayment(_ context.Context, _ string) (*Payment, error) {
	g.calls++
	if len(g.errs) > 0 {
		err := g.errs[0]
		g.errs = g.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	p := *g.payment
	return &p, nil
}

func (g *scriptedGateway) CancelPayment(_ context.Context, impUID, _ string, _ int) (*Payment, error) {
	g.calls++
	if len(g.errs) > 0 {
		err := g.errs[0]
		g.errs = g.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	g.cancelled = append(g.cancelled, impUID)
	return &Payment{ImpUID: impUID, Status: "cancelled"}, nil
}

func newTestVerifier(g Gateway) *Verifier {
	return NewVerifier(g, RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		AttemptTimeout: time.Second,
	}, zap.NewNop())
}

func TestVerifier_Verify(t *testing.T) {
	const uid = "order_1_abc"
	tests := []struct {
		name      string
		errs      []error
		payment   Payment
		expected  int
		wantErr   error
		wantCalls int
	}{
		{"paid", nil, Payment{MerchantUID: uid, Amount: 1000, Status: "paid"}, 1000, nil, 1},
		{"transient then paid", []error{ErrTransient, ErrTransient}, Payment{MerchantUID: uid, Amount: 1000, Status: "paid"}, 1000, nil, 3},
		{"retries exhausted", []error{ErrTransient, ErrTransient, ErrTransient}, Payment{}, 1000, ErrTransient, 3},
		{"gateway failure not retried", []error{ErrGatewayFailure}, Payment{}, 1000, ErrGatewayFailure, 1},
		{"amount mismatch", nil, Payment{MerchantUID: uid, Amount: 1, Status: "paid"}, 1000, ErrAmountMismatch, 1},
		{"not paid", nil, Payment{MerchantUID: uid, Amount: 1000, Status: "ready"}, 1000, ErrPaymentNotCompleted, 1},
		{"other order", nil, Payment{MerchantUID: "order_2", Amount: 1000, Status: "paid"}, 1000, ErrMerchantMismatch, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.payment
			g := &scriptedGateway{errs: tt.errs, payment: &p}
			v := newTestVerifier(g)

			got, err := v.Verify(context.Background(), "imp_1", uid, tt.expected)

			assert.Equal(t, tt.wantCalls, g.calls)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got.Amount)
		})
	}
}

func TestVerifier_AmountMismatchDetails(t *testing.T) {
	g := &scriptedGateway{payment: &Payment{MerchantUID: "m", Amount: 100, Status: "paid"}}

	_, err := newTestVerifier(g).Verify(context.Background(), "imp_1", "m", 54000)

	var mismatch *AmountMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 54000, mismatch.Expected)
	assert.Equal(t, 100, mismatch.Actual)
}

func TestVerifier_CancelRetriesTransient(t *testing.T) {
	g := &scriptedGateway{errs: []error{ErrTransient}}

	err := newTestVerifier(g).Cancel(context.Background(), "imp_1", "재고 부족", 1000)

	require.NoError(t, err)
	assert.Equal(t, []string{"imp_1"}, g.cancelled)
}

func TestVerifier_ContextCancelled(t *testing.T) {
	g := &scriptedGateway{errs: []error{ErrTransient, ErrTransient, ErrTransient}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestVerifier(g).Verify(ctx, "imp_1", "m", 1000)

	assert.Error(t, err)
}
