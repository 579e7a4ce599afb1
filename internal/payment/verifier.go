package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/example/nazareth-shop/internal/metrics"
	"github.com/example/nazareth-shop/internal/tracing"
)

// RetryPolicy bounds gateway retries for transient failures.
type RetryPolicy struct {
	MaxAttempts    uint
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	AttemptTimeout time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    4,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		AttemptTimeout: 5 * time.Second,
	}
}

// Verifier confirms with the gateway that a charge matches the expected order.
type Verifier struct {
	gateway Gateway
	policy  RetryPolicy
	logger  *zap.Logger
}

func NewVerifier(gateway Gateway, policy RetryPolicy, logger *zap.Logger) *Verifier {
	if policy.MaxAttempts == 0 {
		policy.MaxAttempts = 1
	}
	return &Verifier{gateway: gateway, policy: policy, logger: logger.Named("payment")}
}

// Verify fetches impUID and checks merchant uid, amount and status. Transient
// gateway errors are retried with exponential backoff; every other failure
// returns immediately.
func (v *Verifier) Verify(ctx context.Context, impUID, merchantUID string, expectedAmount int) (*Payment, error) {
	ctx, span := tracing.StartSpan(ctx, "payment.Verify")
	defer span.End()
	span.SetAttributes(attribute.String("payment.imp_uid", impUID), attribute.String("payment.merchant_uid", merchantUID))

	p, err := retry(ctx, v, func(ctx context.Context) (*Payment, error) {
		return v.gateway.GetPayment(ctx, impUID)
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	if err := check(p, merchantUID, expectedAmount); err != nil {
		tracing.RecordError(span, err)
		v.logger.Warn("payment verification failed",
			zap.String("imp_uid", impUID),
			zap.String("merchant_uid", merchantUID),
			zap.Error(err))
		return p, err
	}
	return p, nil
}

// Cancel refunds amount of impUID, retrying transient errors.
func (v *Verifier) Cancel(ctx context.Context, impUID, reason string, amount int) error {
	ctx, span := tracing.StartSpan(ctx, "payment.Cancel")
	defer span.End()

	_, err := retry(ctx, v, func(ctx context.Context) (*Payment, error) {
		return v.gateway.CancelPayment(ctx, impUID, reason, amount)
	})
	tracing.RecordError(span, err)
	return err
}

func check(p *Payment, merchantUID string, expectedAmount int) error {
	if p.MerchantUID != "" && p.MerchantUID != merchantUID {
		return fmt.Errorf("%w: gateway has %s", ErrMerchantMismatch, p.MerchantUID)
	}
	if p.Amount != expectedAmount {
		return &AmountMismatchError{Expected: expectedAmount, Actual: p.Amount}
	}
	if p.Status != StatusPaid {
		return fmt.Errorf("%w: status %s", ErrPaymentNotCompleted, p.Status)
	}
	return nil
}

func retry(ctx context.Context, v *Verifier, call func(ctx context.Context) (*Payment, error)) (*Payment, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = v.policy.InitialBackoff
	b.MaxInterval = v.policy.MaxBackoff

	attempt := 0
	op := func() (*Payment, error) {
		attempt++
		attemptCtx := ctx
		if v.policy.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, v.policy.AttemptTimeout)
			defer cancel()
		}

		p, err := call(attemptCtx)
		switch {
		case err == nil:
			metrics.PaymentVerifyAttemptsTotal.WithLabelValues("ok").Inc()
			return p, nil
		case errors.Is(err, ErrTransient):
			metrics.PaymentVerifyAttemptsTotal.WithLabelValues("transient").Inc()
			v.logger.Warn("gateway call failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
			return nil, err
		default:
			metrics.PaymentVerifyAttemptsTotal.WithLabelValues("error").Inc()
			return nil, backoff.Permanent(err)
		}
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(v.policy.MaxAttempts),
	)
}
