package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/example/nazareth-shop/internal/domain/cart"
	"github.com/example/nazareth-shop/internal/domain/coupon"
	"github.com/example/nazareth-shop/internal/domain/inventory"
	"github.com/example/nazareth-shop/internal/domain/order"
	"github.com/example/nazareth-shop/internal/infrastructure/cache"
	"github.com/example/nazareth-shop/internal/infrastructure/store"
	"github.com/example/nazareth-shop/internal/metrics"
	"github.com/example/nazareth-shop/internal/payment"
	"github.com/example/nazareth-shop/internal/tracing"
)

const (
	DefaultPG        = "html5_inicis"
	DefaultPayMethod = "card"

	defaultLockTTL   = 2 * time.Minute
	defaultResultTTL = 24 * time.Hour
)

type Carts interface {
	Get(ctx context.Context, cartID string) (*cart.Cart, error)
	Clear(ctx context.Context, cartID string) error
}

type Stock interface {
	GetStock(ctx context.Context, productID string) (int, error)
	IsInStock(ctx context.Context, productID string, quantity int) (bool, error)
	DecreaseStock(ctx context.Context, productID string, quantity int) (bool, error)
}

type Coupons interface {
	Quote(ctx context.Context, code string, subtotal int, userID string) (int, coupon.Validation, error)
	Redeem(ctx context.Context, code, orderID string, discount int) error
}

type Orders interface {
	Place(ctx context.Context, p order.PlaceParams) (*order.Order, error)
	Get(ctx context.Context, id string) (*order.Order, error)
}

type Verifier interface {
	Verify(ctx context.Context, impUID, merchantUID string, expectedAmount int) (*payment.Payment, error)
	Cancel(ctx context.Context, impUID, reason string, amount int) error
}

// Options tune the gateway parameters and idempotency windows.
type Options struct {
	PG          string
	PayMethod   string
	RedirectURL string
	LockTTL     time.Duration
	ResultTTL   time.Duration
}

// Finalizer turns a verified gateway payment into exactly one paid order.
type Finalizer struct {
	carts    Carts
	stock    Stock
	coupons  Coupons
	orders   Orders
	intents  order.IntentRepository
	verifier Verifier
	tx       store.Transactor
	idem     cache.IdempotencyStore
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
}

func NewFinalizer(
	carts Carts,
	stock Stock,
	coupons Coupons,
	orders Orders,
	intents order.IntentRepository,
	verifier Verifier,
	tx store.Transactor,
	idem cache.IdempotencyStore,
	opts Options,
	logger *zap.Logger,
) *Finalizer {
	if opts.PG == "" {
		opts.PG = DefaultPG
	}
	if opts.PayMethod == "" {
		opts.PayMethod = DefaultPayMethod
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultLockTTL
	}
	if opts.ResultTTL <= 0 {
		opts.ResultTTL = defaultResultTTL
	}
	return &Finalizer{
		carts:    carts,
		stock:    stock,
		coupons:  coupons,
		orders:   orders,
		intents:  intents,
		verifier: verifier,
		tx:       tx,
		idem:     idem,
		opts:     opts,
		logger:   logger.Named("checkout"),
		now:      time.Now,
	}
}

// Prepare checks stock and coupon for the cart and stores a payment intent
// carrying the amount the gateway must later report.
func (f *Finalizer) Prepare(ctx context.Context, req PrepareRequest) (*GatewayParams, error) {
	ctx, span := tracing.StartSpan(ctx, "checkout.Prepare")
	defer span.End()

	params, err := f.prepare(ctx, req)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("checkout.merchant_uid", params.MerchantUID))
	return params, nil
}

func (f *Finalizer) prepare(ctx context.Context, req PrepareRequest) (*GatewayParams, error) {
	c, err := f.carts.Get(ctx, req.CartID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, order.ErrEmptyOrder
	}
	if err := req.Shipping.Validate(); err != nil {
		return nil, err
	}

	lines := make([]order.Line, 0, len(c.Lines))
	for _, l := range c.Lines {
		ok, err := f.stock.IsInStock(ctx, l.ProductID, l.Quantity)
		if err != nil {
			return nil, err
		}
		if !ok {
			metrics.CheckoutRejectionsTotal.WithLabelValues("stock").Inc()
			return nil, f.stockError(ctx, l.ProductID, l.ProductName, l.Quantity)
		}
		lines = append(lines, order.Line{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
		})
	}

	subtotal := order.Subtotal(lines)
	discount := 0
	if c.CouponCode != "" {
		d, v, err := f.coupons.Quote(ctx, c.CouponCode, subtotal, req.UserID)
		if err != nil {
			return nil, err
		}
		if !v.Valid {
			metrics.CheckoutRejectionsTotal.WithLabelValues("coupon").Inc()
			return nil, &coupon.InvalidError{Code: c.CouponCode, Reason: v.Reason, Message: v.Message}
		}
		discount = d
	}
	if subtotal-discount <= 0 {
		metrics.CheckoutRejectionsTotal.WithLabelValues("amount").Inc()
		return nil, ErrNothingToPay
	}

	now := f.now().UTC()
	merchantUID, err := order.NewMerchantUID(now)
	if err != nil {
		return nil, fmt.Errorf("generate merchant uid: %w", err)
	}

	intent := &order.PaymentIntent{
		MerchantUID: merchantUID,
		CartID:      req.CartID,
		UserID:      req.UserID,
		Lines:       lines,
		Shipping:    req.Shipping,
		CouponCode:  c.CouponCode,
		Subtotal:    subtotal,
		Discount:    discount,
		Amount:      subtotal - discount,
		Status:      order.IntentOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := f.intents.Create(ctx, intent); err != nil {
		return nil, fmt.Errorf("store payment intent: %w", err)
	}
	metrics.CheckoutsPreparedTotal.Inc()

	f.logger.Info("checkout prepared",
		zap.String("merchant_uid", merchantUID),
		zap.String("cart_id", req.CartID),
		zap.Int("amount", intent.Amount))

	return &GatewayParams{
		PG:            f.opts.PG,
		PayMethod:     f.opts.PayMethod,
		MerchantUID:   merchantUID,
		Name:          order.Name(lines),
		Amount:        intent.Amount,
		BuyerName:     req.Shipping.Name,
		BuyerEmail:    req.Shipping.Email,
		BuyerTel:      req.Shipping.Phone,
		BuyerAddr:     strings.TrimSpace(req.Shipping.Address + " " + req.Shipping.AddressDetail),
		BuyerPostcode: req.Shipping.Postcode,
		RedirectURL:   f.opts.RedirectURL,
	}, nil
}

// Complete handles the widget callback for a prepared intent. Repeated
// callbacks for the same merchant uid return the first decision.
func (f *Finalizer) Complete(ctx context.Context, cb Callback) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "checkout.Complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("checkout.merchant_uid", cb.MerchantUID),
		attribute.String("payment.imp_uid", cb.ImpUID),
	)

	start := f.now()
	defer func() { metrics.CheckoutDuration.Observe(f.now().Sub(start).Seconds()) }()

	if cb.MerchantUID == "" {
		return nil, order.ErrIntentNotFound
	}

	res, err := f.locked(ctx, cb.MerchantUID, true, func(ctx context.Context, intent *order.PaymentIntent) (*Result, error) {
		if !cb.Success {
			return f.declined(ctx, intent, cb)
		}
		if cb.ImpUID == "" {
			return nil, fmt.Errorf("%w: imp_uid is required", payment.ErrGatewayFailure)
		}
		return f.finalize(ctx, intent, cb.ImpUID)
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("checkout.outcome", string(res.Outcome)))
	return res, nil
}

// Reconcile re-verifies an intent left open or flagged for review. It always
// asks the gateway again instead of replaying an earlier callback result.
func (f *Finalizer) Reconcile(ctx context.Context, merchantUID string) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "checkout.Reconcile")
	defer span.End()

	res, err := f.locked(ctx, merchantUID, false, func(ctx context.Context, intent *order.PaymentIntent) (*Result, error) {
		if intent.Status != order.IntentOpen && intent.Status != order.IntentReview {
			return nil, ErrNotPending
		}
		if intent.PaymentID == "" {
			return nil, ErrNoPayment
		}
		return f.finalize(ctx, intent, intent.PaymentID)
	})
	tracing.RecordError(span, err)
	return res, err
}

// Verify checks a gateway payment against the stored intent amount without
// finalizing anything.
func (f *Finalizer) Verify(ctx context.Context, impUID, merchantUID string) (*payment.Payment, error) {
	intent, err := f.intents.Get(ctx, merchantUID)
	if err != nil {
		return nil, err
	}
	return f.verifier.Verify(ctx, impUID, merchantUID, intent.Amount)
}

// locked runs fn for an unsettled intent while holding the merchant uid lock.
// With replay set, a remembered result is returned instead of running fn.
func (f *Finalizer) locked(ctx context.Context, merchantUID string, replay bool, fn func(ctx context.Context, intent *order.PaymentIntent) (*Result, error)) (*Result, error) {
	if res, ok, err := f.existingOrder(ctx, merchantUID); err != nil || ok {
		return res, err
	}

	release, err := f.idem.Acquire(ctx, merchantUID, f.opts.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire checkout lock: %w", err)
	}
	if release == nil {
		if replay {
			if res, ok := f.recall(ctx, merchantUID); ok {
				return res, nil
			}
		}
		return nil, ErrInProgress
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			f.logger.Warn("release checkout lock failed", zap.String("merchant_uid", merchantUID), zap.Error(err))
		}
	}()

	if replay {
		if res, ok := f.recall(ctx, merchantUID); ok {
			return res, nil
		}
	}
	if res, ok, err := f.existingOrder(ctx, merchantUID); err != nil || ok {
		return res, err
	}

	intent, err := f.intents.Get(ctx, merchantUID)
	if err != nil {
		return nil, err
	}
	switch intent.Status {
	case order.IntentCompleted:
		o, err := f.orders.Get(ctx, merchantUID)
		if err != nil {
			return nil, err
		}
		return successResult(o), nil
	case order.IntentFailed:
		return &Result{Outcome: OutcomeFailure, Err: order.ErrIntentNotPending, Message: intent.FailureReason}, nil
	}

	res, err := fn(ctx, intent)
	if err != nil {
		return nil, err
	}
	metrics.CheckoutOutcomesTotal.WithLabelValues(string(res.Outcome)).Inc()
	if res.Outcome != OutcomeAmbiguous && !res.review {
		f.remember(context.WithoutCancel(ctx), merchantUID, res)
	}
	return res, nil
}

func (f *Finalizer) existingOrder(ctx context.Context, merchantUID string) (*Result, bool, error) {
	o, err := f.orders.Get(ctx, merchantUID)
	if errors.Is(err, order.ErrOrderNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return successResult(o), true, nil
}

// declined settles a failure callback. When the callback names a gateway
// payment the gateway decides, since the widget can report a failure for a
// charge that went through.
func (f *Finalizer) declined(ctx context.Context, intent *order.PaymentIntent, cb Callback) (*Result, error) {
	bg := context.WithoutCancel(ctx)
	if cb.ImpUID == "" {
		return f.fail(bg, intent, cb.ErrorMsg)
	}
	log := f.logger.With(zap.String("merchant_uid", intent.MerchantUID), zap.String("imp_uid", cb.ImpUID))

	if err := f.recordPayment(bg, intent, cb.ImpUID); err != nil {
		return nil, err
	}
	p, err := f.verifier.Verify(ctx, cb.ImpUID, intent.MerchantUID, intent.Amount)
	switch {
	case err == nil:
		log.Warn("gateway reports paid despite failure callback", zap.String("callback_error", cb.ErrorMsg))
		return f.place(bg, intent, p)
	case errors.Is(err, payment.ErrPaymentNotCompleted), errors.Is(err, payment.ErrGatewayFailure):
		return f.fail(bg, intent, cb.ErrorMsg)
	default:
		return f.rejected(bg, intent, cb.ImpUID, err)
	}
}

func (f *Finalizer) fail(ctx context.Context, intent *order.PaymentIntent, gatewayMsg string) (*Result, error) {
	msg := gatewayMsg
	if msg == "" {
		msg = "결제에 실패했습니다."
	}
	if err := f.intents.UpdateStatus(ctx, intent.MerchantUID, order.IntentFailed, msg, ""); err != nil {
		return nil, fmt.Errorf("mark intent failed: %w", err)
	}
	f.logger.Info("payment failed at gateway", zap.String("merchant_uid", intent.MerchantUID), zap.String("reason", msg))
	return &Result{Outcome: OutcomeFailure, Err: payment.ErrPaymentNotCompleted, Message: msg}, nil
}

// finalize verifies impUID and places the order. Everything after the gateway
// call runs even if ctx is cancelled, so a captured charge is never dropped
// halfway.
func (f *Finalizer) finalize(ctx context.Context, intent *order.PaymentIntent, impUID string) (*Result, error) {
	bg := context.WithoutCancel(ctx)
	if err := f.recordPayment(bg, intent, impUID); err != nil {
		return nil, err
	}
	p, err := f.verifier.Verify(ctx, impUID, intent.MerchantUID, intent.Amount)
	if err != nil {
		return f.rejected(bg, intent, impUID, err)
	}
	return f.place(bg, intent, p)
}

func (f *Finalizer) recordPayment(ctx context.Context, intent *order.PaymentIntent, impUID string) error {
	if err := f.intents.UpdateStatus(ctx, intent.MerchantUID, intent.Status, intent.FailureReason, impUID); err != nil {
		return fmt.Errorf("record payment id: %w", err)
	}
	return nil
}

// rejected handles a failed verification. An inconclusive error leaves the
// intent open for Reconcile; any other error flags it for review.
func (f *Finalizer) rejected(ctx context.Context, intent *order.PaymentIntent, impUID string, err error) (*Result, error) {
	log := f.logger.With(zap.String("merchant_uid", intent.MerchantUID), zap.String("imp_uid", impUID))
	if inconclusive(err) {
		log.Warn("payment verification inconclusive", zap.Error(err))
		return &Result{Outcome: OutcomeAmbiguous, Err: err, Message: "결제 확인이 지연되고 있습니다. 잠시 후 주문 내역을 확인해 주세요."}, nil
	}
	metrics.CheckoutRejectionsTotal.WithLabelValues(rejectionReason(err)).Inc()
	log.Warn("payment verification rejected", zap.Error(err))
	if uerr := f.intents.UpdateStatus(ctx, intent.MerchantUID, order.IntentReview, err.Error(), impUID); uerr != nil {
		return nil, fmt.Errorf("flag intent for review: %w", uerr)
	}
	return &Result{Outcome: OutcomeFailure, Err: err, Message: "결제 검증에 실패했습니다.", review: true}, nil
}

// place turns a verified payment into an order, refunding it when stock or
// the coupon is gone.
func (f *Finalizer) place(ctx context.Context, intent *order.PaymentIntent, p *payment.Payment) (*Result, error) {
	log := f.logger.With(zap.String("merchant_uid", intent.MerchantUID), zap.String("imp_uid", p.ImpUID))

	var placed *order.Order
	err := f.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, l := range intent.Lines {
			ok, err := f.stock.DecreaseStock(ctx, l.ProductID, l.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return f.stockError(ctx, l.ProductID, l.ProductName, l.Quantity)
			}
		}

		o, err := f.orders.Place(ctx, order.PlaceParams{
			MerchantUID: intent.MerchantUID,
			PaymentID:   p.ImpUID,
			UserID:      intent.UserID,
			Lines:       intent.Lines,
			Shipping:    intent.Shipping,
			CouponCode:  intent.CouponCode,
			Discount:    intent.Discount,
		})
		if err != nil {
			return err
		}

		if intent.CouponCode != "" {
			if err := f.coupons.Redeem(ctx, intent.CouponCode, o.ID, intent.Discount); err != nil {
				return err
			}
		}
		if intent.CartID != "" {
			if err := f.carts.Clear(ctx, intent.CartID); err != nil {
				return fmt.Errorf("clear cart: %w", err)
			}
		}
		if err := f.intents.UpdateStatus(ctx, intent.MerchantUID, order.IntentCompleted, "", p.ImpUID); err != nil {
			return fmt.Errorf("complete intent: %w", err)
		}
		placed = o
		return nil
	})

	switch {
	case err == nil:
		log.Info("order paid", zap.Int("amount", placed.TotalAmount))
		return successResult(placed), nil
	case errors.Is(err, order.ErrOrderExists):
		o, gerr := f.orders.Get(ctx, intent.MerchantUID)
		if gerr != nil {
			return nil, gerr
		}
		return successResult(o), nil
	case errors.Is(err, inventory.ErrInsufficientStock), errors.Is(err, coupon.ErrCouponInvalid):
		metrics.CheckoutRejectionsTotal.WithLabelValues(rejectionReason(err)).Inc()
		return f.compensate(ctx, intent, p, err), nil
	default:
		log.Error("finalize paid order failed", zap.Error(err))
		return &Result{Outcome: OutcomeAmbiguous, Err: err, Message: "주문 처리 중 오류가 발생했습니다. 잠시 후 주문 내역을 확인해 주세요."}, nil
	}
}

// compensate refunds a charge whose order could not be created.
func (f *Finalizer) compensate(ctx context.Context, intent *order.PaymentIntent, p *payment.Payment, cause error) *Result {
	log := f.logger.With(zap.String("merchant_uid", intent.MerchantUID), zap.String("imp_uid", p.ImpUID))
	reason := cause.Error()

	msg := "재고가 부족하여 결제가 취소되었습니다."
	if errors.Is(cause, coupon.ErrCouponInvalid) {
		msg = "쿠폰을 사용할 수 없어 결제가 취소되었습니다."
	}

	if err := f.verifier.Cancel(ctx, p.ImpUID, reason, p.Amount); err != nil {
		metrics.PaymentRefundsTotal.WithLabelValues("failed").Inc()
		log.Error("compensating cancel failed", zap.NamedError("cause", cause), zap.Error(err))
		if uerr := f.intents.UpdateStatus(ctx, intent.MerchantUID, order.IntentReview, "refund failed: "+reason, p.ImpUID); uerr != nil {
			log.Error("flag intent for review failed", zap.Error(uerr))
		}
		return &Result{Outcome: OutcomeFailure, Err: cause, Message: msg + " 환불 처리가 지연되어 고객센터에서 확인 후 환불해 드립니다.", review: true}
	}

	metrics.PaymentRefundsTotal.WithLabelValues("ok").Inc()
	log.Warn("payment cancelled after failed finalization", zap.Error(cause))
	if err := f.intents.UpdateStatus(ctx, intent.MerchantUID, order.IntentFailed, reason, p.ImpUID); err != nil {
		log.Error("mark intent failed", zap.Error(err))
	}
	return &Result{Outcome: OutcomeFailure, Err: cause, Message: msg}
}

func (f *Finalizer) stockError(ctx context.Context, productID, name string, requested int) error {
	available, err := f.stock.GetStock(ctx, productID)
	if err != nil {
		return err
	}
	return &StockError{ProductID: productID, ProductName: name, Requested: requested, Available: available}
}

func (f *Finalizer) remember(ctx context.Context, merchantUID string, res *Result) {
	data, err := json.Marshal(res)
	if err == nil {
		err = f.idem.Remember(ctx, merchantUID, data, f.opts.ResultTTL)
	}
	if err != nil {
		f.logger.Warn("remember checkout result failed", zap.String("merchant_uid", merchantUID), zap.Error(err))
	}
}

func (f *Finalizer) recall(ctx context.Context, merchantUID string) (*Result, bool) {
	data, ok, err := f.idem.Recall(ctx, merchantUID)
	if err != nil {
		f.logger.Warn("recall checkout result failed", zap.String("merchant_uid", merchantUID), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, false
	}
	return &res, true
}

// inconclusive reports whether err leaves the gateway state unknown.
func inconclusive(err error) bool {
	return errors.Is(err, payment.ErrTransient) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

func successResult(o *order.Order) *Result {
	return &Result{Outcome: OutcomeSuccess, Order: o, Message: "결제가 완료되었습니다."}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, inventory.ErrInsufficientStock):
		return "stock"
	case errors.Is(err, coupon.ErrCouponInvalid):
		return "coupon"
	case errors.Is(err, payment.ErrAmountMismatch):
		return "amount_mismatch"
	case errors.Is(err, payment.ErrPaymentNotCompleted):
		return "not_paid"
	case errors.Is(err, payment.ErrMerchantMismatch):
		return "merchant_mismatch"
	default:
		return "gateway"
	}
}
