package order

import (
	"context"
	"fmt"
	"time"

	"github.com/example/nazareth-shop/internal/infrastructure/store"
)

// Repository persists orders. Implementations take the transaction from ctx.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, o *Order) error
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	List(ctx context.Context, f ListFilter) ([]Order, error)
	HasPurchased(ctx context.Context, userID, productID string) (bool, error)
}

// IntentRepository persists payment intents.
type IntentRepository interface {
	Create(ctx context.Context, p *PaymentIntent) error
	Get(ctx context.Context, merchantUID string) (*PaymentIntent, error)
	UpdateStatus(ctx context.Context, merchantUID string, status IntentStatus, reason, paymentID string) error
	ListByStatus(ctx context.Context, statuses []IntentStatus, limit int) ([]PaymentIntent, error)
}

type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}

// Restocker returns cancelled units to the stock ledger.
type Restocker interface {
	IncreaseStock(ctx context.Context, productID string, quantity int) error
}

type Service struct {
	repo       Repository
	tx         store.Transactor
	stock      Restocker
	eventStore store.EventStoreInterface
	now        func() time.Time
}

func NewService(repo Repository, tx store.Transactor, stock Restocker, es store.EventStoreInterface) *Service {
	return &Service{repo: repo, tx: tx, stock: stock, eventStore: es, now: time.Now}
}

// PlaceParams describes a verified payment.
type PlaceParams struct {
	MerchantUID string
	PaymentID   string
	UserID      string
	Lines       []Line
	Shipping    Shipping
	CouponCode  string
	Discount    int
}

// Place records a paid order and appends OrderPaid. It joins the caller's
// transaction when ctx carries one.
func (s *Service) Place(ctx context.Context, p PlaceParams) (*Order, error) {
	if len(p.Lines) == 0 {
		return nil, ErrEmptyOrder
	}

	now := s.now().UTC()
	subtotal := Subtotal(p.Lines)
	o := &Order{
		ID:          p.MerchantUID,
		PaymentID:   p.PaymentID,
		UserID:      p.UserID,
		Lines:       p.Lines,
		Shipping:    p.Shipping,
		CouponCode:  p.CouponCode,
		Subtotal:    subtotal,
		Discount:    p.Discount,
		TotalAmount: subtotal - p.Discount,
		Status:      StatusPaid,
		CreatedAt:   now,
		PaidAt:      &now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}

	event := OrderPaid{
		OrderID:    o.ID,
		UserID:     o.UserID,
		PaymentID:  o.PaymentID,
		Lines:      o.Lines,
		BuyerName:  o.Shipping.Name,
		BuyerEmail: o.Shipping.Email,
		CouponCode: o.CouponCode,
		Subtotal:   o.Subtotal,
		Discount:   o.Discount,
		Total:      o.TotalAmount,
		PaidAt:     now,
	}
	if _, err := s.eventStore.Append(ctx, o.ID, AggregateType, EventOrderPaid, event); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.repo.Get(ctx, id)
}

// GetForUser returns the order only when it belongs to userID.
func (s *Service) GetForUser(ctx context.Context, id, userID string) (*Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID == "" || o.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// GetForGuest looks up an order by merchant uid and the shipping phone.
func (s *Service) GetForGuest(ctx context.Context, id, phone string) (*Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !SamePhone(o.Shipping.Phone, phone) {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Order, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Status != "" {
		if _, err := ParseStatus(string(f.Status)); err != nil {
			return nil, err
		}
	}
	return s.repo.List(ctx, f)
}

func (s *Service) HasPurchased(ctx context.Context, userID, productID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	return s.repo.HasPurchased(ctx, userID, productID)
}

func (s *Service) MarkPreparing(ctx context.Context, id string) (*Order, error) {
	return s.Transition(ctx, id, StatusPreparing, "")
}

func (s *Service) Ship(ctx context.Context, id string) (*Order, error) {
	return s.Transition(ctx, id, StatusShipped, "")
}

func (s *Service) Deliver(ctx context.Context, id string) (*Order, error) {
	return s.Transition(ctx, id, StatusDelivered, "")
}

// Cancel cancels the order and restocks its lines in the same transaction.
func (s *Service) Cancel(ctx context.Context, id, reason string) (*Order, error) {
	return s.Transition(ctx, id, StatusCancelled, reason)
}

// Transition moves an order to target, stamping the matching timestamp and
// appending the event.
func (s *Service) Transition(ctx context.Context, id string, target Status, reason string) (*Order, error) {
	var out *Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if !o.CanTransitionTo(target) {
			return o.transitionError(target)
		}

		now := s.now().UTC()
		eventType, data, err := s.apply(ctx, o, target, reason, now)
		if err != nil {
			return err
		}
		if err := s.repo.Update(ctx, o); err != nil {
			return fmt.Errorf("update order %s: %w", id, err)
		}
		if _, err := s.eventStore.Append(ctx, o.ID, AggregateType, eventType, data); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) apply(ctx context.Context, o *Order, target Status, reason string, now time.Time) (string, any, error) {
	o.Status = target
	o.UpdatedAt = now

	switch target {
	case StatusPaid:
		o.PaidAt = &now
		return EventOrderPaid, OrderPaid{OrderID: o.ID, UserID: o.UserID, PaymentID: o.PaymentID, Total: o.TotalAmount, PaidAt: now}, nil
	case StatusPreparing:
		return EventOrderPreparing, OrderPreparing{OrderID: o.ID, PreparedAt: now}, nil
	case StatusShipped:
		o.ShippedAt = &now
		return EventOrderShipped, OrderShipped{OrderID: o.ID, ShippedAt: now}, nil
	case StatusDelivered:
		o.DeliveredAt = &now
		return EventOrderDelivered, OrderDelivered{OrderID: o.ID, DeliveredAt: now}, nil
	case StatusCancelled:
		o.CancelledAt = &now
		restocked := false
		if s.stock != nil {
			for _, l := range o.Lines {
				if err := s.stock.IncreaseStock(ctx, l.ProductID, l.Quantity); err != nil {
					return "", nil, fmt.Errorf("restock %s: %w", l.ProductID, err)
				}
			}
			restocked = true
		}
		return EventOrderCancelled, OrderCancelled{OrderID: o.ID, Reason: reason, Restocked: restocked, CancelledAt: now}, nil
	}
	return "", nil, fmt.Errorf("%w: %s", ErrUnknownStatus, target)
}
