package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/nazareth-shop/internal/domain/order"
	"github.com/example/nazareth-shop/internal/email"
	"github.com/example/nazareth-shop/internal/infrastructure/store"
)

// Sender delivers order confirmation mail.
type Sender interface {
	SendOrderConfirmation(to string, summary email.OrderSummary) error
}

// Handler turns relayed order events into customer notifications.
type Handler struct {
	sender Sender
	logger *zap.Logger
}

func NewHandler(sender Sender, logger *zap.Logger) *Handler {
	return &Handler{
		sender: sender,
		logger: logger.Named("notifier"),
	}
}

// HandleEvent matches kafka.EventHandler.
func (h *Handler) HandleEvent(ctx context.Context, event store.Event) error {
	switch event.EventType {
	case order.EventOrderPaid:
		return h.handleOrderPaid(event)
	default:
		return nil
	}
}

func (h *Handler) handleOrderPaid(event store.Event) error {
	var e order.OrderPaid
	if err := json.Unmarshal(event.Data, &e); err != nil {
		return fmt.Errorf("decode %s: %w", event.EventType, err)
	}

	log := h.logger.With(zap.String("order_id", e.OrderID))
	if e.BuyerEmail == "" {
		log.Info("no buyer email, skipping confirmation")
		return nil
	}

	items := make([]email.OrderItem, len(e.Lines))
	for i, line := range e.Lines {
		items[i] = email.OrderItem{
			ProductID: line.ProductID,
			Name:      line.ProductName,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		}
	}

	summary := email.OrderSummary{
		OrderID:    e.OrderID,
		BuyerName:  e.BuyerName,
		Items:      items,
		CouponCode: e.CouponCode,
		Subtotal:   e.Subtotal,
		Discount:   e.Discount,
		Total:      e.Total,
	}
	if err := h.sender.SendOrderConfirmation(e.BuyerEmail, summary); err != nil {
		log.Error("send order confirmation failed", zap.Error(err))
		return err
	}

	log.Info("order confirmation sent")
	return nil
}
