package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
	"github.com/dmehra2102/storefront/pkg/outbox"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

type Service struct {
	log  *slog.Logger
	repo OrderRepository
}

func NewService(log *slog.Logger, repo OrderRepository) *Service {
	return &Service{log: log, repo: repo}
}

// Checkout turns the user's cart into a pending order. Stock is taken, prices
// are captured, the cart is emptied and OrderPlaced is queued, all in one
// transaction. On any failure nothing changes.
func (s *Service) Checkout(ctx context.Context, userID string, attrs domain.CheckoutAttrs) (domain.Order, error) {
	if userID == "" {
		return domain.Order{}, fmt.Errorf("%w: checkout requires a user", apperr.ErrUnauthenticated)
	}
	address := strings.TrimSpace(attrs.ShippingAddress)
	if address == "" {
		return domain.Order{}, apperr.Validation("shipping_address is required")
	}

	var placed domain.Order
	err := s.repo.InTx(ctx, func(tx Tx) error {
		cartID, err := tx.LockCart(ctx, userID)
		if err != nil {
			return err
		}
		lines, err := tx.CartLines(ctx, cartID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return domain.ErrEmptyCart
		}

		order, err := tx.InsertOrder(ctx, domain.Order{
			ID:              uuid.NewString(),
			UserID:          userID,
			Status:          domain.StatusPending,
			ShippingAddress: address,
		})
		if err != nil {
			return err
		}

		items := make([]domain.OrderItem, 0, len(lines))
		for _, line := range lines {
			snap, err := tx.ReserveStock(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return fmt.Errorf("product %d: %w", line.ProductID, err)
			}
			items = append(items, domain.OrderItem{
				ProductID:   line.ProductID,
				ProductName: snap.Name,
				Quantity:    line.Quantity,
				UnitPrice:   snap.Price,
			})
		}

		if order.Items, err = tx.InsertItems(ctx, order.ID, items); err != nil {
			return err
		}
		order.TotalPrice = domain.Total(order.Items)
		if err := tx.SetTotal(ctx, order.ID, order.TotalPrice); err != nil {
			return err
		}
		if err := tx.ClearCart(ctx, cartID); err != nil {
			return err
		}

		if err := s.appendEvent(ctx, tx, order.ID, domain.EventOrderPlaced, domain.OrderPlaced{
			OrderID: order.ID,
			UserID:  userID,
			Total:   order.TotalPrice,
			Items:   domain.EventItems(order.Items),
		}); err != nil {
			return err
		}
		placed = order
		return nil
	})
	if err != nil {
		return domain.Order{}, checkoutError(err)
	}

	s.log.InfoContext(ctx, "order placed", "order_id", placed.ID, "user_id", userID, "items", len(placed.Items), "total", placed.TotalPrice.StringFixed(2))
	return placed, nil
}

func (s *Service) ListMine(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) Get(ctx context.Context, userID, orderID string) (domain.Order, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return s.repo.Get(ctx, userID, orderID)
}

// ChangeStatus moves an order along its lifecycle. Cancelling puts the stock
// taken at checkout back.
func (s *Service) ChangeStatus(ctx context.Context, userID, orderID string, next domain.OrderStatus) (domain.Order, error) {
	if !next.Valid() {
		return domain.Order{}, apperr.Validation("unknown status %q", next)
	}
	if _, err := uuid.Parse(orderID); err != nil {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	var updated domain.Order
	err := s.repo.InTx(ctx, func(tx Tx) error {
		current, err := tx.LockOrder(ctx, userID, orderID)
		if err != nil {
			return err
		}
		if !current.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current.Status, next)
		}

		if next == domain.StatusCancelled {
			for _, it := range current.Items {
				if err := tx.Restock(ctx, it.ProductID, it.Quantity); err != nil {
					return err
				}
			}
		}
		if updated, err = tx.SetStatus(ctx, orderID, next); err != nil {
			return err
		}
		updated.Items = current.Items

		return s.appendEvent(ctx, tx, orderID, domain.EventOrderStatusChanged, domain.OrderStatusChanged{
			OrderID: orderID,
			UserID:  userID,
			From:    current.Status,
			To:      next,
			Items:   domain.EventItems(current.Items),
		})
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.log.InfoContext(ctx, "order status changed", "order_id", orderID, "status", next)
	return updated, nil
}

func (s *Service) appendEvent(ctx context.Context, tx Tx, orderID, eventType string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return tx.AppendEvent(ctx, outbox.Message{
		AggregateType: domain.AggregateOrder,
		AggregateID:   orderID,
		Type:          eventType,
		Payload:       payload,
		Headers:       map[string]string{"source": "storefront"},
		Traceparent:   tracing.Traceparent(ctx),
	})
}

// checkoutError keeps domain outcomes as they are and marks everything else
// as a failed checkout.
func checkoutError(err error) error {
	for _, kind := range []error{apperr.ErrValidation, apperr.ErrNotFound, apperr.ErrConflict, apperr.ErrUnprocessable, apperr.ErrUnauthenticated} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", domain.ErrCheckoutFailed, err)
}
