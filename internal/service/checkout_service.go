package service

import (
	"context"
	"time"

	"checkout-service/internal/apperr"
	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CartAccess is the slice of the cart store the orchestrator needs: the
// current contents, and a clear after commit.
type CartAccess interface {
	ListCartLines(ctx context.Context, userID int64) ([]models.CartLine, error)
	ClearCart(ctx context.Context, userID int64) error
}

// orderAssembler is satisfied by *OrderService.
type orderAssembler interface {
	Assemble(ctx context.Context, userID int64, in AssembleOrderInput) (*models.Order, []models.OrderItem, error)
	FindByIdempotencyKey(ctx context.Context, userID int64, key string) (*models.Order, []models.OrderItem, error)
}

// IdempotencyCache is an optional fast-path marker for seen checkout keys.
// The durable idempotency guarantee lives in the orders table.
type IdempotencyCache interface {
	SeenIdempotencyKey(ctx context.Context, key string) (bool, error)
	MarkIdempotencyKey(ctx context.Context, key string, orderID int64, ttl time.Duration) error
}

// CheckoutService orchestrates cart read, order assembly and post-commit
// cart clearing.
type CheckoutService struct {
	carts     CartAccess
	assembler orderAssembler
	events    EventPublisher
	idem      IdempotencyCache
	idemTTL   time.Duration
	logger    *zap.Logger
}

// NewCheckoutService creates a new checkout service. idem may be nil.
func NewCheckoutService(carts CartAccess, assembler orderAssembler, events EventPublisher, idem IdempotencyCache, idemTTL time.Duration) *CheckoutService {
	return &CheckoutService{
		carts:     carts,
		assembler: assembler,
		events:    events,
		idem:      idem,
		idemTTL:   idemTTL,
		logger:    util.GetLogger(),
	}
}

// CheckoutInput carries shipping and payment details for a checkout.
type CheckoutInput struct {
	Shipping       ShippingInfo
	PaymentMethod  string
	Confirmation   *PaymentConfirmation
	IdempotencyKey string
}

// Checkout turns the user's cart into an order. Any failure before the order
// commit aborts with no side effects. After the commit only the cart clear
// can fail, and that failure is logged and suppressed: the order is the
// durable source of truth and the clear can be reconciled later.
func (s *CheckoutService) Checkout(ctx context.Context, userID int64, in CheckoutInput) (*models.Order, []models.OrderItem, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Checkout")
	defer span.End()

	if in.IdempotencyKey == "" {
		in.IdempotencyKey = uuid.New().String()
	} else {
		// Replays must short-circuit before the empty-cart check: the first
		// attempt already cleared the cart.
		if s.idem != nil {
			if seen, err := s.idem.SeenIdempotencyKey(ctx, in.IdempotencyKey); err == nil && seen {
				s.logger.Info("Checkout replay detected via cache",
					zap.String("idempotency_key", in.IdempotencyKey))
			}
		}
		order, items, err := s.assembler.FindByIdempotencyKey(ctx, userID, in.IdempotencyKey)
		if err != nil {
			return nil, nil, err
		}
		if order != nil {
			return order, items, nil
		}
	}

	lines, err := s.carts.ListCartLines(ctx, userID)
	if err != nil {
		util.CheckoutsFailedTotal.WithLabelValues("cart_read").Inc()
		return nil, nil, apperr.Persistence(err, "failed to read cart")
	}
	if len(lines) == 0 {
		util.CheckoutsFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, nil, apperr.Validation("cart is empty")
	}

	items := make([]ItemRequest, 0, len(lines))
	for _, line := range lines {
		items = append(items, ItemRequest{ProductID: line.ProductID, Quantity: line.Quantity})
	}

	order, orderItems, err := s.assembler.Assemble(ctx, userID, AssembleOrderInput{
		Items:          items,
		Shipping:       in.Shipping,
		PaymentMethod:  in.PaymentMethod,
		Confirmation:   in.Confirmation,
		IdempotencyKey: in.IdempotencyKey,
	})
	if err != nil {
		util.CheckoutsFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, nil, err
	}

	// The order is committed. Nothing below may fail the checkout.
	if err := s.carts.ClearCart(ctx, userID); err != nil {
		util.CartClearsFailedTotal.Inc()
		s.logger.Error("Failed to clear cart after checkout",
			zap.Int64("user_id", userID),
			zap.Int64("order_id", order.ID),
			zap.Error(err))
	}

	if s.idem != nil {
		if err := s.idem.MarkIdempotencyKey(ctx, in.IdempotencyKey, order.ID, s.idemTTL); err != nil {
			s.logger.Warn("Failed to mark idempotency key",
				zap.String("idempotency_key", in.IdempotencyKey),
				zap.Error(err))
		}
	}

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:       order.ID,
		UserID:        order.UserID,
		Total:         order.Total,
		Status:        order.Status,
		PaymentMethod: order.PaymentMethod,
		Email:         order.Email,
		Items:         toEventItems(orderItems),
	}
	if err := s.events.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event",
			zap.Int64("order_id", order.ID),
			zap.Error(err))
	}

	util.CheckoutsTotal.Inc()
	s.logger.Info("Checkout completed",
		zap.Int64("user_id", userID),
		zap.Int64("order_id", order.ID),
		zap.Int64("total", order.Total))

	return order, orderItems, nil
}

func toEventItems(items []models.OrderItem) []models.OrderItemData {
	out := make([]models.OrderItemData, 0, len(items))
	for _, it := range items {
		out = append(out, models.OrderItemData{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	return out
}

func failureReason(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return "validation"
	case apperr.KindNotFound:
		return "not_found"
	case apperr.KindConflict:
		return "conflict"
	default:
		return "persistence"
	}
}
