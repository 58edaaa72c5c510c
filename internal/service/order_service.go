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

// OrderStore is the persistence surface the order service needs.
type OrderStore interface {
	CreateOrderWithItems(ctx context.Context, order *models.Order, items []models.OrderItem) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, userID int64, key string) (*models.Order, error)
	GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, fromStatus, toStatus string) (bool, error)
}

// ProductBatchFinder resolves products in bulk, uncached, so order assembly
// always snapshots against current catalog prices.
type ProductBatchFinder interface {
	GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
}

// EventPublisher publishes order lifecycle events.
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
}

// OrderService assembles orders and serves order reads and status transitions.
type OrderService struct {
	store    OrderStore
	products ProductBatchFinder
	payments ConfirmationVerifier
	events   EventPublisher
	logger   *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store OrderStore, products ProductBatchFinder, payments ConfirmationVerifier, events EventPublisher) *OrderService {
	return &OrderService{
		store:    store,
		products: products,
		payments: payments,
		events:   events,
		logger:   util.GetLogger(),
	}
}

// ItemRequest is a (product, quantity) pair to order.
type ItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// ShippingInfo is the delivery contact captured on the order.
type ShippingInfo struct {
	Address string `json:"address" binding:"required"`
	Phone   string `json:"phone"`
	Email   string `json:"email" binding:"required,email"`
}

// AssembleOrderInput carries everything needed to turn an item list into an
// immutable order.
type AssembleOrderInput struct {
	Items          []ItemRequest
	Shipping       ShippingInfo
	PaymentMethod  string
	Confirmation   *PaymentConfirmation
	IdempotencyKey string
}

// Assemble converts an item list into an order with price-snapshotted line
// items and commits order plus items as one durable unit. Per-line prices are
// read from the catalog at this moment and never referenced again.
func (s *OrderService) Assemble(ctx context.Context, userID int64, in AssembleOrderInput) (*models.Order, []models.OrderItem, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Assemble")
	defer span.End()

	start := time.Now()
	defer func() {
		util.OrderAssemblyLatency.Observe(time.Since(start).Seconds())
	}()

	if len(in.Items) == 0 {
		return nil, nil, apperr.Validation("order has no items")
	}
	for _, item := range in.Items {
		if item.Quantity < 1 {
			return nil, nil, apperr.Validation("quantity must be at least 1 for product %d", item.ProductID)
		}
	}
	if in.Shipping.Address == "" {
		return nil, nil, apperr.Validation("shipping address is required")
	}
	if in.Shipping.Email == "" {
		return nil, nil, apperr.Validation("email is required")
	}

	if in.IdempotencyKey != "" {
		existing, err := s.store.GetOrderByIdempotencyKey(ctx, userID, in.IdempotencyKey)
		if err != nil {
			return nil, nil, apperr.Persistence(err, "failed to check idempotency")
		}
		if existing != nil {
			s.logger.Info("Duplicate order request detected",
				zap.String("idempotency_key", in.IdempotencyKey),
				zap.Int64("order_id", existing.ID))
			return s.withItems(ctx, existing)
		}
	}

	productMap, err := s.resolveProducts(ctx, in.Items)
	if err != nil {
		return nil, nil, err
	}

	items := make([]models.OrderItem, 0, len(in.Items))
	var total int64
	for _, req := range in.Items {
		product := productMap[req.ProductID]
		items = append(items, models.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			ImageRef:    product.ImageRef,
			Quantity:    req.Quantity,
		})
		total += product.Price * int64(req.Quantity)
	}

	status, err := s.resolveStatus(ctx, in.PaymentMethod, in.Confirmation, total)
	if err != nil {
		return nil, nil, err
	}

	order := &models.Order{
		UserID:          userID,
		Total:           total,
		Status:          status,
		ShippingAddress: in.Shipping.Address,
		PhoneNumber:     in.Shipping.Phone,
		Email:           in.Shipping.Email,
		PaymentMethod:   in.PaymentMethod,
		IdempotencyKey:  in.IdempotencyKey,
	}
	if in.Confirmation != nil {
		order.PaymentRef = in.Confirmation.Reference
	}

	if err := s.store.CreateOrderWithItems(ctx, order, items); err != nil {
		// A concurrent request with the same key may have won the insert.
		if in.IdempotencyKey != "" {
			existing, lookupErr := s.store.GetOrderByIdempotencyKey(ctx, userID, in.IdempotencyKey)
			if lookupErr == nil && existing != nil {
				return s.withItems(ctx, existing)
			}
		}
		return nil, nil, apperr.Persistence(err, "failed to create order")
	}

	util.OrdersPlacedTotal.WithLabelValues(order.PaymentMethod, order.Status).Inc()
	util.OrderTotalAmount.Observe(float64(order.Total))
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", userID),
		zap.Int64("total", order.Total),
		zap.String("status", order.Status))

	return order, items, nil
}

// resolveProducts loads every referenced product and fails if any is missing.
func (s *OrderService) resolveProducts(ctx context.Context, items []ItemRequest) (map[int64]models.Product, error) {
	ids := make([]int64, 0, len(items))
	seen := make(map[int64]bool, len(items))
	for _, item := range items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}

	products, err := s.products.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Persistence(err, "failed to load products")
	}

	productMap := make(map[int64]models.Product, len(products))
	for _, p := range products {
		productMap[p.ID] = p
	}
	for _, id := range ids {
		if _, ok := productMap[id]; !ok {
			return nil, apperr.NotFound("product %d not found", id)
		}
	}
	return productMap, nil
}

// resolveStatus decides the initial order status from the payment method.
func (s *OrderService) resolveStatus(ctx context.Context, method string, conf *PaymentConfirmation, total int64) (string, error) {
	switch method {
	case models.PaymentMethodCOD:
		return models.OrderStatusPending, nil
	case models.PaymentMethodCard:
		ok, err := s.payments.Verify(ctx, conf, total)
		if err != nil {
			return "", apperr.Persistence(err, "failed to verify payment confirmation")
		}
		if !ok {
			return "", apperr.Validation("payment not confirmed")
		}
		return models.OrderStatusPaid, nil
	default:
		return "", apperr.Validation("unsupported payment method %q", method)
	}
}

// FindByIdempotencyKey returns the order previously created with this key,
// or (nil, nil, nil) when none exists.
func (s *OrderService) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (*models.Order, []models.OrderItem, error) {
	order, err := s.store.GetOrderByIdempotencyKey(ctx, userID, key)
	if err != nil {
		return nil, nil, apperr.Persistence(err, "failed to check idempotency")
	}
	if order == nil {
		return nil, nil, nil
	}
	return s.withItems(ctx, order)
}

// GetOrder retrieves one of the user's orders. Foreign orders read as absent.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID int64) (*models.Order, []models.OrderItem, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, apperr.Persistence(err, "failed to load order")
	}
	if order == nil || order.UserID != userID {
		return nil, nil, apperr.NotFound("order %d not found", orderID)
	}
	return s.withItems(ctx, order)
}

// ListOrders retrieves the user's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	orders, err := s.store.GetOrdersByUserID(ctx, userID)
	if err != nil {
		return nil, apperr.Persistence(err, "failed to list orders")
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// statusTransitions lists the admin transitions allowed from each status.
var statusTransitions = map[string]map[string]bool{
	models.OrderStatusPending:    {models.OrderStatusProcessing: true, models.OrderStatusCancelled: true},
	models.OrderStatusPaid:       {models.OrderStatusProcessing: true, models.OrderStatusCancelled: true},
	models.OrderStatusProcessing: {models.OrderStatusShipped: true, models.OrderStatusCancelled: true},
	models.OrderStatusShipped:    {models.OrderStatusDelivered: true},
}

// UpdateStatus performs an admin status transition. The update is guarded by
// the observed current status, so two concurrent transitions cannot both win.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, toStatus string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, apperr.Persistence(err, "failed to load order")
	}
	if order == nil {
		return nil, apperr.NotFound("order %d not found", orderID)
	}

	if !statusTransitions[order.Status][toStatus] {
		return nil, apperr.Validation("cannot transition order from %q to %q", order.Status, toStatus)
	}

	updated, err := s.store.UpdateOrderStatus(ctx, orderID, order.Status, toStatus)
	if err != nil {
		return nil, apperr.Persistence(err, "failed to update order status")
	}
	if !updated {
		return nil, apperr.Conflict("order %d status changed concurrently", orderID)
	}

	event := &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderStatusChanged,
			Timestamp: time.Now(),
		},
		OrderID:    orderID,
		UserID:     order.UserID,
		FromStatus: order.Status,
		ToStatus:   toStatus,
	}
	if err := s.events.PublishOrderStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
	}

	order.Status = toStatus
	return order, nil
}

func (s *OrderService) withItems(ctx context.Context, order *models.Order) (*models.Order, []models.OrderItem, error) {
	items, err := s.store.GetOrderItemsByOrderID(ctx, order.ID)
	if err != nil {
		return nil, nil, apperr.Persistence(err, "failed to load order items")
	}
	return order, items, nil
}
