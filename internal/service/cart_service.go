package service

import (
	"context"

	"checkout-service/internal/apperr"
	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// CartStore is the persistence surface the cart service needs.
type CartStore interface {
	UpsertCartItem(ctx context.Context, userID, productID int64, quantity int) (*models.CartItem, error)
	GetCartItemForUser(ctx context.Context, itemID, userID int64) (*models.CartItem, error)
	UpdateCartItemQuantity(ctx context.Context, itemID int64, quantity int) (bool, error)
	SoftDeleteCartItem(ctx context.Context, itemID int64) (bool, error)
	ClearCart(ctx context.Context, userID int64) error
	ListCartLines(ctx context.Context, userID int64) ([]models.CartLine, error)
}

// ProductReader resolves product snapshots for cart validation and display.
type ProductReader interface {
	ProductByID(ctx context.Context, productID int64) (*models.Product, error)
}

// CartService handles cart business logic
type CartService struct {
	store   CartStore
	catalog ProductReader
	logger  *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(store CartStore, catalog ProductReader) *CartService {
	return &CartService{
		store:   store,
		catalog: catalog,
		logger:  util.GetLogger(),
	}
}

// CartView is the display representation of a cart. The total here reflects
// current catalog prices and is never used for order pricing.
type CartView struct {
	Items []models.CartLine `json:"items"`
	Total int64             `json:"total"`
}

// AddItem creates a cart row for (user, product) or atomically increments the
// existing row's quantity. Concurrent adds for the same pair converge on a
// single row via the store's upsert.
func (s *CartService) AddItem(ctx context.Context, userID, productID int64, quantity int) (CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddItem")
	defer span.End()

	if quantity < 1 {
		return CartView{}, apperr.Validation("quantity must be at least 1")
	}

	product, err := s.catalog.ProductByID(ctx, productID)
	if err != nil {
		return CartView{}, apperr.Persistence(err, "failed to look up product")
	}
	if product == nil {
		return CartView{}, apperr.NotFound("product %d not found", productID)
	}

	item, err := s.store.UpsertCartItem(ctx, userID, productID, quantity)
	if err != nil {
		return CartView{}, apperr.Persistence(err, "failed to upsert cart item")
	}

	util.CartItemsAddedTotal.Inc()
	s.logger.Info("Cart item upserted",
		zap.Int64("user_id", userID),
		zap.Int64("product_id", productID),
		zap.Int("quantity", item.Quantity))

	return s.List(ctx, userID)
}

// SetQuantity replaces the quantity of a cart item owned by the user.
func (s *CartService) SetQuantity(ctx context.Context, userID, itemID int64, quantity int) (CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.SetQuantity")
	defer span.End()

	if quantity < 1 {
		return CartView{}, apperr.Validation("quantity must be at least 1")
	}

	item, err := s.store.GetCartItemForUser(ctx, itemID, userID)
	if err != nil {
		return CartView{}, apperr.Persistence(err, "failed to look up cart item")
	}
	if item == nil {
		return CartView{}, apperr.NotFound("cart item %d not found", itemID)
	}

	updated, err := s.store.UpdateCartItemQuantity(ctx, itemID, quantity)
	if err != nil {
		return CartView{}, apperr.Persistence(err, "failed to update cart item")
	}
	if !updated {
		// Removed between the ownership check and the update.
		return CartView{}, apperr.NotFound("cart item %d not found", itemID)
	}

	return s.List(ctx, userID)
}

// RemoveItem deletes a cart item owned by the user.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID int64) (CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.RemoveItem")
	defer span.End()

	item, err := s.store.GetCartItemForUser(ctx, itemID, userID)
	if err != nil {
		return CartView{}, apperr.Persistence(err, "failed to look up cart item")
	}
	if item == nil {
		return CartView{}, apperr.NotFound("cart item %d not found", itemID)
	}

	deleted, err := s.store.SoftDeleteCartItem(ctx, itemID)
	if err != nil {
		return CartView{}, apperr.Persistence(err, "failed to delete cart item")
	}
	if !deleted {
		return CartView{}, apperr.NotFound("cart item %d not found", itemID)
	}

	util.CartItemsRemovedTotal.Inc()
	return s.List(ctx, userID)
}

// Clear removes every item from the user's cart. Clearing an empty cart is a
// no-op, not an error.
func (s *CartService) Clear(ctx context.Context, userID int64) error {
	ctx, span := util.StartSpan(ctx, "CartService.Clear")
	defer span.End()

	if err := s.store.ClearCart(ctx, userID); err != nil {
		return apperr.Persistence(err, "failed to clear cart")
	}
	return nil
}

// List returns the cart joined with current product snapshots, for display.
func (s *CartService) List(ctx context.Context, userID int64) (CartView, error) {
	lines, err := s.store.ListCartLines(ctx, userID)
	if err != nil {
		return CartView{}, apperr.Persistence(err, "failed to list cart")
	}

	view := CartView{Items: lines}
	if view.Items == nil {
		view.Items = []models.CartLine{}
	}
	for _, line := range lines {
		view.Total += line.Price * int64(line.Quantity)
	}
	return view, nil
}
