package store

import (
	"context"
	"database/sql"

	"checkout-service/internal/models"
)

// UpsertCartItem inserts a cart row or adds quantity to the existing live row.
// The ON CONFLICT target is the partial unique index over live rows, so the
// insert-or-increment is a single atomic statement and concurrent calls for
// the same (user, product) pair converge on one row with the summed quantity.
func (s *Store) UpsertCartItem(ctx context.Context, userID, productID int64, quantity int) (*models.CartItem, error) {
	query := `
		INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id) WHERE deleted_at IS NULL
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()
		RETURNING id, user_id, product_id, quantity, created_at, updated_at, deleted_at`

	var item models.CartItem
	if err := s.db.GetContext(ctx, &item, query, userID, productID, quantity); err != nil {
		return nil, err
	}
	return &item, nil
}

// GetCartItemForUser retrieves a live cart item owned by the user.
// Returns (nil, nil) when the row is absent, soft-deleted, or owned by
// someone else; the caller treats all three the same way.
func (s *Store) GetCartItemForUser(ctx context.Context, itemID, userID int64) (*models.CartItem, error) {
	var item models.CartItem
	err := s.db.GetContext(ctx, &item,
		"SELECT * FROM cart_items WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL", itemID, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateCartItemQuantity sets the quantity of a live cart item.
// Returns false when no live row matched.
func (s *Store) UpdateCartItemQuantity(ctx context.Context, itemID int64, quantity int) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE cart_items SET quantity = $1, updated_at = NOW() WHERE id = $2 AND deleted_at IS NULL",
		quantity, itemID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SoftDeleteCartItem marks a live cart item as deleted.
// Returns false when no live row matched.
func (s *Store) SoftDeleteCartItem(ctx context.Context, itemID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE cart_items SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL",
		itemID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ClearCart soft-deletes all live cart items for a user. A no-op on an
// already-empty cart.
func (s *Store) ClearCart(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE cart_items SET deleted_at = NOW(), updated_at = NOW() WHERE user_id = $1 AND deleted_at IS NULL",
		userID)
	return err
}

// ListCartLines retrieves a user's live cart items joined with the current
// product name, price and image.
func (s *Store) ListCartLines(ctx context.Context, userID int64) ([]models.CartLine, error) {
	query := `
		SELECT ci.id AS item_id, ci.product_id, p.name, p.price, p.image_ref, ci.quantity
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1 AND ci.deleted_at IS NULL
		ORDER BY ci.id`

	var lines []models.CartLine
	err := s.db.SelectContext(ctx, &lines, query, userID)
	return lines, err
}
