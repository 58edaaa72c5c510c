package store

import (
	"context"
	"database/sql"

	"checkout-service/internal/models"
)

// CreateOrderWithItems commits an order and all of its items in a single
// transaction. Partial orders are never observable: either everything lands
// or the transaction rolls back.
func (s *Store) CreateOrderWithItems(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	orderQuery := `
		INSERT INTO orders (user_id, total, status, shipping_address, phone_number, email, payment_method, payment_ref, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	row := tx.QueryRowxContext(ctx, orderQuery,
		order.UserID, order.Total, order.Status, order.ShippingAddress,
		order.PhoneNumber, order.Email, order.PaymentMethod, order.PaymentRef,
		order.IdempotencyKey)
	if err := row.Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return err
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, product_name, unit_price, image_ref, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	for i := range items {
		items[i].OrderID = order.ID
		if err := tx.GetContext(ctx, &items[i].ID, itemQuery,
			items[i].OrderID, items[i].ProductID, items[i].ProductName,
			items[i].UnitPrice, items[i].ImageRef, items[i].Quantity); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order by ID. Returns (nil, nil) when absent.
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByIdempotencyKey retrieves a user's order by idempotency key.
// Returns (nil, nil) when absent.
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, userID int64, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE user_id = $1 AND idempotency_key = $2", userID, key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrdersByUserID retrieves orders for a user, newest first
func (s *Store) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return orders, err
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// UpdateOrderStatus transitions an order's status, guarded by the expected
// current status so concurrent admin actions cannot clobber each other.
// Returns false when the order was not in fromStatus.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, fromStatus, toStatus string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		toStatus, orderID, fromStatus)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
