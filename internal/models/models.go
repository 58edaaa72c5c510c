package models

import "time"

// Product represents a product in the catalog. The cart and order code only
// ever reads products; mutation belongs to the admin surface.
type Product struct {
	ID            int64     `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Price         int64     `db:"price" json:"price"`
	Stock         int       `db:"stock" json:"stock"`
	CategoryID    int64     `db:"category_id" json:"category_id"`
	SubcategoryID int64     `db:"subcategory_id" json:"subcategory_id"`
	ImageRef      string    `db:"image_ref" json:"image_ref"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// CartItem is one (user, product) row in a cart. At most one live row exists
// per pair; soft-deleted rows are excluded from the uniqueness constraint.
type CartItem struct {
	ID        int64      `db:"id" json:"id"`
	UserID    int64      `db:"user_id" json:"user_id"`
	ProductID int64      `db:"product_id" json:"product_id"`
	Quantity  int        `db:"quantity" json:"quantity"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`
}

// CartLine is a cart item joined with the current product snapshot. It exists
// for display only and is never used for order pricing.
type CartLine struct {
	ItemID    int64  `db:"item_id" json:"id"`
	ProductID int64  `db:"product_id" json:"product_id"`
	Name      string `db:"name" json:"name"`
	Price     int64  `db:"price" json:"price"`
	ImageRef  string `db:"image_ref" json:"image_ref"`
	Quantity  int    `db:"quantity" json:"quantity"`
}

// Order represents a placed order. Immutable after creation except for status.
type Order struct {
	ID              int64     `db:"id" json:"id"`
	UserID          int64     `db:"user_id" json:"user_id"`
	Total           int64     `db:"total" json:"total"`
	Status          string    `db:"status" json:"status"`
	ShippingAddress string    `db:"shipping_address" json:"shipping_address"`
	PhoneNumber     string    `db:"phone_number" json:"phone_number"`
	Email           string    `db:"email" json:"email"`
	PaymentMethod   string    `db:"payment_method" json:"payment_method"`
	PaymentRef      string    `db:"payment_ref" json:"payment_ref,omitempty"`
	IdempotencyKey  string    `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// OrderItem snapshots product id, name, unit price and image at order time, so
// historical orders are unaffected by later catalog edits or deletions.
type OrderItem struct {
	ID          int64  `db:"id" json:"id"`
	OrderID     int64  `db:"order_id" json:"order_id"`
	ProductID   int64  `db:"product_id" json:"product_id"`
	ProductName string `db:"product_name" json:"product_name"`
	UnitPrice   int64  `db:"unit_price" json:"unit_price"`
	ImageRef    string `db:"image_ref" json:"image_ref"`
	Quantity    int    `db:"quantity" json:"quantity"`
}

// Order statuses
const (
	OrderStatusPending    = "pending"
	OrderStatusPaid       = "paid"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// Payment methods
const (
	PaymentMethodCOD  = "cod"
	PaymentMethodCard = "card"
)
