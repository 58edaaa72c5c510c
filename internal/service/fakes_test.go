package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"checkout-service/internal/models"
)

// fakeCartStore is an in-memory CartStore. Its upsert holds a lock across the
// find-and-increment, mirroring the atomicity of the database upsert.
type fakeCartStore struct {
	mu         sync.Mutex
	nextID     int64
	items      map[int64]*models.CartItem
	catalog    map[int64]models.Product
	failClear  bool
	clearCalls int
}

func newFakeCartStore(catalog map[int64]models.Product) *fakeCartStore {
	return &fakeCartStore{
		items:   make(map[int64]*models.CartItem),
		catalog: catalog,
	}
}

func (f *fakeCartStore) UpsertCartItem(ctx context.Context, userID, productID int64, quantity int) (*models.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, it := range f.items {
		if it.UserID == userID && it.ProductID == productID {
			it.Quantity += quantity
			cp := *it
			return &cp, nil
		}
	}

	f.nextID++
	item := &models.CartItem{
		ID:        f.nextID,
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.items[item.ID] = item
	cp := *item
	return &cp, nil
}

func (f *fakeCartStore) GetCartItemForUser(ctx context.Context, itemID, userID int64) (*models.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	it, ok := f.items[itemID]
	if !ok || it.UserID != userID {
		return nil, nil
	}
	cp := *it
	return &cp, nil
}

func (f *fakeCartStore) UpdateCartItemQuantity(ctx context.Context, itemID int64, quantity int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	it, ok := f.items[itemID]
	if !ok {
		return false, nil
	}
	it.Quantity = quantity
	return true, nil
}

func (f *fakeCartStore) SoftDeleteCartItem(ctx context.Context, itemID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.items[itemID]; !ok {
		return false, nil
	}
	delete(f.items, itemID)
	return true, nil
}

func (f *fakeCartStore) ClearCart(ctx context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.clearCalls++
	if f.failClear {
		return errors.New("simulated clear failure")
	}
	for id, it := range f.items {
		if it.UserID == userID {
			delete(f.items, id)
		}
	}
	return nil
}

func (f *fakeCartStore) ListCartLines(ctx context.Context, userID int64) ([]models.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var lines []models.CartLine
	for _, it := range f.items {
		if it.UserID != userID {
			continue
		}
		p := f.catalog[it.ProductID]
		lines = append(lines, models.CartLine{
			ItemID:    it.ID,
			ProductID: it.ProductID,
			Name:      p.Name,
			Price:     p.Price,
			ImageRef:  p.ImageRef,
			Quantity:  it.Quantity,
		})
	}
	return lines, nil
}

// fakeProducts serves both the single-product reader and the batch finder.
type fakeProducts struct {
	mu       sync.Mutex
	products map[int64]models.Product
}

func newFakeProducts(products ...models.Product) *fakeProducts {
	m := make(map[int64]models.Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return &fakeProducts{products: m}
}

func (f *fakeProducts) setPrice(productID, price int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.products[productID]
	p.Price = price
	f.products[productID] = p
}

func (f *fakeProducts) ProductByID(ctx context.Context, productID int64) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeProducts) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// fakeOrderStore is an in-memory OrderStore.
type fakeOrderStore struct {
	mu           sync.Mutex
	nextID       int64
	orders       map[int64]*models.Order
	itemsByOrder map[int64][]models.OrderItem
	failCreate   bool
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{
		orders:       make(map[int64]*models.Order),
		itemsByOrder: make(map[int64][]models.OrderItem),
	}
}

func (f *fakeOrderStore) CreateOrderWithItems(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failCreate {
		return errors.New("simulated create failure")
	}
	if order.IdempotencyKey != "" {
		for _, o := range f.orders {
			if o.UserID == order.UserID && o.IdempotencyKey == order.IdempotencyKey {
				return errors.New("duplicate key value violates unique constraint")
			}
		}
	}

	f.nextID++
	order.ID = f.nextID
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt

	stored := *order
	f.orders[order.ID] = &stored
	for i := range items {
		items[i].OrderID = order.ID
		items[i].ID = int64(i + 1)
	}
	f.itemsByOrder[order.ID] = append([]models.OrderItem(nil), items...)
	return nil
}

func (f *fakeOrderStore) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderStore) GetOrderByIdempotencyKey(ctx context.Context, userID int64, key string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.UserID == userID && o.IdempotencyKey == key {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeOrderStore) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrderStore) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.OrderItem(nil), f.itemsByOrder[orderID]...), nil
}

func (f *fakeOrderStore) UpdateOrderStatus(ctx context.Context, orderID int64, fromStatus, toStatus string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok || o.Status != fromStatus {
		return false, nil
	}
	o.Status = toStatus
	return true, nil
}

// fakePublisher records published events.
type fakePublisher struct {
	mu            sync.Mutex
	placed        []*models.OrderPlacedEvent
	statusChanged []*models.OrderStatusChangedEvent
	failPublish   bool
}

func (f *fakePublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPublish {
		return errors.New("simulated publish failure")
	}
	f.placed = append(f.placed, event)
	return nil
}

func (f *fakePublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPublish {
		return errors.New("simulated publish failure")
	}
	f.statusChanged = append(f.statusChanged, event)
	return nil
}
