package service

import (
	"context"
	"sync"
	"testing"

	"checkout-service/internal/apperr"
	"checkout-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCartFixture() (*CartService, *fakeCartStore, *fakeProducts) {
	products := newFakeProducts(
		models.Product{ID: 1, Name: "keyboard", Price: 100, ImageRef: "kb.png"},
		models.Product{ID: 2, Name: "mouse", Price: 50, ImageRef: "m.png"},
	)
	store := newFakeCartStore(products.products)
	return NewCartService(store, products), store, products
}

func TestAddItemCreatesRow(t *testing.T) {
	svc, _, _ := newCartFixture()
	ctx := context.Background()

	view, err := svc.AddItem(ctx, 7, 1, 2)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, int64(1), view.Items[0].ProductID)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.Equal(t, int64(200), view.Total)
}

func TestAddItemIncrementsExistingRow(t *testing.T) {
	svc, _, _ := newCartFixture()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 7, 1, 2)
	require.NoError(t, err)

	view, err := svc.AddItem(ctx, 7, 1, 3)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 5, view.Items[0].Quantity)
}

func TestAddItemRejectsBadQuantity(t *testing.T) {
	svc, store, _ := newCartFixture()
	ctx := context.Background()

	for _, qty := range []int{0, -1} {
		_, err := svc.AddItem(ctx, 7, 1, qty)
		assert.True(t, apperr.IsValidation(err))
	}
	assert.Empty(t, store.items)
}

func TestAddItemUnknownProduct(t *testing.T) {
	svc, _, _ := newCartFixture()

	_, err := svc.AddItem(context.Background(), 7, 999, 1)
	assert.True(t, apperr.IsNotFound(err))
}

func TestConcurrentAddsConvergeToOneRow(t *testing.T) {
	svc, store, _ := newCartFixture()
	ctx := context.Background()

	const callers = 50
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.AddItem(ctx, 7, 1, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	lines, err := store.ListCartLines(ctx, 7)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, callers, lines[0].Quantity)
}

func TestSetQuantityRejectsZeroAndNegative(t *testing.T) {
	svc, store, _ := newCartFixture()
	ctx := context.Background()

	view, err := svc.AddItem(ctx, 7, 1, 2)
	require.NoError(t, err)
	itemID := view.Items[0].ItemID

	for _, qty := range []int{0, -3} {
		_, err := svc.SetQuantity(ctx, 7, itemID, qty)
		assert.True(t, apperr.IsValidation(err))
	}

	// Row unchanged.
	item, err := store.GetCartItemForUser(ctx, itemID, 7)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, 2, item.Quantity)
}

func TestSetQuantityForeignItem(t *testing.T) {
	svc, _, _ := newCartFixture()
	ctx := context.Background()

	view, err := svc.AddItem(ctx, 7, 1, 2)
	require.NoError(t, err)

	_, err = svc.SetQuantity(ctx, 8, view.Items[0].ItemID, 3)
	assert.True(t, apperr.IsNotFound(err))
}

func TestRemoveItem(t *testing.T) {
	svc, _, _ := newCartFixture()
	ctx := context.Background()

	view, err := svc.AddItem(ctx, 7, 1, 2)
	require.NoError(t, err)

	view, err = svc.RemoveItem(ctx, 7, view.Items[0].ItemID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	_, err = svc.RemoveItem(ctx, 7, 999)
	assert.True(t, apperr.IsNotFound(err))
}

func TestClearIsIdempotent(t *testing.T) {
	svc, _, _ := newCartFixture()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 7, 1, 2)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, 7))
	require.NoError(t, svc.Clear(ctx, 7)) // empty cart: no-op, not an error

	view, err := svc.List(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Zero(t, view.Total)
}

func TestListTotalsCurrentPrices(t *testing.T) {
	svc, _, _ := newCartFixture()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 7, 1, 2)
	require.NoError(t, err)
	view, err := svc.AddItem(ctx, 7, 2, 1)
	require.NoError(t, err)

	assert.Equal(t, int64(2*100+1*50), view.Total)
	assert.Len(t, view.Items, 2)
}
