package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-backend/internal/models"
)

func TestCreateProductOwnsAnInventoryRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	widget := env.seedProduct(t, "Widget", "WID-001", "19.99", 7)

	inv, err := env.inventory.GetByProductID(ctx, widget.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, inv.Quantity)

	adjustments := env.adjustments(t, inv.ID)
	require.Len(t, adjustments, 1)
	assert.Equal(t, 7, adjustments[0].Change)
	assert.Equal(t, "Opening stock", adjustments[0].Reason)
}

func TestCreateProductWithoutOpeningStock(t *testing.T) {
	env := newTestEnv(t)

	widget := env.seedProduct(t, "Widget", "WID-001", "19.99", 0)

	inv, err := env.inventory.GetByProductID(context.Background(), widget.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, inv.Quantity)
	assert.Empty(t, env.adjustments(t, inv.ID), "zero opening stock needs no ledger entry")
}

func TestCreateProductRejectsDuplicateSKU(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedProduct(t, "Widget", "WID-001", "19.99", 0)

	_, err := env.catalog.CreateProduct(ctx, ProductInput{
		Name:  "Widget Clone",
		SKU:   "WID-001",
		Price: decimal.RequireFromString("9.99"),
	}, 0, "tester")

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "sku", vErr.Field)
}

func TestCreateProductRejectsNegativePrice(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.catalog.CreateProduct(context.Background(), ProductInput{
		Name:  "Widget",
		SKU:   "WID-001",
		Price: decimal.RequireFromString("-1.00"),
	}, 0, "tester")

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "price", vErr.Field)
}

func TestDeleteProductBlockedWhileReferenced(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	widget := env.seedProduct(t, "Widget", "WID-001", "19.99", 10)
	dealer := env.seedDealer(t, "Acme Trading", "acme@example.com")

	_, err := env.orders.Create(ctx, dealer.ID, []ItemSpec{{ProductID: widget.ID, Quantity: 1}})
	require.NoError(t, err)

	err = env.catalog.DeleteProduct(ctx, widget.ID)
	assert.ErrorIs(t, err, ErrProtectedReference)

	_, err = env.catalog.GetProduct(ctx, widget.ID)
	assert.NoError(t, err, "a blocked delete must leave the product in place")
}

func TestDeleteProductRemovesInventory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	widget := env.seedProduct(t, "Widget", "WID-001", "19.99", 10)

	require.NoError(t, env.catalog.DeleteProduct(ctx, widget.ID))

	_, err := env.catalog.GetProduct(ctx, widget.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.inventory.GetByProductID(ctx, widget.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var adjustments int64
	require.NoError(t, env.db.Model(&models.InventoryAdjustment{}).Count(&adjustments).Error)
	assert.Zero(t, adjustments)
}

func TestGetProductExposesCurrentStock(t *testing.T) {
	env := newTestEnv(t)

	widget := env.seedProduct(t, "Widget", "WID-001", "19.99", 10)

	product, err := env.catalog.GetProduct(context.Background(), widget.ID)
	require.NoError(t, err)
	require.NotNil(t, product.Inventory)
	assert.Equal(t, 10, product.Inventory.Quantity)
}
