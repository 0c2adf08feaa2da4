package service

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sales-backend/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps the in-memory database alive for the whole
	// test and serializes concurrent transactions the way a server-side
	// database would.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Product{},
		&models.Inventory{},
		&models.InventoryAdjustment{},
		&models.Dealer{},
		&models.Order{},
		&models.OrderItem{},
	))
	return db
}

type testEnv struct {
	db        *gorm.DB
	inventory *InventoryService
	catalog   *CatalogService
	dealers   *DealerService
	orders    *OrderService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	inventory := NewInventoryService(db)
	return &testEnv{
		db:        db,
		inventory: inventory,
		catalog:   NewCatalogService(db, inventory),
		dealers:   NewDealerService(db),
		orders:    NewOrderService(db, inventory, nil, "ORD", "tester"),
	}
}

func (e *testEnv) seedProduct(t *testing.T, name, sku, price string, stock int) *models.Product {
	t.Helper()

	product, err := e.catalog.CreateProduct(context.Background(), ProductInput{
		Name:  name,
		SKU:   sku,
		Price: decimal.RequireFromString(price),
	}, stock, "tester")
	require.NoError(t, err)
	return product
}

func (e *testEnv) seedDealer(t *testing.T, name, email string) *models.Dealer {
	t.Helper()

	dealer, err := e.dealers.Create(context.Background(), DealerInput{
		Name:    name,
		Email:   email,
		Phone:   "555-0100",
		Address: "12 Depot Road",
	})
	require.NoError(t, err)
	return dealer
}

func (e *testEnv) stockOf(t *testing.T, productID uint) int {
	t.Helper()

	inv, err := e.inventory.GetByProductID(context.Background(), productID)
	require.NoError(t, err)
	return inv.Quantity
}

func (e *testEnv) adjustments(t *testing.T, inventoryID uint) []models.InventoryAdjustment {
	t.Helper()

	var adjustments []models.InventoryAdjustment
	require.NoError(t, e.db.Where("inventory_id = ?", inventoryID).Order("id").Find(&adjustments).Error)
	return adjustments
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}
