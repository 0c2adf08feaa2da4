package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sales-backend/config"
	"sales-backend/internal/models"
	"sales-backend/internal/service"
)

type fixture struct {
	router    *gin.Engine
	catalog   *service.CatalogService
	dealers   *service.DealerService
	orders    *service.OrderService
	inventory *service.InventoryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config.AppConfig = &config.Config{
		Defaults: config.DefaultsConfig{OrderPrefix: "ORD", SystemActor: "admin"},
	}

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
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

	inventory := service.NewInventoryService(db)
	catalog := service.NewCatalogService(db, inventory)
	dealers := service.NewDealerService(db)
	orders := service.NewOrderService(db, inventory, nil, "ORD", "admin")

	r := gin.New()
	api := r.Group("/api/v1")
	orderHandler := NewOrderHandler(orders)
	inventoryHandler := NewInventoryHandler(inventory)
	api.POST("/orders", orderHandler.Create)
	api.GET("/orders/:id", orderHandler.Get)
	api.POST("/orders/:id/confirm", orderHandler.Confirm)
	api.POST("/orders/:id/deliver", orderHandler.Deliver)
	api.DELETE("/orders/:id", orderHandler.Delete)
	api.PUT("/inventories/:product_id", inventoryHandler.SetQuantity)

	return &fixture{router: r, catalog: catalog, dealers: dealers, orders: orders, inventory: inventory}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestConfirmEndpointReportsShortages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	widget, err := f.catalog.CreateProduct(ctx, service.ProductInput{
		Name: "Widget", SKU: "WID-001", Price: decimal.RequireFromString("19.99"),
	}, 3, "admin")
	require.NoError(t, err)
	dealer, err := f.dealers.Create(ctx, service.DealerInput{Name: "Acme", Email: "acme@example.com"})
	require.NoError(t, err)

	order, err := f.orders.Create(ctx, dealer.ID, []service.ItemSpec{{ProductID: widget.ID, Quantity: 5}})
	require.NoError(t, err)

	w := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/confirm", order.ID), nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Error   string                  `json:"error"`
		Details []service.StockShortage `json:"details"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Insufficient stock", resp.Error)
	require.Len(t, resp.Details, 1)
	assert.Equal(t, service.StockShortage{Product: "Widget", Available: 3, Requested: 5}, resp.Details[0])
}

func TestOrderEndpointsMapErrorsToStatusCodes(t *testing.T) {
	f := newFixture(t)

	// Unknown order id.
	w := f.do(t, http.MethodGet, "/api/v1/orders/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Non-numeric id.
	w = f.do(t, http.MethodGet, "/api/v1/orders/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Unknown dealer on create.
	w = f.do(t, http.MethodPost, "/api/v1/orders", gin.H{"dealer_id": 123, "items": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetInventoryQuantityEndpoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	widget, err := f.catalog.CreateProduct(ctx, service.ProductInput{
		Name: "Widget", SKU: "WID-001", Price: decimal.RequireFromString("19.99"),
	}, 10, "admin")
	require.NoError(t, err)

	w := f.do(t, http.MethodPut, fmt.Sprintf("/api/v1/inventories/%d", widget.ID), gin.H{"quantity": 4})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		NewStock int `json:"new_stock"`
		Change   int `json:"change"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.NewStock)
	assert.Equal(t, -6, resp.Change)

	// Missing quantity field.
	w = f.do(t, http.MethodPut, fmt.Sprintf("/api/v1/inventories/%d", widget.ID), gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Negative target.
	w = f.do(t, http.MethodPut, fmt.Sprintf("/api/v1/inventories/%d", widget.ID), gin.H{"quantity": -2})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
