package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sales-backend/config"
	"sales-backend/internal/service"
)

type InventoryHandler struct {
	inventory *service.InventoryService
}

func NewInventoryHandler(inventory *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventory: inventory}
}

// Quantity is a pointer so an explicit zero still passes the required check.
type UpdateInventoryRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func (h *InventoryHandler) List(c *gin.Context) {
	inventories, err := h.inventory.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inventories)
}

func (h *InventoryHandler) Get(c *gin.Context) {
	productID, ok := parseID(c, "product_id")
	if !ok {
		return
	}

	inv, err := h.inventory.GetByProductID(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// SetQuantity moves the product's stock to an absolute level. The delta is
// ledgered as a manual adjustment.
func (h *InventoryHandler) SetQuantity(c *gin.Context) {
	productID, ok := parseID(c, "product_id")
	if !ok {
		return
	}

	var req UpdateInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity field is required and must be an integer"})
		return
	}

	inv, change, err := h.inventory.SetQuantity(c.Request.Context(), productID, *req.Quantity, config.AppConfig.Defaults.SystemActor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Inventory updated successfully",
		"new_stock": inv.Quantity,
		"change":    change,
	})
}
