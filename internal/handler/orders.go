package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"sales-backend/internal/service"
)

type OrderHandler struct {
	orders *service.OrderService
}

func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type OrderItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,gt=0"`
}

type CreateOrderRequest struct {
	DealerID uint               `json:"dealer_id" binding:"required"`
	Items    []OrderItemRequest `json:"items"`
}

type UpdateOrderRequest struct {
	DealerID *uint               `json:"dealer_id"`
	Items    *[]OrderItemRequest `json:"items"`
}

func toItemSpecs(reqs []OrderItemRequest) []service.ItemSpec {
	specs := make([]service.ItemSpec, 0, len(reqs))
	for _, r := range reqs {
		specs = append(specs, service.ItemSpec{ProductID: r.ProductID, Quantity: r.Quantity})
	}
	return specs
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.Create(c.Request.Context(), req.DealerID, toItemSpecs(req.Items))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) List(c *gin.Context) {
	filter := service.OrderFilter{Status: c.Query("status")}

	if dealerID := c.Query("dealer_id"); dealerID != "" {
		id, err := strconv.ParseUint(dealerID, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dealer_id must be a positive integer"})
			return
		}
		filter.DealerID = uint(id)
	}

	if from := c.Query("created_from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "created_from must be YYYY-MM-DD"})
			return
		}
		filter.CreatedFrom = t
	}
	if to := c.Query("created_to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "created_to must be YYYY-MM-DD"})
			return
		}
		// Inclusive upper bound: extend to end of day.
		filter.CreatedTo = t.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
	}

	orders, err := h.orders.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	order, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := service.UpdateOrderInput{DealerID: req.DealerID}
	if req.Items != nil {
		specs := toItemSpecs(*req.Items)
		input.Items = &specs
	}

	order, err := h.orders.Update(c.Request.Context(), id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.orders.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *OrderHandler) Confirm(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	order, err := h.orders.Confirm(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order confirmed", "order": order})
}

func (h *OrderHandler) Deliver(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	order, err := h.orders.Deliver(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order delivered", "order": order})
}
