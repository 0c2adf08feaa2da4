package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"sales-backend/internal/models"
)

const (
	reasonOrderConfirm = "order confirm"
	reasonOrderCancel  = "order cancel"

	orderNumberAttempts = 5
)

// OrderEventPublisher pushes order lifecycle notifications to a broker.
// Publishing is best-effort: the lifecycle engine never fails a committed
// transition because the broker is down.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, routingKey string, order *models.Order) error
}

type ItemSpec struct {
	ProductID uint
	Quantity  int
}

// OrderFilter narrows List results. Zero values mean "no constraint".
type OrderFilter struct {
	Status      string
	DealerID    uint
	CreatedFrom time.Time
	CreatedTo   time.Time
}

type UpdateOrderInput struct {
	DealerID *uint
	Items    *[]ItemSpec
}

// OrderService owns the order aggregate and its lifecycle state machine:
// DRAFT -> CONFIRMED -> DELIVERED, with deletion from DRAFT or CONFIRMED
// acting as cancellation.
type OrderService struct {
	db        *gorm.DB
	inventory *InventoryService
	events    OrderEventPublisher
	prefix    string
	actor     string
}

func NewOrderService(db *gorm.DB, inventory *InventoryService, events OrderEventPublisher, prefix, actor string) *OrderService {
	if prefix == "" {
		prefix = "ORD"
	}
	return &OrderService{db: db, inventory: inventory, events: events, prefix: prefix, actor: actor}
}

// Create opens a new DRAFT order. Unit prices are snapshotted from the
// product at this moment and never re-derived.
func (s *OrderService) Create(ctx context.Context, dealerID uint, items []ItemSpec) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dealer models.Dealer
		if err := tx.First(&dealer, dealerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &ValidationError{Field: "dealer_id", Message: fmt.Sprintf("dealer %d does not exist", dealerID)}
			}
			return err
		}

		number, err := s.generateOrderNumber(tx)
		if err != nil {
			return err
		}

		order = models.Order{
			OrderNumber: number,
			DealerID:    dealerID,
			Status:      models.OrderStatusDraft,
			TotalAmount: decimal.Zero,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		return s.replaceItems(tx, &order, items)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("order_number", order.OrderNumber).Uint("dealer_id", dealerID).Msg("Order created")
	return s.Get(ctx, order.ID)
}

func (s *OrderService) Get(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Dealer").
		Preload("Items").
		Preload("Items.Product").
		First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (s *OrderService) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	query := s.db.WithContext(ctx).
		Preload("Dealer").
		Preload("Items").
		Preload("Items.Product").
		Order("created_at desc")

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.DealerID != 0 {
		query = query.Where("dealer_id = ?", filter.DealerID)
	}
	if !filter.CreatedFrom.IsZero() {
		query = query.Where("created_at >= ?", filter.CreatedFrom)
	}
	if !filter.CreatedTo.IsZero() {
		query = query.Where("created_at <= ?", filter.CreatedTo)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Update reassigns the dealer and/or replaces the full item set. Both paths
// run through the single draft-only guard and recompute the total.
func (s *OrderService) Update(ctx context.Context, id uint, input UpdateOrderInput) (*models.Order, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := findOrder(tx, id)
		if err != nil {
			return err
		}
		if err := ensureEditable(order); err != nil {
			return err
		}

		if input.DealerID != nil {
			var dealer models.Dealer
			if err := tx.First(&dealer, *input.DealerID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &ValidationError{Field: "dealer_id", Message: fmt.Sprintf("dealer %d does not exist", *input.DealerID)}
				}
				return err
			}
			if err := tx.Model(order).Update("dealer_id", *input.DealerID).Error; err != nil {
				return err
			}
		}

		if input.Items != nil {
			return s.replaceItems(tx, order, *input.Items)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Confirm reserves stock for every line and advances DRAFT -> CONFIRMED. All
// lines are checked before anything is decremented, and the decrements plus
// the status flip commit as one transaction. Each decrement is additionally
// guarded at the row level, so a confirm racing this one fails cleanly
// instead of overselling.
func (s *OrderService) Confirm(ctx context.Context, id uint) (*models.Order, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := findOrder(tx, id)
		if err != nil {
			return err
		}
		if order.Status != models.OrderStatusDraft {
			return &InvalidTransitionError{Message: "Only draft orders can be confirmed."}
		}

		items, err := loadItemsForStock(tx, order.ID)
		if err != nil {
			return err
		}

		var shortages []StockShortage
		for _, item := range items {
			available := 0
			if item.Product.Inventory != nil {
				available = item.Product.Inventory.Quantity
			}
			if item.Quantity > available {
				shortages = append(shortages, StockShortage{
					Product:   item.Product.Name,
					Available: available,
					Requested: item.Quantity,
				})
			}
		}
		if len(shortages) > 0 {
			return &InsufficientStockError{Details: shortages}
		}

		for _, item := range items {
			if _, err := s.inventory.Adjust(tx, item.Product.Inventory.ID, -item.Quantity, reasonOrderConfirm, s.actor); err != nil {
				// A concurrent confirm drained this row between our read and
				// the guarded decrement. Surface it with the product named.
				var stockErr *InsufficientStockError
				if errors.As(err, &stockErr) {
					for i := range stockErr.Details {
						stockErr.Details[i].Product = item.Product.Name
					}
				}
				return err
			}
		}

		return tx.Model(order).Update("status", models.OrderStatusConfirmed).Error
	})
	if err != nil {
		return nil, err
	}

	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	log.Info().Str("order_number", order.OrderNumber).Msg("Order confirmed")
	s.publish(ctx, "order.confirmed", order)
	return order, nil
}

// Deliver advances CONFIRMED -> DELIVERED. No inventory effect.
func (s *OrderService) Deliver(ctx context.Context, id uint) (*models.Order, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := findOrder(tx, id)
		if err != nil {
			return err
		}
		if order.Status != models.OrderStatusConfirmed {
			return &InvalidTransitionError{Message: "Only confirmed orders can be delivered."}
		}
		return tx.Model(order).Update("status", models.OrderStatusDelivered).Error
	})
	if err != nil {
		return nil, err
	}

	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	log.Info().Str("order_number", order.OrderNumber).Msg("Order delivered")
	s.publish(ctx, "order.delivered", order)
	return order, nil
}

// Delete removes the order and its items. A CONFIRMED order has its stock
// restored through the ledger first; a DELIVERED order is removed without
// restoration, since delivered stock is consumed.
func (s *OrderService) Delete(ctx context.Context, id uint) error {
	var cancelled *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := findOrder(tx, id)
		if err != nil {
			return err
		}

		if order.Status == models.OrderStatusConfirmed {
			items, err := loadItemsForStock(tx, order.ID)
			if err != nil {
				return err
			}
			for _, item := range items {
				if item.Product.Inventory == nil {
					continue
				}
				if _, err := s.inventory.Adjust(tx, item.Product.Inventory.ID, item.Quantity, reasonOrderCancel, s.actor); err != nil {
					return err
				}
			}
			snapshot := *order
			snapshot.Items = items
			cancelled = &snapshot
		}

		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(order).Error
	})
	if err != nil {
		return err
	}

	if cancelled != nil {
		log.Info().Str("order_number", cancelled.OrderNumber).Msg("Confirmed order cancelled, stock restored")
		s.publish(ctx, "order.cancelled", cancelled)
	}
	return nil
}

// ensureEditable is the single draft-only guard shared by every mutating
// order path.
func ensureEditable(order *models.Order) error {
	if order.Status != models.OrderStatusDraft {
		return ErrOrderNotEditable
	}
	return nil
}

// replaceItems drops the current item set and rebuilds it from specs,
// snapshotting each unit price, then recomputes the order total. Duplicate
// product lines stay independent lines. Runs inside the caller's transaction.
func (s *OrderService) replaceItems(tx *gorm.DB, order *models.Order, specs []ItemSpec) error {
	if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}

	for _, spec := range specs {
		if spec.Quantity <= 0 {
			return &ValidationError{Field: "quantity", Message: "must be a positive integer"}
		}

		var product models.Product
		if err := tx.First(&product, spec.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &ValidationError{Field: "product_id", Message: fmt.Sprintf("product %d does not exist", spec.ProductID)}
			}
			return err
		}

		item := models.OrderItem{
			OrderID:   order.ID,
			ProductID: product.ID,
			Quantity:  spec.Quantity,
			UnitPrice: product.Price,
			LineTotal: product.Price.Mul(decimal.NewFromInt(int64(spec.Quantity))),
		}
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
	}

	return s.recalculateTotal(tx, order)
}

// recalculateTotal derives total_amount from the persisted item set. It is
// the only writer of that column.
func (s *OrderService) recalculateTotal(tx *gorm.DB, order *models.Order) error {
	var items []models.OrderItem
	if err := tx.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
		return err
	}

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal)
	}
	order.TotalAmount = total
	return tx.Model(&models.Order{}).Where("id = ?", order.ID).Update("total_amount", total).Error
}

// generateOrderNumber builds ORD-YYYYMMDD-XXXX with a random hex suffix,
// re-rolling on collision. The suffix space is small enough that a busy day
// can collide, so the unique column is re-checked before use.
func (s *OrderService) generateOrderNumber(tx *gorm.DB) (string, error) {
	dateStr := time.Now().Format("20060102")
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		id := uuid.New()
		number := fmt.Sprintf("%s-%s-%X", s.prefix, dateStr, id[:2])

		var count int64
		if err := tx.Model(&models.Order{}).Where("order_number = ?", number).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return number, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique order number after %d attempts", orderNumberAttempts)
}

func findOrder(tx *gorm.DB, id uint) (*models.Order, error) {
	var order models.Order
	if err := tx.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// loadItemsForStock fetches the order's items with product and inventory
// attached, sorted by product id so stock rows are always touched in a
// deterministic order.
func loadItemsForStock(tx *gorm.DB, orderID uint) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := tx.
		Preload("Product").
		Preload("Product.Inventory").
		Where("order_id = ?", orderID).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	return items, nil
}

func (s *OrderService) publish(ctx context.Context, routingKey string, order *models.Order) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderEvent(ctx, routingKey, order); err != nil {
		log.Warn().Err(err).Str("routing_key", routingKey).Str("order_number", order.OrderNumber).Msg("Failed to publish order event")
	}
}
