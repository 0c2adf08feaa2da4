package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"sales-backend/internal/models"
)

const manualUpdateReason = "Manual stock update"

// InventoryService is the stock ledger: every quantity change goes through
// Adjust, which pairs the update with an immutable adjustment row.
type InventoryService struct {
	db *gorm.DB
}

func NewInventoryService(db *gorm.DB) *InventoryService {
	return &InventoryService{db: db}
}

// Adjust applies a signed quantity change and appends the audit row inside
// the caller's transaction. The update is guarded so a committed quantity can
// never go negative: if the delta would undershoot zero (including when a
// concurrent writer got there first) no row matches, nothing is written, and
// an InsufficientStockError is returned for the caller to roll back on.
func (s *InventoryService) Adjust(tx *gorm.DB, inventoryID uint, delta int, reason, actor string) (*models.Inventory, error) {
	res := tx.Model(&models.Inventory{}).
		Where("id = ? AND quantity + ? >= 0", inventoryID, delta).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	if res.Error != nil {
		return nil, res.Error
	}

	var inv models.Inventory
	if err := tx.First(&inv, inventoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if res.RowsAffected == 0 {
		return nil, &InsufficientStockError{Details: []StockShortage{{
			Available: inv.Quantity,
			Requested: -delta,
		}}}
	}

	adj := models.InventoryAdjustment{
		InventoryID: inventoryID,
		Change:      delta,
		Reason:      reason,
		UpdatedBy:   actor,
	}
	if err := tx.Create(&adj).Error; err != nil {
		return nil, err
	}

	log.Debug().
		Uint("inventory_id", inventoryID).
		Int("change", delta).
		Str("reason", reason).
		Int("quantity", inv.Quantity).
		Msg("Inventory adjusted")

	return &inv, nil
}

// GetByProductID returns the inventory row owned by the given product.
func (s *InventoryService) GetByProductID(ctx context.Context, productID uint) (*models.Inventory, error) {
	var inv models.Inventory
	err := s.db.WithContext(ctx).Where("product_id = ?", productID).First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (s *InventoryService) List(ctx context.Context) ([]models.Inventory, error) {
	var inventories []models.Inventory
	if err := s.db.WithContext(ctx).Order("product_id").Find(&inventories).Error; err != nil {
		return nil, err
	}
	return inventories, nil
}

// SetQuantity moves a product's stock to an absolute target. The change is
// ledgered as the delta between target and current quantity.
func (s *InventoryService) SetQuantity(ctx context.Context, productID uint, newQuantity int, actor string) (*models.Inventory, int, error) {
	if newQuantity < 0 {
		return nil, 0, &ValidationError{Field: "quantity", Message: "must be a non-negative integer"}
	}

	var inv *models.Inventory
	var change int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Inventory
		if err := tx.Where("product_id = ?", productID).First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		change = newQuantity - current.Quantity
		updated, err := s.Adjust(tx, current.ID, change, manualUpdateReason, actor)
		if err != nil {
			return err
		}
		inv = updated
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return inv, change, nil
}
