package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"sales-backend/internal/models"
)

// CatalogService manages products and the 1:1 inventory rows they own.
type CatalogService struct {
	db        *gorm.DB
	inventory *InventoryService
}

func NewCatalogService(db *gorm.DB, inventory *InventoryService) *CatalogService {
	return &CatalogService{db: db, inventory: inventory}
}

type ProductInput struct {
	Name        string
	SKU         string
	Price       decimal.Decimal
	Description string
}

// CreateProduct creates the product together with its inventory row. A
// non-zero opening stock is ledgered so the audit trail reconciles from zero.
func (s *CatalogService) CreateProduct(ctx context.Context, input ProductInput, openingStock int, actor string) (*models.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}
	if openingStock < 0 {
		return nil, &ValidationError{Field: "opening_stock", Message: "must be a non-negative integer"}
	}

	product := models.Product{
		Name:        input.Name,
		SKU:         input.SKU,
		Price:       input.Price,
		Description: input.Description,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&product).Error; err != nil {
			if isUniqueViolation(err) {
				return &ValidationError{Field: "sku", Message: "must be unique"}
			}
			return err
		}

		inv := models.Inventory{ProductID: product.ID}
		if err := tx.Create(&inv).Error; err != nil {
			return err
		}

		if openingStock > 0 {
			if _, err := s.inventory.Adjust(tx, inv.ID, openingStock, "Opening stock", actor); err != nil {
				return err
			}
			inv.Quantity = openingStock
		}
		product.Inventory = &inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).Preload("Inventory").First(&product, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Preload("Inventory").Order("id").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// UpdateProduct edits catalog fields. Order items keep the unit price they
// snapshotted at creation, so a price change never touches existing orders.
func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, input ProductInput) (*models.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	product.Name = input.Name
	product.SKU = input.SKU
	product.Price = input.Price
	product.Description = input.Description

	if err := s.db.WithContext(ctx).Save(product).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, &ValidationError{Field: "sku", Message: "must be unique"}
		}
		return nil, err
	}
	return product, nil
}

// DeleteProduct removes the product and its inventory. The delete is blocked
// while any order item references the product.
func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var refs int64
		if err := tx.Model(&models.OrderItem{}).Where("product_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return ErrProtectedReference
		}

		var inv models.Inventory
		if err := tx.Where("product_id = ?", id).First(&inv).Error; err == nil {
			if err := tx.Where("inventory_id = ?", inv.ID).Delete(&models.InventoryAdjustment{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&inv).Error; err != nil {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		return tx.Delete(&product).Error
	})
}

func validateProductInput(input ProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	if strings.TrimSpace(input.SKU) == "" {
		return &ValidationError{Field: "sku", Message: "is required"}
	}
	if input.Price.IsNegative() {
		return &ValidationError{Field: "price", Message: "must not be negative"}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
