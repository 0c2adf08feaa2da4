package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"size:255;not null" json:"name"`
	SKU         string          `gorm:"size:50;unique;not null" json:"sku"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Description string          `gorm:"type:text" json:"description"`
	Inventory   *Inventory      `gorm:"foreignKey:ProductID" json:"inventory,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Inventory holds the current stock level for exactly one product.
type Inventory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"uniqueIndex;not null" json:"product_id"`
	Quantity  int       `gorm:"not null;default:0" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InventoryAdjustment is an append-only audit row. Rows are created alongside
// every quantity change and never updated or deleted.
type InventoryAdjustment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	InventoryID uint      `gorm:"index;not null" json:"inventory_id"`
	Change      int       `gorm:"not null" json:"change"`
	Reason      string    `gorm:"type:text" json:"reason"`
	UpdatedBy   string    `gorm:"size:100" json:"updated_by"`
	CreatedAt   time.Time `json:"created_at"`
}
