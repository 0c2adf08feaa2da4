package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusDraft     = "DRAFT"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusDelivered = "DELIVERED"
)

type Order struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderNumber string          `gorm:"size:30;unique;not null" json:"order_number"`
	DealerID    uint            `gorm:"index;not null" json:"dealer_id"`
	Dealer      Dealer          `gorm:"foreignKey:DealerID" json:"dealer"`
	Status      string          `gorm:"size:15;not null;default:'DRAFT'" json:"status"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Items       []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"index;not null" json:"order_id"`
	ProductID uint            `gorm:"not null" json:"product_id"`
	Product   Product         `gorm:"foreignKey:ProductID" json:"product"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	LineTotal decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"line_total"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
