package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a sellable catalog item. Price is mutable; historical event
// amounts are frozen at event creation and never recomputed from it.
type Product struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string          `gorm:"column:name;not null" json:"name"`
	UnitID      *uuid.UUID      `gorm:"column:unit_id;type:uuid" json:"unit_id,omitempty"`
	Unit        *Unit           `gorm:"foreignKey:UnitID" json:"unit,omitempty"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	ProductCode string          `gorm:"column:product_code;uniqueIndex" json:"product_code"`
	Barcode     string          `gorm:"column:barcode" json:"barcode"`
	StockEntry  *StockEntry     `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"stock_entry,omitempty"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
