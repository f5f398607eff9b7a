package models

import (
	"time"

	"github.com/google/uuid"
)

// StockEntry is the derived quantity-on-hand aggregate, one row per product.
// It is seeded at product creation and mutated only by the consistency
// engine; at every committed state QuantityOnHand equals the sum of live
// purchase quantities minus the sum of live sale quantities.
type StockEntry struct {
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey" json:"product_id"`
	QuantityOnHand int       `gorm:"column:quantity_on_hand;not null;default:0" json:"quantity_on_hand"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
