package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseEvent records stock received from a supplier. Rows are create-only:
// quantity and total amount are frozen at creation so the ledger history
// stays auditable. TotalAmount is quantity times the product price read at
// creation time.
type PurchaseEvent struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SupplierID  uuid.UUID       `gorm:"column:supplier_id;type:uuid;not null" json:"supplier_id"`
	Supplier    *Supplier       `gorm:"foreignKey:SupplierID;constraint:OnDelete:CASCADE" json:"supplier,omitempty"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null" json:"product_id"`
	Product     *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"product,omitempty"`
	Quantity    int             `gorm:"column:quantity;not null" json:"quantity"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:numeric(14,2);not null" json:"total_amount"`
	OccurredAt  time.Time       `gorm:"column:occurred_at;autoCreateTime" json:"occurred_at"`
}
