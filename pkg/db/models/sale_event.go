package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleEvent records stock sold to a customer. Same create-only lifecycle as
// PurchaseEvent, with the opposite ledger sign.
type SaleEvent struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerID  uuid.UUID       `gorm:"column:customer_id;type:uuid;not null" json:"customer_id"`
	Customer    *Customer       `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"customer,omitempty"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null" json:"product_id"`
	Product     *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"product,omitempty"`
	Quantity    int             `gorm:"column:quantity;not null" json:"quantity"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:numeric(14,2);not null" json:"total_amount"`
	OccurredAt  time.Time       `gorm:"column:occurred_at;autoCreateTime" json:"occurred_at"`
}
