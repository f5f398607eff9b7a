package purchases

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
	"github.com/stockflowhq/stockflow-backend/pkg/pagination"
)

// ListFilter narrows purchase listings, mirroring the admin list surface.
type ListFilter struct {
	ProductID  *uuid.UUID
	SupplierID *uuid.UUID
	From       *time.Time
	To         *time.Time
}

// Repository manages persistence for purchase events.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.PurchaseEvent) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PurchaseEvent, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter, limit int, cursor *pagination.Cursor) ([]models.PurchaseEvent, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	SupplierExists(ctx context.Context, id uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a purchases repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, event *models.PurchaseEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PurchaseEvent, error) {
	var event models.PurchaseEvent
	if err := r.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.PurchaseEvent{}, "id = ?", id).Error
}

func (r *repository) List(ctx context.Context, filter ListFilter, limit int, cursor *pagination.Cursor) ([]models.PurchaseEvent, error) {
	q := r.db.WithContext(ctx).Model(&models.PurchaseEvent{})
	if filter.ProductID != nil {
		q = q.Where("product_id = ?", *filter.ProductID)
	}
	if filter.SupplierID != nil {
		q = q.Where("supplier_id = ?", *filter.SupplierID)
	}
	if filter.From != nil {
		q = q.Where("occurred_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("occurred_at < ?", *filter.To)
	}
	if cursor != nil {
		q = q.Where("(occurred_at, id) < (?, ?)", cursor.Ts, cursor.ID)
	}

	var events []models.PurchaseEvent
	if err := q.Order("occurred_at DESC, id DESC").Limit(limit).Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) SupplierExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Supplier{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
