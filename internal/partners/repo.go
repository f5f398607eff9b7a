package partners

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
	"github.com/stockflowhq/stockflow-backend/pkg/pagination"
)

// Repository persists purchasing and selling counterparties.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateSupplier(ctx context.Context, supplier *models.Supplier) error
	FindSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	ListSuppliers(ctx context.Context, search string, limit int, cursor *pagination.Cursor) ([]models.Supplier, error)
	SaveSupplier(ctx context.Context, supplier *models.Supplier) error
	DeleteSupplier(ctx context.Context, id uuid.UUID) error
	SupplierHasEvents(ctx context.Context, id uuid.UUID) (bool, error)

	CreateCustomer(ctx context.Context, customer *models.Customer) error
	FindCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	ListCustomers(ctx context.Context, search string, limit int, cursor *pagination.Cursor) ([]models.Customer, error)
	SaveCustomer(ctx context.Context, customer *models.Customer) error
	DeleteCustomer(ctx context.Context, id uuid.UUID) error
	CustomerHasEvents(ctx context.Context, id uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateSupplier(ctx context.Context, supplier *models.Supplier) error {
	return r.db.WithContext(ctx).Create(supplier).Error
}

func (r *repository) FindSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.db.WithContext(ctx).First(&supplier, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *repository) ListSuppliers(ctx context.Context, search string, limit int, cursor *pagination.Cursor) ([]models.Supplier, error) {
	q := r.db.WithContext(ctx).Model(&models.Supplier{})
	if search != "" {
		q = q.Where("lower(name) LIKE lower(?)", "%"+search+"%")
	}
	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.Ts, cursor.ID)
	}

	var suppliers []models.Supplier
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&suppliers).Error; err != nil {
		return nil, err
	}
	return suppliers, nil
}

func (r *repository) SaveSupplier(ctx context.Context, supplier *models.Supplier) error {
	return r.db.WithContext(ctx).Save(supplier).Error
}

func (r *repository) DeleteSupplier(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Supplier{}, "id = ?", id).Error
}

func (r *repository) SupplierHasEvents(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.PurchaseEvent{}).Where("supplier_id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *repository) FindCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) ListCustomers(ctx context.Context, search string, limit int, cursor *pagination.Cursor) ([]models.Customer, error) {
	q := r.db.WithContext(ctx).Model(&models.Customer{})
	if search != "" {
		q = q.Where("lower(name) LIKE lower(?)", "%"+search+"%")
	}
	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.Ts, cursor.ID)
	}

	var customers []models.Customer
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repository) SaveCustomer(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Save(customer).Error
}

func (r *repository) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Customer{}, "id = ?", id).Error
}

func (r *repository) CustomerHasEvents(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.SaleEvent{}).Where("customer_id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
