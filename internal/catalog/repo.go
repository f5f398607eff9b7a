package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
	"github.com/stockflowhq/stockflow-backend/pkg/pagination"
)

// Repository persists catalog entities (units of measure and products).
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateUnit(ctx context.Context, unit *models.Unit) error
	FindUnit(ctx context.Context, id uuid.UUID) (*models.Unit, error)
	ListUnits(ctx context.Context) ([]models.Unit, error)
	SaveUnit(ctx context.Context, unit *models.Unit) error
	DeleteUnit(ctx context.Context, id uuid.UUID) error
	UnitInUse(ctx context.Context, id uuid.UUID) (bool, error)

	CreateProduct(ctx context.Context, product *models.Product) error
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, search string, limit int, cursor *pagination.Cursor) ([]models.Product, error)
	SaveProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateUnit(ctx context.Context, unit *models.Unit) error {
	return r.db.WithContext(ctx).Create(unit).Error
}

func (r *repository) FindUnit(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	var unit models.Unit
	if err := r.db.WithContext(ctx).First(&unit, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *repository) ListUnits(ctx context.Context) ([]models.Unit, error) {
	var units []models.Unit
	if err := r.db.WithContext(ctx).Order("title ASC").Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

func (r *repository) SaveUnit(ctx context.Context, unit *models.Unit) error {
	return r.db.WithContext(ctx).Save(unit).Error
}

func (r *repository) DeleteUnit(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Unit{}, "id = ?", id).Error
}

func (r *repository) UnitInUse(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Where("unit_id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Unit").
		Preload("StockEntry").
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) ListProducts(ctx context.Context, search string, limit int, cursor *pagination.Cursor) ([]models.Product, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{}).
		Preload("Unit").
		Preload("StockEntry")
	if search != "" {
		q = q.Where("lower(name) LIKE lower(?)", "%"+search+"%")
	}
	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.Ts, cursor.ID)
	}

	var products []models.Product
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) SaveProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// DeleteProduct removes the product along with its stock entry and event
// history. The rows are deleted explicitly so the behavior does not depend
// on foreign key enforcement in the underlying driver.
func (r *repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Delete(&models.PurchaseEvent{}, "product_id = ?", id).Error; err != nil {
		return err
	}
	if err := db.Delete(&models.SaleEvent{}, "product_id = ?", id).Error; err != nil {
		return err
	}
	if err := db.Delete(&models.StockEntry{}, "product_id = ?", id).Error; err != nil {
		return err
	}
	return db.Delete(&models.Product{}, "id = ?", id).Error
}
