package stock

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
)

// Repository manages persistence for stock entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.StockEntry) error
	GetByProductID(ctx context.Context, productID uuid.UUID) (*models.StockEntry, error)
	// GetByProductIDForUpdate loads the entry holding a row lock until the
	// surrounding transaction commits, serializing writers per product.
	GetByProductIDForUpdate(ctx context.Context, productID uuid.UUID) (*models.StockEntry, error)
	Save(ctx context.Context, entry *models.StockEntry) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a stock repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.StockEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) GetByProductID(ctx context.Context, productID uuid.UUID) (*models.StockEntry, error) {
	var entry models.StockEntry
	if err := r.db.WithContext(ctx).
		First(&entry, "product_id = ?", productID).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) GetByProductIDForUpdate(ctx context.Context, productID uuid.UUID) (*models.StockEntry, error) {
	tx := r.db.WithContext(ctx)
	// sqlite (tests) has no FOR UPDATE; its write lock covers the transaction.
	if r.db.Dialector.Name() != "sqlite" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var entry models.StockEntry
	if err := tx.First(&entry, "product_id = ?", productID).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) Save(ctx context.Context, entry *models.StockEntry) error {
	return r.db.WithContext(ctx).Save(entry).Error
}
