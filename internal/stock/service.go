package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockflowhq/stockflow-backend/pkg/db"
	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
	pkgerrors "github.com/stockflowhq/stockflow-backend/pkg/errors"
	"github.com/stockflowhq/stockflow-backend/pkg/metrics"
)

// Ledger is the single mutation point for the derived quantity-on-hand
// aggregate. Every event lifecycle transition routes its delta through
// Adjust so the non-negative invariant has one enforcement site.
type Ledger interface {
	WithTx(tx *gorm.DB) Ledger
	// GetOrCreate returns the entry for the product, seeding it at
	// quantity zero when absent. Idempotent.
	GetOrCreate(ctx context.Context, productID uuid.UUID) (*models.StockEntry, error)
	// Get returns the entry or a LEDGER_MISSING error when it does not
	// exist; a missing entry for a known product means a prior invariant
	// violation and is never silently repaired.
	Get(ctx context.Context, productID uuid.UUID) (*models.StockEntry, error)
	// Adjust applies quantity_on_hand += delta under a row lock and writes
	// through. Fails with INSUFFICIENT_STOCK when the result would be
	// negative, leaving the entry untouched.
	Adjust(ctx context.Context, productID uuid.UUID, delta int) (*models.StockEntry, error)
}

type ledger struct {
	repo    Repository
	metrics *metrics.LedgerMetrics
}

// NewLedger wires a stock ledger with the provided repository. Metrics may be nil.
func NewLedger(repo Repository, m *metrics.LedgerMetrics) (Ledger, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	return &ledger{repo: repo, metrics: m}, nil
}

func (l *ledger) WithTx(tx *gorm.DB) Ledger {
	if tx == nil {
		return l
	}
	return &ledger{repo: l.repo.WithTx(tx), metrics: l.metrics}
}

func (l *ledger) GetOrCreate(ctx context.Context, productID uuid.UUID) (*models.StockEntry, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	entry, err := l.repo.GetByProductID(ctx, productID)
	if err == nil {
		return entry, nil
	}
	if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading stock entry")
	}

	entry = &models.StockEntry{ProductID: productID}
	if err := l.repo.Create(ctx, entry); err != nil {
		if db.IsUniqueViolation(err, "") {
			// Lost a seeding race; the winner's row is the entry.
			return l.Get(ctx, productID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating stock entry")
	}
	return entry, nil
}

func (l *ledger) Get(ctx context.Context, productID uuid.UUID) (*models.StockEntry, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	entry, err := l.repo.GetByProductID(ctx, productID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeLedgerMissing, "no stock entry for product").
				WithDetails(map[string]any{"product_id": productID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading stock entry")
	}
	return entry, nil
}

func (l *ledger) Adjust(ctx context.Context, productID uuid.UUID, delta int) (*models.StockEntry, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if delta == 0 {
		return l.Get(ctx, productID)
	}

	entry, err := l.repo.GetByProductIDForUpdate(ctx, productID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeLedgerMissing, "no stock entry for product").
				WithDetails(map[string]any{"product_id": productID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locking stock entry")
	}

	next := entry.QuantityOnHand + delta
	if next < 0 {
		l.metrics.IncRejection("insufficient_stock")
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "adjustment would drive stock negative").
			WithDetails(map[string]any{
				"product_id":       productID,
				"quantity_on_hand": entry.QuantityOnHand,
				"delta":            delta,
			})
	}

	entry.QuantityOnHand = next
	if err := l.repo.Save(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting stock entry")
	}
	l.metrics.ObserveAdjustment(delta)
	return entry, nil
}
