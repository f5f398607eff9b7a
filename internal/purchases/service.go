package purchases

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stockflowhq/stockflow-backend/internal/consistency"
	"github.com/stockflowhq/stockflow-backend/pkg/db"
	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
	"github.com/stockflowhq/stockflow-backend/pkg/enums"
	pkgerrors "github.com/stockflowhq/stockflow-backend/pkg/errors"
	"github.com/stockflowhq/stockflow-backend/pkg/logger"
	"github.com/stockflowhq/stockflow-backend/pkg/pagination"
)

// CreatePurchaseInput captures the data a purchase event requires. The total
// amount is computed from the product price at creation and never supplied.
type CreatePurchaseInput struct {
	SupplierID uuid.UUID `json:"supplier_id"`
	ProductID  uuid.UUID `json:"product_id"`
	Quantity   int       `json:"quantity"`
}

// Service records purchase events. Purchases are create-only: Modify fails
// unconditionally so the event history stays auditable.
type Service interface {
	Create(ctx context.Context, input CreatePurchaseInput) (*models.PurchaseEvent, error)
	Get(ctx context.Context, id uuid.UUID) (*models.PurchaseEvent, error)
	List(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.PurchaseEvent, string, error)
	Modify(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ServiceParams wires the service dependencies.
type ServiceParams struct {
	Client *db.Client
	Repo   Repository
	Engine *consistency.Engine
	Logger *logger.Logger
}

type service struct {
	client *db.Client
	repo   Repository
	engine *consistency.Engine
	logg   *logger.Logger
}

// NewService builds a purchase recorder.
func NewService(params ServiceParams) (Service, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("purchases repository required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("consistency engine required")
	}
	return &service{
		client: params.Client,
		repo:   params.Repo,
		engine: params.Engine,
		logg:   params.Logger,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreatePurchaseInput) (*models.PurchaseEvent, error) {
	if input.SupplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id is required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer")
	}

	var event *models.PurchaseEvent
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		exists, err := repo.SupplierExists(ctx, input.SupplierID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking supplier")
		}
		if !exists {
			return pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}

		product, err := repo.GetProduct(ctx, input.ProductID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
		}

		event = &models.PurchaseEvent{
			ID:          uuid.New(),
			SupplierID:  input.SupplierID,
			ProductID:   input.ProductID,
			Quantity:    input.Quantity,
			TotalAmount: product.Price.Mul(decimal.NewFromInt(int64(input.Quantity))),
		}
		if err := repo.Create(ctx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting purchase event")
		}

		handler, err := s.engine.WithTx(tx).Handler(enums.EventKindPurchase)
		if err != nil {
			return err
		}
		return handler.OnCreate(ctx, input.ProductID, input.Quantity)
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		lctx := s.logg.WithFields(ctx, map[string]any{
			"event_id":   event.ID.String(),
			"product_id": event.ProductID.String(),
			"quantity":   event.Quantity,
		})
		s.logg.Info(lctx, "purchase.recorded")
	}
	return event, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.PurchaseEvent, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading purchase")
	}
	return event, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.PurchaseEvent, string, error) {
	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(page.Limit)
	events, err := s.repo.List(ctx, filter, pagination.LimitWithBuffer(page.Limit), cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing purchases")
	}

	next := ""
	if len(events) > limit {
		events = events[:limit]
		last := events[limit-1]
		next = pagination.Next(last.OccurredAt, last.ID)
	}
	return events, next, nil
}

// Modify always fails: committed purchases are immutable.
func (s *service) Modify(ctx context.Context, id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeModificationNotAllowed, "purchases are create-only; delete and re-record instead").
		WithDetails(map[string]any{"purchase_id": id})
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		event, err := repo.FindByID(ctx, id)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading purchase")
		}

		handler, err := s.engine.WithTx(tx).Handler(enums.EventKindPurchase)
		if err != nil {
			return err
		}
		if err := handler.OnPreDelete(ctx, event.ProductID, event.Quantity); err != nil {
			return err
		}
		if err := repo.Delete(ctx, event.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting purchase event")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithEventID(ctx, id.String()), "purchase.deleted")
	}
	return nil
}
