package sales

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

// CreateSaleInput captures the data a sale event requires.
type CreateSaleInput struct {
	CustomerID uuid.UUID `json:"customer_id"`
	ProductID  uuid.UUID `json:"product_id"`
	Quantity   int       `json:"quantity"`
}

// Service records sale events. Sales are create-only, and creation fails
// when the requested quantity exceeds the quantity on hand.
type Service interface {
	Create(ctx context.Context, input CreateSaleInput) (*models.SaleEvent, error)
	Get(ctx context.Context, id uuid.UUID) (*models.SaleEvent, error)
	List(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.SaleEvent, string, error)
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

// NewService builds a sale recorder.
func NewService(params ServiceParams) (Service, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("sales repository required")
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

func (s *service) Create(ctx context.Context, input CreateSaleInput) (*models.SaleEvent, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer")
	}

	var event *models.SaleEvent
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		exists, err := repo.CustomerExists(ctx, input.CustomerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking customer")
		}
		if !exists {
			return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}

		product, err := repo.GetProduct(ctx, input.ProductID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
		}

		// The sufficiency check and the decrement run under the ledger row
		// lock, before the event row is written; concurrent sales on the
		// same product serialize here.
		handler, err := s.engine.WithTx(tx).Handler(enums.EventKindSale)
		if err != nil {
			return err
		}
		if err := handler.OnCreate(ctx, input.ProductID, input.Quantity); err != nil {
			return err
		}

		event = &models.SaleEvent{
			ID:          uuid.New(),
			CustomerID:  input.CustomerID,
			ProductID:   input.ProductID,
			Quantity:    input.Quantity,
			TotalAmount: product.Price.Mul(decimal.NewFromInt(int64(input.Quantity))),
		}
		if err := repo.Create(ctx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting sale event")
		}
		return nil
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
		s.logg.Info(lctx, "sale.recorded")
	}
	return event, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.SaleEvent, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading sale")
	}
	return event, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.SaleEvent, string, error) {
	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(page.Limit)
	events, err := s.repo.List(ctx, filter, pagination.LimitWithBuffer(page.Limit), cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing sales")
	}

	next := ""
	if len(events) > limit {
		events = events[:limit]
		last := events[limit-1]
		next = pagination.Next(last.OccurredAt, last.ID)
	}
	return events, next, nil
}

// Modify always fails: committed sales are immutable.
func (s *service) Modify(ctx context.Context, id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeModificationNotAllowed, "sales are create-only; delete and re-record instead").
		WithDetails(map[string]any{"sale_id": id})
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		event, err := repo.FindByID(ctx, id)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading sale")
		}

		handler, err := s.engine.WithTx(tx).Handler(enums.EventKindSale)
		if err != nil {
			return err
		}
		if err := handler.OnPreDelete(ctx, event.ProductID, event.Quantity); err != nil {
			return err
		}
		if err := repo.Delete(ctx, event.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting sale event")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithEventID(ctx, id.String()), "sale.deleted")
	}
	return nil
}
