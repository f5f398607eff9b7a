package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stockflowhq/stockflow-backend/internal/consistency"
	"github.com/stockflowhq/stockflow-backend/pkg/config"
	"github.com/stockflowhq/stockflow-backend/pkg/db"
	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
	pkgerrors "github.com/stockflowhq/stockflow-backend/pkg/errors"
	"github.com/stockflowhq/stockflow-backend/pkg/logger"
	"github.com/stockflowhq/stockflow-backend/pkg/pagination"
)

// codeRetries bounds how many times product creation re-draws a product
// code after losing a uniqueness race.
const codeRetries = 5

type CreateUnitInput struct {
	Title string `json:"title"`
}

type CreateProductInput struct {
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	UnitID *uuid.UUID      `json:"unit_id,omitempty"`
}

// UpdateProductInput carries the mutable product fields. Product code and
// barcode are assigned at creation and never change.
type UpdateProductInput struct {
	Name   *string          `json:"name,omitempty"`
	Price  *decimal.Decimal `json:"price,omitempty"`
	UnitID *uuid.UUID       `json:"unit_id,omitempty"`
}

// Service manages the product catalog. Creating a product also opens its
// stock entry at quantity zero so events can be recorded against it.
type Service interface {
	CreateUnit(ctx context.Context, input CreateUnitInput) (*models.Unit, error)
	GetUnit(ctx context.Context, id uuid.UUID) (*models.Unit, error)
	ListUnits(ctx context.Context) ([]models.Unit, error)
	UpdateUnit(ctx context.Context, id uuid.UUID, input CreateUnitInput) (*models.Unit, error)
	DeleteUnit(ctx context.Context, id uuid.UUID) error

	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, search string, page pagination.Params) ([]models.Product, string, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

// ServiceParams wires the service dependencies.
type ServiceParams struct {
	Client  *db.Client
	Repo    Repository
	Engine  *consistency.Engine
	Barcode config.BarcodeConfig
	Logger  *logger.Logger
}

type service struct {
	client  *db.Client
	repo    Repository
	engine  *consistency.Engine
	barcode config.BarcodeConfig
	logg    *logger.Logger
}

// NewService validates the dependencies and returns a catalog service.
func NewService(params ServiceParams) (Service, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("consistency engine required")
	}
	return &service{
		client:  params.Client,
		repo:    params.Repo,
		engine:  params.Engine,
		barcode: params.Barcode,
		logg:    params.Logger,
	}, nil
}

func (s *service) CreateUnit(ctx context.Context, input CreateUnitInput) (*models.Unit, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit title is required")
	}
	unit := &models.Unit{ID: uuid.New(), Title: title}
	if err := s.repo.CreateUnit(ctx, unit); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating unit")
	}
	return unit, nil
}

func (s *service) GetUnit(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	unit, err := s.repo.FindUnit(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unit not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading unit")
	}
	return unit, nil
}

func (s *service) ListUnits(ctx context.Context) ([]models.Unit, error) {
	units, err := s.repo.ListUnits(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing units")
	}
	return units, nil
}

func (s *service) UpdateUnit(ctx context.Context, id uuid.UUID, input CreateUnitInput) (*models.Unit, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit title is required")
	}
	unit, err := s.GetUnit(ctx, id)
	if err != nil {
		return nil, err
	}
	unit.Title = title
	if err := s.repo.SaveUnit(ctx, unit); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating unit")
	}
	return unit, nil
}

func (s *service) DeleteUnit(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetUnit(ctx, id); err != nil {
		return err
	}
	inUse, err := s.repo.UnitInUse(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking unit references")
	}
	if inUse {
		return pkgerrors.New(pkgerrors.CodeConflict, "unit is referenced by products")
	}
	if err := s.repo.DeleteUnit(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting unit")
	}
	return nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if input.UnitID != nil {
		if _, err := s.GetUnit(ctx, *input.UnitID); err != nil {
			return nil, err
		}
	}

	// A lost uniqueness race aborts the transaction, so each code draw gets
	// a transaction of its own.
	var product *models.Product
	var lastErr error
	for attempt := 0; attempt < codeRetries; attempt++ {
		code := newProductCode()
		barcode, err := ean13(s.barcode.CountryCode, s.barcode.ManufacturerCode, code)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "assembling barcode")
		}

		candidate := &models.Product{
			ID:          uuid.New(),
			Name:        name,
			UnitID:      input.UnitID,
			Price:       input.Price,
			ProductCode: code,
			Barcode:     barcode,
		}
		err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.repo.WithTx(tx).CreateProduct(ctx, candidate); err != nil {
				return err
			}
			return s.engine.WithTx(tx).SeedProduct(ctx, candidate.ID)
		})
		if err == nil {
			product = candidate
			break
		}
		if db.IsUniqueViolation(err, "") {
			lastErr = err
			continue
		}
		if typed := pkgerrors.As(err); typed != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating product")
	}
	if product == nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, lastErr, "could not allocate a unique product code")
	}

	if s.logg != nil {
		lctx := s.logg.WithFields(ctx, map[string]any{
			"product_id":   product.ID.String(),
			"product_code": product.ProductCode,
		})
		s.logg.Info(lctx, "product.created")
	}
	return s.GetProduct(ctx, product.ID)
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
	}
	return product, nil
}

func (s *service) ListProducts(ctx context.Context, search string, page pagination.Params) ([]models.Product, string, error) {
	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(page.Limit)
	products, err := s.repo.ListProducts(ctx, strings.TrimSpace(search), limit+1, cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing products")
	}

	next := ""
	if len(products) > limit {
		products = products[:limit]
		last := products[len(products)-1]
		next = pagination.Next(last.CreatedAt, last.ID)
	}
	return products, next, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
		}
		product.Name = name
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
		}
		// Price changes apply to future events only; recorded amounts keep
		// the price in effect when the event was created.
		product.Price = *input.Price
	}
	if input.UnitID != nil {
		if _, err := s.GetUnit(ctx, *input.UnitID); err != nil {
			return nil, err
		}
		product.UnitID = input.UnitID
	}

	product.Unit = nil
	product.StockEntry = nil
	if err := s.repo.SaveProduct(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating product")
	}
	return s.GetProduct(ctx, id)
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetProduct(ctx, id); err != nil {
		return err
	}
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).DeleteProduct(ctx, id)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting product")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithProductID(ctx, id.String()), "product.deleted")
	}
	return nil
}
