package partners

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/stockflowhq/stockflow-backend/pkg/db"
	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
	pkgerrors "github.com/stockflowhq/stockflow-backend/pkg/errors"
	"github.com/stockflowhq/stockflow-backend/pkg/pagination"
)

// PartnerInput carries the shared counterparty fields for create and update.
type PartnerInput struct {
	Name    string  `json:"name"`
	Phone   *string `json:"phone,omitempty"`
	Email   *string `json:"email,omitempty"`
	Address *string `json:"address,omitempty"`
}

// Service manages suppliers and customers. Counterparties referenced by
// recorded events cannot be deleted; the event history must stay resolvable.
type Service interface {
	CreateSupplier(ctx context.Context, input PartnerInput) (*models.Supplier, error)
	GetSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	ListSuppliers(ctx context.Context, search string, page pagination.Params) ([]models.Supplier, string, error)
	UpdateSupplier(ctx context.Context, id uuid.UUID, input PartnerInput) (*models.Supplier, error)
	DeleteSupplier(ctx context.Context, id uuid.UUID) error

	CreateCustomer(ctx context.Context, input PartnerInput) (*models.Customer, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	ListCustomers(ctx context.Context, search string, page pagination.Params) ([]models.Customer, string, error)
	UpdateCustomer(ctx context.Context, id uuid.UUID, input PartnerInput) (*models.Customer, error)
	DeleteCustomer(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService validates the dependencies and returns a partners service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	return &service{repo: repo}, nil
}

func validatePartnerInput(input PartnerInput) (string, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	return name, nil
}

func (s *service) CreateSupplier(ctx context.Context, input PartnerInput) (*models.Supplier, error) {
	name, err := validatePartnerInput(input)
	if err != nil {
		return nil, err
	}
	supplier := &models.Supplier{
		ID:      uuid.New(),
		Name:    name,
		Phone:   input.Phone,
		Email:   input.Email,
		Address: input.Address,
	}
	if err := s.repo.CreateSupplier(ctx, supplier); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating supplier")
	}
	return supplier, nil
}

func (s *service) GetSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	supplier, err := s.repo.FindSupplier(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading supplier")
	}
	return supplier, nil
}

func (s *service) ListSuppliers(ctx context.Context, search string, page pagination.Params) ([]models.Supplier, string, error) {
	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(page.Limit)
	suppliers, err := s.repo.ListSuppliers(ctx, strings.TrimSpace(search), limit+1, cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing suppliers")
	}

	next := ""
	if len(suppliers) > limit {
		suppliers = suppliers[:limit]
		last := suppliers[len(suppliers)-1]
		next = pagination.Next(last.CreatedAt, last.ID)
	}
	return suppliers, next, nil
}

func (s *service) UpdateSupplier(ctx context.Context, id uuid.UUID, input PartnerInput) (*models.Supplier, error) {
	name, err := validatePartnerInput(input)
	if err != nil {
		return nil, err
	}
	supplier, err := s.GetSupplier(ctx, id)
	if err != nil {
		return nil, err
	}
	supplier.Name = name
	supplier.Phone = input.Phone
	supplier.Email = input.Email
	supplier.Address = input.Address
	if err := s.repo.SaveSupplier(ctx, supplier); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating supplier")
	}
	return supplier, nil
}

func (s *service) DeleteSupplier(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetSupplier(ctx, id); err != nil {
		return err
	}
	hasEvents, err := s.repo.SupplierHasEvents(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking supplier events")
	}
	if hasEvents {
		return pkgerrors.New(pkgerrors.CodeConflict, "supplier has recorded purchases")
	}
	if err := s.repo.DeleteSupplier(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting supplier")
	}
	return nil
}

func (s *service) CreateCustomer(ctx context.Context, input PartnerInput) (*models.Customer, error) {
	name, err := validatePartnerInput(input)
	if err != nil {
		return nil, err
	}
	customer := &models.Customer{
		ID:      uuid.New(),
		Name:    name,
		Phone:   input.Phone,
		Email:   input.Email,
		Address: input.Address,
	}
	if err := s.repo.CreateCustomer(ctx, customer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating customer")
	}
	return customer, nil
}

func (s *service) GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	customer, err := s.repo.FindCustomer(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading customer")
	}
	return customer, nil
}

func (s *service) ListCustomers(ctx context.Context, search string, page pagination.Params) ([]models.Customer, string, error) {
	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(page.Limit)
	customers, err := s.repo.ListCustomers(ctx, strings.TrimSpace(search), limit+1, cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing customers")
	}

	next := ""
	if len(customers) > limit {
		customers = customers[:limit]
		last := customers[len(customers)-1]
		next = pagination.Next(last.CreatedAt, last.ID)
	}
	return customers, next, nil
}

func (s *service) UpdateCustomer(ctx context.Context, id uuid.UUID, input PartnerInput) (*models.Customer, error) {
	name, err := validatePartnerInput(input)
	if err != nil {
		return nil, err
	}
	customer, err := s.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	customer.Name = name
	customer.Phone = input.Phone
	customer.Email = input.Email
	customer.Address = input.Address
	if err := s.repo.SaveCustomer(ctx, customer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating customer")
	}
	return customer, nil
}

func (s *service) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetCustomer(ctx, id); err != nil {
		return err
	}
	hasEvents, err := s.repo.CustomerHasEvents(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking customer events")
	}
	if hasEvents {
		return pkgerrors.New(pkgerrors.CodeConflict, "customer has recorded sales")
	}
	if err := s.repo.DeleteCustomer(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting customer")
	}
	return nil
}
