// Package consistency binds the purchase/sale event lifecycle to the stock
// ledger. Handlers are invoked explicitly by the recorders inside one
// transaction; there is no implicit dispatch, so ordering and failure
// propagation stay visible and testable. The governing rule: every committed
// event corresponds to exactly one applied ledger delta, and every delta to
// exactly one event's current quantity.
package consistency

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockflowhq/stockflow-backend/internal/stock"
	"github.com/stockflowhq/stockflow-backend/pkg/enums"
	pkgerrors "github.com/stockflowhq/stockflow-backend/pkg/errors"
)

// EventLifecycleHandler receives the lifecycle transitions of one event
// variant and applies the matching ledger delta.
type EventLifecycleHandler interface {
	// OnCreate applies the delta for a newly persisted event.
	OnCreate(ctx context.Context, productID uuid.UUID, quantity int) error
	// OnPreUpdate reconciles the ledger before an event's quantity changes
	// from oldQuantity to newQuantity. The correction is applied as one
	// collapsed delta; see the package tests for the equivalence argument.
	OnPreUpdate(ctx context.Context, productID uuid.UUID, oldQuantity, newQuantity int) error
	// OnPreDelete reverses the event's delta before the row is removed.
	OnPreDelete(ctx context.Context, productID uuid.UUID, quantity int) error
}

// Engine hands out lifecycle handlers per event kind and owns the
// product-creation hook that seeds the stock entry.
type Engine struct {
	ledger stock.Ledger
}

// NewEngine wires the engine with the stock ledger it mutates.
func NewEngine(ledger stock.Ledger) (*Engine, error) {
	if ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	return &Engine{ledger: ledger}, nil
}

// WithTx returns an engine whose ledger writes run in the given transaction.
func (e *Engine) WithTx(tx *gorm.DB) *Engine {
	if tx == nil {
		return e
	}
	return &Engine{ledger: e.ledger.WithTx(tx)}
}

// SeedProduct creates the product's stock entry at quantity zero. Called by
// the catalog inside the product-creation transaction.
func (e *Engine) SeedProduct(ctx context.Context, productID uuid.UUID) error {
	_, err := e.ledger.GetOrCreate(ctx, productID)
	return err
}

// Handler returns the lifecycle handler for the given event kind.
func (e *Engine) Handler(kind enums.EventKind) (EventLifecycleHandler, error) {
	switch kind {
	case enums.EventKindPurchase:
		return &purchaseHandler{ledger: e.ledger}, nil
	case enums.EventKindSale:
		return &saleHandler{ledger: e.ledger}, nil
	default:
		return nil, fmt.Errorf("no lifecycle handler for event kind %q", kind)
	}
}

type purchaseHandler struct {
	ledger stock.Ledger
}

func (h *purchaseHandler) OnCreate(ctx context.Context, productID uuid.UUID, quantity int) error {
	if err := validQuantity(quantity); err != nil {
		return err
	}
	if _, err := h.ledger.GetOrCreate(ctx, productID); err != nil {
		return err
	}
	_, err := h.ledger.Adjust(ctx, productID, quantity)
	return err
}

func (h *purchaseHandler) OnPreUpdate(ctx context.Context, productID uuid.UUID, oldQuantity, newQuantity int) error {
	if err := validQuantity(newQuantity); err != nil {
		return err
	}
	if _, err := h.ledger.GetOrCreate(ctx, productID); err != nil {
		return err
	}
	_, err := h.ledger.Adjust(ctx, productID, newQuantity-oldQuantity)
	return err
}

func (h *purchaseHandler) OnPreDelete(ctx context.Context, productID uuid.UUID, quantity int) error {
	// Reversing a purchase fails when more was sold than would remain received.
	_, err := h.ledger.Adjust(ctx, productID, -quantity)
	return err
}

type saleHandler struct {
	ledger stock.Ledger
}

func (h *saleHandler) OnCreate(ctx context.Context, productID uuid.UUID, quantity int) error {
	if err := validQuantity(quantity); err != nil {
		return err
	}
	// Sales never seed the entry: a product that was never purchased has no
	// ledger row, and selling it is a LEDGER_MISSING fault, not quantity 0.
	if _, err := h.ledger.Get(ctx, productID); err != nil {
		return err
	}
	_, err := h.ledger.Adjust(ctx, productID, -quantity)
	return err
}

func (h *saleHandler) OnPreUpdate(ctx context.Context, productID uuid.UUID, oldQuantity, newQuantity int) error {
	if err := validQuantity(newQuantity); err != nil {
		return err
	}
	_, err := h.ledger.Adjust(ctx, productID, oldQuantity-newQuantity)
	return err
}

func (h *saleHandler) OnPreDelete(ctx context.Context, productID uuid.UUID, quantity int) error {
	// Adding a sold quantity back can never underflow.
	_, err := h.ledger.Adjust(ctx, productID, quantity)
	return err
}

func validQuantity(quantity int) error {
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer")
	}
	return nil
}
