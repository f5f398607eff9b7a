package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForDomainCodes(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, MetadataFor(CodeInsufficientStock).HTTPStatus)
	assert.Equal(t, http.StatusUnprocessableEntity, MetadataFor(CodeModificationNotAllowed).HTTPStatus)
	assert.Equal(t, http.StatusInternalServerError, MetadataFor(CodeLedgerMissing).HTTPStatus)
	assert.Equal(t, http.StatusNotFound, MetadataFor(CodeNotFound).HTTPStatus)
	// Unknown codes fall back to internal.
	assert.Equal(t, http.StatusInternalServerError, MetadataFor(Code("NOPE")).HTTPStatus)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("row locked")
	err := Wrap(CodeInsufficientStock, cause, "sale exceeds stock")

	require.NotNil(t, err)
	assert.Equal(t, CodeInsufficientStock, err.Code())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "INSUFFICIENT_STOCK: sale exceeds stock", err.Error())
}

func TestAsUnwrapsNestedError(t *testing.T) {
	inner := New(CodeLedgerMissing, "no entry for product")
	outer := fmt.Errorf("recording sale: %w", inner)

	typed := As(outer)
	require.NotNil(t, typed)
	assert.Equal(t, CodeLedgerMissing, typed.Code())

	assert.Nil(t, As(fmt.Errorf("plain")))
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeModificationNotAllowed, "purchase is committed"))
	assert.True(t, HasCode(err, CodeModificationNotAllowed))
	assert.False(t, HasCode(err, CodeInsufficientStock))
	assert.False(t, HasCode(nil, CodeInternal))
}

func TestDumpCollectsChain(t *testing.T) {
	err := Wrap(CodeDependency, fmt.Errorf("dial tcp: refused"), "storage unreachable")
	dump := Dump(err)

	assert.Equal(t, CodeDependency, dump.Code)
	assert.Len(t, dump.Chain, 2)
	assert.Contains(t, dump.TopMessage, "storage unreachable")
}
