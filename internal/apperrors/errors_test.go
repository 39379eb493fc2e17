package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrorCollectsFields(t *testing.T) {
	ve := NewValidationError()
	assert.False(t, ve.HasErrors())

	ve.Add("quantity", "quantity must be at least 1")
	ve.Add("movement_type", `invalid movement type "TRANSFER"`)
	require.True(t, ve.HasErrors())

	assert.True(t, errors.Is(ve, ErrValidation))
	assert.Contains(t, ve.Error(), "quantity")
	assert.Contains(t, ve.Error(), "movement_type")
}

func TestHTTPStatus(t *testing.T) {
	ve := NewValidationError()
	ve.Add("name", "name is required")

	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ve))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NewNotFoundError("product", 7)))
	assert.Equal(t, http.StatusConflict, HTTPStatus(NewConflictError("category 1 still owns 3 product(s)")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestHTTPStatusSeesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("loading order: %w", NewNotFoundError("order", 12))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(err))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestValidationFields(t *testing.T) {
	ve := NewValidationError()
	ve.Add("unit", `invalid unit "PALLET"`)

	fields := ValidationFields(fmt.Errorf("creating product: %w", ve))
	require.NotNil(t, fields)
	assert.Equal(t, `invalid unit "PALLET"`, fields["unit"])

	assert.Nil(t, ValidationFields(errors.New("boom")))
}
