package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsIdentity(t *testing.T) {
	err := Clone(ErrNotFound, "could not locate record")

	assert.Equal(t, "could not locate record", err.Error())
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
}

func TestCloneEmptyMessageKeepsTemplate(t *testing.T) {
	assert.Equal(t, "invalid credentials", Clone(ErrInvalidCredentials, "").Error())
	assert.Nil(t, Clone(nil, "x"))
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(cause, ErrInternal.Code, ErrInternal.Status, "failed to save submission")

	assert.Equal(t, "failed to save submission: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrInternal)
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	typed := fmt.Errorf("handler: %w", ErrIncompleteForm)
	assert.Equal(t, ErrIncompleteForm, FromError(typed))

	plain := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.Status)
}
