package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError_PassesThroughWrapped(t *testing.T) {
	orig := NewConflict("email", "email already registered")
	wrapped := fmt.Errorf("register: %w", orig)

	de := ToDomainError(wrapped)
	require.NotNil(t, de)
	assert.Equal(t, CodeConflict, de.Code)
	assert.Equal(t, http.StatusConflict, de.HTTPStatus)
	assert.Equal(t, "email", de.Details["field"])
}

func TestToDomainError_HidesRawStorageDetail(t *testing.T) {
	raw := errors.New(`relation "accounts" does not exist`)

	de := ToDomainError(raw)
	require.NotNil(t, de)
	assert.Equal(t, CodeStorage, de.Code)
	assert.Equal(t, "storage failure", de.Message)
	assert.NotContains(t, de.Message, "accounts")
	assert.ErrorIs(t, de, raw)
	assert.Contains(t, de.Error(), "accounts")
}

func TestToDomainError_Nil(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))
}

func TestNewValidationError_AddsField(t *testing.T) {
	err := NewValidationError("password", "too short", map[string]any{"rule": "too_short"})

	de := ToDomainError(err)
	assert.Equal(t, http.StatusBadRequest, de.HTTPStatus)
	assert.Equal(t, "password", de.Details["field"])
	assert.Equal(t, "too_short", de.Details["rule"])
}

func TestIsCode(t *testing.T) {
	assert.True(t, IsCode(fmt.Errorf("x: %w", NewUnauthenticated("nope")), CodeAuthentication))
	assert.False(t, IsCode(NewForbidden("inactive"), CodeAuthentication))
	assert.False(t, IsCode(errors.New("plain"), CodeAuthentication))
}

func TestNewNotFound(t *testing.T) {
	domainErr := ToDomainError(NewNotFound("route"))
	assert.Equal(t, CodeNotFound, domainErr.Code)
	assert.Equal(t, "route not found", domainErr.Message)
	assert.Equal(t, http.StatusNotFound, domainErr.HTTPStatus)
}
