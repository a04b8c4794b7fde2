package identity_test

import (
	"errors"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	identity "github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", identity.NewValidationError(map[string]string{"email": "required"}), http.StatusBadRequest},
		{"invalid credentials", identity.ErrInvalidCredentials, http.StatusUnauthorized},
		{"not authenticated", identity.ErrNotAuthenticated, http.StatusUnauthorized},
		{"permission denied", identity.ErrPermissionDenied, http.StatusForbidden},
		{"not found", identity.ErrIdentityNotFound, http.StatusNotFound},
		{"conflict", goerrors.New("taken", goerrors.CategoryConflict), http.StatusConflict},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, identity.HTTPStatus(tt.err))
		})
	}
}

func TestValidationFields(t *testing.T) {
	err := identity.NewValidationError(map[string]string{"email": "user with this email already exists."})

	fields, ok := identity.ValidationFields(err)
	assert.True(t, ok)
	assert.Equal(t, "user with this email already exists.", fields["email"])
	assert.True(t, identity.IsValidationError(err))

	_, ok = identity.ValidationFields(identity.ErrPermissionDenied)
	assert.False(t, ok)

	_, ok = identity.ValidationFields(errors.New("plain"))
	assert.False(t, ok)
}

func TestErrorPredicates(t *testing.T) {
	assert.True(t, identity.IsInvalidCredentials(identity.ErrInvalidCredentials))
	assert.False(t, identity.IsInvalidCredentials(identity.ErrNotAuthenticated))

	assert.True(t, identity.IsNotFoundError(identity.ErrIdentityNotFound))
	assert.False(t, identity.IsNotFoundError(nil))

	assert.True(t, identity.IsTokenExpiredError(identity.ErrTokenExpired))
	assert.True(t, identity.IsTokenExpiredError(errors.New("token has invalid claims: token is expired")))
	assert.False(t, identity.IsTokenExpiredError(nil))

	assert.True(t, identity.IsMalformedError(identity.ErrTokenMalformed))
	assert.True(t, identity.IsMalformedError(errors.New("missing or malformed JWT")))
	assert.False(t, identity.IsMalformedError(errors.New("other")))
}

func TestSentinelsMatchByIdentity(t *testing.T) {
	assert.ErrorIs(t, identity.ErrInvalidCredentials, identity.ErrInvalidCredentials)
	assert.Equal(t, "Invalid Creds OR No Active User", identity.ErrInvalidCredentials.Message)
}
