package identity

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeValidation         = "VALIDATION_FAILED"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeNotAuthenticated   = "NOT_AUTHENTICATED"
	TextCodePermissionDenied   = "PERMISSION_DENIED"
	TextCodeNotFound           = "USER_NOT_FOUND"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeTokenType          = "TOKEN_TYPE_MISMATCH"
	TextCodeInternal           = "INTERNAL_ERROR"
)

// InternalErrorMessage is the only text callers ever see for unanticipated faults
const InternalErrorMessage = "internal server error"

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned by ComparePasswordAndHash
var ErrMismatchedHashAndPassword = goerrors.New("password does not match hash", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidCredentials is the single failure of the credential verifier.
// Unknown email, wrong password, and inactive user all map to it.
var ErrInvalidCredentials = goerrors.New("Invalid Creds OR No Active User", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrNotAuthenticated is returned when a protected action has no actor
var ErrNotAuthenticated = goerrors.New("authentication credentials were not provided or are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeNotAuthenticated).
	WithCode(goerrors.CodeUnauthorized)

// ErrPermissionDenied is returned when the policy denies an action
var ErrPermissionDenied = goerrors.New("you do not have permission to perform this action", goerrors.CategoryAuthz).
	WithTextCode(TextCodePermissionDenied).
	WithCode(goerrors.CodeForbidden)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrTokenExpired is returned for signed tokens past their expiry
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail to parse or verify
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenType is returned when an access token is presented for refresh
var ErrTokenType = goerrors.New("token has wrong type", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenType).
	WithCode(goerrors.CodeUnauthorized)

// NewValidationError builds a validation error carrying field level messages
// under the "fields" metadata key.
func NewValidationError(fields map[string]string) *goerrors.Error {
	if fields == nil {
		fields = map[string]string{}
	}
	return goerrors.New("validation failed", goerrors.CategoryValidation).
		WithTextCode(TextCodeValidation).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"fields": fields})
}

func newFieldError(field, message string) *goerrors.Error {
	return NewValidationError(map[string]string{field: message})
}

func newNotFound(id string) *goerrors.Error {
	return goerrors.New(ErrIdentityNotFound.Message, goerrors.CategoryNotFound).
		WithTextCode(TextCodeNotFound).
		WithCode(goerrors.CodeNotFound).
		WithMetadata(map[string]any{"id": id})
}

func wrapInternal(err error, message string) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, message).
		WithTextCode(TextCodeInternal).
		WithCode(goerrors.CodeInternal)
}

// ValidationFields returns the field messages of a validation error
func ValidationFields(err error) (map[string]string, bool) {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return nil, false
	}
	if richErr.Category != goerrors.CategoryValidation && richErr.Category != goerrors.CategoryBadInput {
		return nil, false
	}
	fields, _ := richErr.Metadata["fields"].(map[string]string)
	if fields == nil {
		fields = map[string]string{}
	}
	return fields, true
}

// IsValidationError reports whether err is a validation or bad input error
func IsValidationError(err error) bool {
	_, ok := ValidationFields(err)
	return ok
}

// IsNotFoundError reports whether err is a not found error
func IsNotFoundError(err error) bool {
	return hasCategory(err, goerrors.CategoryNotFound)
}

// IsInvalidCredentials reports whether err is the credential verifier failure
func IsInvalidCredentials(err error) bool {
	return hasTextCode(err, TextCodeInvalidCredentials)
}

func hasCategory(err error, category goerrors.Category) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.Category == category
}

func hasTextCode(err error, code string) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if hasTextCode(err, TextCodeTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if hasTextCode(err, TextCodeTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// HTTPStatus maps an error to the status code we answer with
func HTTPStatus(err error) int {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return http.StatusInternalServerError
	}

	switch richErr.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
