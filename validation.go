package identity

import (
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

const (
	MaxEmailLength    = 50
	MaxUsernameLength = 30
	MaxNameLength     = 30

	// MaxPasswordBytes is the most bcrypt will hash
	MaxPasswordBytes = 72
)

var mobilePattern = regexp.MustCompile(`^[0-9]{10}$`)

var passwordLength = validation.By(func(value interface{}) error {
	v, isNil := validation.Indirect(value)
	if isNil {
		return nil
	}
	if s, ok := v.(string); ok && len([]byte(s)) > MaxPasswordBytes {
		return errPasswordTooLong
	}
	return nil
})

var errPasswordTooLong = errors.New("must be no more than 72 bytes long")

// NormalizeEmail trims and lower-cases an email so that lookups and
// uniqueness are case insensitive.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CreateUserInput holds the fields accepted at creation time.
// The capability pointers are only honored by the privileged paths.
type CreateUserInput struct {
	Email       string `json:"email" form:"email"`
	Username    string `json:"username" form:"username"`
	Mobile      string `json:"mobile" form:"mobile"`
	FirstName   string `json:"first_name" form:"first_name"`
	LastName    string `json:"last_name" form:"last_name"`
	Password    string `json:"password" form:"password"`
	IsActive    *bool  `json:"is_active,omitempty" form:"is_active"`
	IsStaff     *bool  `json:"is_staff,omitempty" form:"is_staff"`
	IsSuperuser *bool  `json:"is_superuser,omitempty" form:"is_superuser"`
}

func (in *CreateUserInput) normalize() {
	in.Email = NormalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	in.Mobile = strings.TrimSpace(in.Mobile)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
}

// Validate will validate the payload
func (in CreateUserInput) Validate() error {
	return toValidationError(validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, validation.Length(0, MaxEmailLength), is.Email),
		validation.Field(&in.Username, validation.Required, validation.Length(0, MaxUsernameLength)),
		validation.Field(&in.Mobile, validation.Match(mobilePattern).Error("must be a 10 digit number")),
		validation.Field(&in.FirstName, validation.Length(0, MaxNameLength)),
		validation.Field(&in.LastName, validation.Length(0, MaxNameLength)),
		validation.Field(&in.Password, validation.Required, passwordLength),
	))
}

// UpdateUserInput holds the caller writable fields. A nil field is left
// untouched. Capability flags and the join date are not part of it.
type UpdateUserInput struct {
	Email     *string `json:"email,omitempty" form:"email"`
	Username  *string `json:"username,omitempty" form:"username"`
	Mobile    *string `json:"mobile,omitempty" form:"mobile"`
	FirstName *string `json:"first_name,omitempty" form:"first_name"`
	LastName  *string `json:"last_name,omitempty" form:"last_name"`
	Password  *string `json:"password,omitempty" form:"password"`
}

func (in *UpdateUserInput) normalize() {
	if in.Email != nil {
		v := NormalizeEmail(*in.Email)
		in.Email = &v
	}
	trim := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := strings.TrimSpace(*p)
		return &v
	}
	in.Username = trim(in.Username)
	in.Mobile = trim(in.Mobile)
	in.FirstName = trim(in.FirstName)
	in.LastName = trim(in.LastName)
}

// Validate will validate the payload
func (in UpdateUserInput) Validate() error {
	return toValidationError(validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.NilOrNotEmpty, validation.Length(0, MaxEmailLength), is.Email),
		validation.Field(&in.Username, validation.NilOrNotEmpty, validation.Length(0, MaxUsernameLength)),
		validation.Field(&in.Mobile, validation.Match(mobilePattern).Error("must be a 10 digit number")),
		validation.Field(&in.FirstName, validation.Length(0, MaxNameLength)),
		validation.Field(&in.LastName, validation.Length(0, MaxNameLength)),
		validation.Field(&in.Password, validation.NilOrNotEmpty, passwordLength),
	))
}

// IsEmpty reports whether the update carries no field at all
func (in UpdateUserInput) IsEmpty() bool {
	return in.Email == nil && in.Username == nil && in.Mobile == nil &&
		in.FirstName == nil && in.LastName == nil && in.Password == nil
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}

	fields := map[string]string{}

	var errs validation.Errors
	if errors.As(err, &errs) {
		for field, ferr := range errs {
			if ferr != nil {
				fields[field] = ferr.Error()
			}
		}
		return NewValidationError(fields)
	}

	fields["non_field_errors"] = err.Error()
	return NewValidationError(fields)
}
