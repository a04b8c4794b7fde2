package identity_test

import (
	"strings"
	"testing"

	identity "github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", identity.NormalizeEmail("  Alice@Example.COM "))
	assert.Equal(t, "", identity.NormalizeEmail("   "))
}

func TestCreateUserInputValidate(t *testing.T) {
	valid := identity.CreateUserInput{
		Email:    "alice@example.com",
		Username: "alice",
		Mobile:   "5551234567",
		Password: "s3cret!",
	}

	t.Run("valid input", func(t *testing.T) {
		assert.NoError(t, valid.Validate())
	})

	t.Run("mobile is optional", func(t *testing.T) {
		in := valid
		in.Mobile = ""
		assert.NoError(t, in.Validate())
	})

	t.Run("password at bcrypt limit", func(t *testing.T) {
		in := valid
		in.Password = strings.Repeat("p", identity.MaxPasswordBytes)
		assert.NoError(t, in.Validate())
	})

	tests := []struct {
		name  string
		mut   func(*identity.CreateUserInput)
		field string
	}{
		{"missing email", func(in *identity.CreateUserInput) { in.Email = "" }, "email"},
		{"invalid email", func(in *identity.CreateUserInput) { in.Email = "not-an-email" }, "email"},
		{"email too long", func(in *identity.CreateUserInput) { in.Email = strings.Repeat("a", 45) + "@example.com" }, "email"},
		{"missing username", func(in *identity.CreateUserInput) { in.Username = "" }, "username"},
		{"username too long", func(in *identity.CreateUserInput) { in.Username = strings.Repeat("u", 31) }, "username"},
		{"short mobile", func(in *identity.CreateUserInput) { in.Mobile = "12345" }, "mobile"},
		{"alpha mobile", func(in *identity.CreateUserInput) { in.Mobile = "555123456x" }, "mobile"},
		{"first name too long", func(in *identity.CreateUserInput) { in.FirstName = strings.Repeat("f", 31) }, "first_name"},
		{"missing password", func(in *identity.CreateUserInput) { in.Password = "" }, "password"},
		{"password over bcrypt limit", func(in *identity.CreateUserInput) { in.Password = strings.Repeat("p", 73) }, "password"},
		{"multibyte password over bcrypt limit", func(in *identity.CreateUserInput) { in.Password = strings.Repeat("é", 37) }, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mut(&in)

			err := in.Validate()
			require.Error(t, err)

			fields, ok := identity.ValidationFields(err)
			require.True(t, ok)
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestUpdateUserInputValidate(t *testing.T) {
	assert.NoError(t, identity.UpdateUserInput{}.Validate())
	assert.True(t, identity.UpdateUserInput{}.IsEmpty())

	in := identity.UpdateUserInput{FirstName: strPtr("Alice")}
	assert.NoError(t, in.Validate())
	assert.False(t, in.IsEmpty())

	err := identity.UpdateUserInput{Email: strPtr("")}.Validate()
	fields, ok := identity.ValidationFields(err)
	require.True(t, ok)
	assert.Contains(t, fields, "email")

	err = identity.UpdateUserInput{Mobile: strPtr("123")}.Validate()
	fields, ok = identity.ValidationFields(err)
	require.True(t, ok)
	assert.Contains(t, fields, "mobile")

	err = identity.UpdateUserInput{Password: strPtr(strings.Repeat("p", 80))}.Validate()
	fields, ok = identity.ValidationFields(err)
	require.True(t, ok)
	assert.Contains(t, fields, "password")

	assert.NoError(t, identity.UpdateUserInput{Password: strPtr(strings.Repeat("p", identity.MaxPasswordBytes))}.Validate())
}
