package jwtware

import (
	"testing"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/require"
)

func TestGetExtractorsSkipsUnknownSources(t *testing.T) {
	extractors := GetExtractors("header:Authorization, cookie:jwt ,bogus:x,query")
	require.Len(t, extractors, 2)
}

func TestHasScheme(t *testing.T) {
	cfg := GetDefaultConfig(Config{TokenValidator: nopValidator{}})

	cases := map[string]bool{
		"":                   false,
		"Basic dXNlcjpwYXNz": false,
		"Token abc":          false,
		"Bearer abc":         true,
		"bearer":             true,
	}

	for header, want := range cases {
		ctx := router.NewMockContext()
		ctx.On("GetString", router.HeaderAuthorization, "").Return(header)

		require.Equal(t, want, hasScheme(ctx, cfg), header)
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig(Config{TokenValidator: nopValidator{}})
	require.Equal(t, "user", cfg.ContextKey)
	require.Equal(t, "Bearer", cfg.AuthScheme)
	require.Equal(t, defaultTokenLookup, cfg.TokenLookup)
	require.NotNil(t, cfg.SuccessHandler)
	require.NotNil(t, cfg.ErrorHandler)
}

type nopValidator struct{}

func (nopValidator) Validate(string) (AuthClaims, error) {
	return nil, ErrJWTMissingOrMalformed
}
