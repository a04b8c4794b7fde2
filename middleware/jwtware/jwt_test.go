package jwtware_test

import (
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-identity/middleware/jwtware"
)

type testClaims struct {
	sub string
	exp time.Time
}

func (c testClaims) Subject() string    { return c.sub }
func (c testClaims) UserID() string     { return c.sub }
func (c testClaims) Expires() time.Time { return c.exp }

// MockValidator implements jwtware.TokenValidator
type MockValidator struct {
	mock.Mock
}

func (m *MockValidator) Validate(token string) (jwtware.AuthClaims, error) {
	args := m.Called(token)
	if c := args.Get(0); c != nil {
		return c.(jwtware.AuthClaims), args.Error(1)
	}
	return nil, args.Error(1)
}

var errInvalidToken = errors.New("token is malformed")

func passError(_ router.Context, err error) error {
	return err
}

func handlerFor(cfg jwtware.Config) router.HandlerFunc {
	return jwtware.New(cfg)(func(c router.Context) error {
		return nil
	})
}

func TestJWTWare_BasicHeaderExtraction(t *testing.T) {
	validator := new(MockValidator)
	validator.On("Validate", "good-token").Return(testClaims{sub: "12345", exp: time.Now().Add(time.Hour)}, nil)
	validator.On("Validate", "bad-token").Return(nil, errInvalidToken)

	handler := handlerFor(jwtware.Config{
		TokenValidator: validator,
		ErrorHandler:   passError,
	})

	t.Run("valid bearer token", func(t *testing.T) {
		var stored jwtware.AuthClaims

		ctx := router.NewMockContext()
		ctx.HeadersM["Authorization"] = "Bearer good-token"
		ctx.On("GetString", "Authorization", "").Return("Bearer good-token")
		ctx.On("Locals", "user", mock.Anything).Run(func(args mock.Arguments) {
			stored, _ = args.Get(1).(jwtware.AuthClaims)
		}).Return(nil)

		err := handler(ctx)
		require.NoError(t, err)
		assert.True(t, ctx.NextCalled)
		require.NotNil(t, stored)
		assert.Equal(t, "12345", stored.Subject())
	})

	t.Run("scheme is case insensitive", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.On("GetString", "Authorization", "").Return("bearer good-token")
		ctx.On("Locals", "user", mock.Anything).Return(nil)

		require.NoError(t, handler(ctx))
		assert.True(t, ctx.NextCalled)
	})

	t.Run("invalid token", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.On("GetString", "Authorization", "").Return("Bearer bad-token")

		err := handler(ctx)
		assert.ErrorIs(t, err, errInvalidToken)
		assert.False(t, ctx.NextCalled)
	})

	t.Run("missing token", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.On("GetString", "Authorization", "").Return("")

		err := handler(ctx)
		assert.ErrorIs(t, err, jwtware.ErrJWTMissingOrMalformed)
		assert.False(t, ctx.NextCalled)
	})

	t.Run("scheme without separator", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.On("GetString", "Authorization", "").Return("Bearergood-token")

		err := handler(ctx)
		assert.ErrorIs(t, err, jwtware.ErrJWTMissingOrMalformed)
	})

	validator.AssertExpectations(t)
}

func TestJWTWare_Optional(t *testing.T) {
	validator := new(MockValidator)
	validator.On("Validate", "bad-token").Return(nil, errInvalidToken)

	handler := handlerFor(jwtware.Config{
		TokenValidator: validator,
		ErrorHandler:   passError,
		Optional:       true,
	})

	tests := []struct {
		name      string
		header    string
		wantNext  bool
		wantError error
	}{
		{name: "no header passes through", header: "", wantNext: true},
		{name: "other scheme passes through", header: "Basic dXNlcjpwYXNz", wantNext: true},
		{name: "empty bearer is rejected", header: "Bearer ", wantError: jwtware.ErrJWTMissingOrMalformed},
		{name: "invalid token is still rejected", header: "Bearer bad-token", wantError: errInvalidToken},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := router.NewMockContext()
			ctx.On("GetString", "Authorization", "").Return(tc.header)

			err := handler(ctx)
			if tc.wantError != nil {
				assert.ErrorIs(t, err, tc.wantError)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.wantNext, ctx.NextCalled)
		})
	}
}

func TestJWTWare_TokenLookupSources(t *testing.T) {
	validator := new(MockValidator)
	validator.On("Validate", "cookie-token").Return(testClaims{sub: "from-cookie"}, nil)
	validator.On("Validate", "query-token").Return(testClaims{sub: "from-query"}, nil)

	handler := handlerFor(jwtware.Config{
		TokenValidator: validator,
		ErrorHandler:   passError,
		TokenLookup:    "header:Authorization,cookie:jwt,query:auth_token",
	})

	tests := []struct {
		name     string
		setToken func(*router.MockContext)
		want     string
	}{
		{
			name: "token in cookie",
			setToken: func(ctx *router.MockContext) {
				ctx.CookiesM["jwt"] = "cookie-token"
				ctx.On("GetString", "jwt", "").Return("cookie-token").Maybe()
			},
			want: "from-cookie",
		},
		{
			name: "token in query",
			setToken: func(ctx *router.MockContext) {
				ctx.QueriesM["auth_token"] = "query-token"
				ctx.On("GetString", "jwt", "").Return("").Maybe()
				ctx.On("GetString", "auth_token", "").Return("query-token").Maybe()
			},
			want: "from-query",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var stored jwtware.AuthClaims

			ctx := router.NewMockContext()
			ctx.On("GetString", "Authorization", "").Return("").Maybe()
			ctx.On("Locals", "user", mock.Anything).Run(func(args mock.Arguments) {
				stored, _ = args.Get(1).(jwtware.AuthClaims)
			}).Return(nil)
			tc.setToken(ctx)

			require.NoError(t, handler(ctx))
			assert.True(t, ctx.NextCalled)
			require.NotNil(t, stored)
			assert.Equal(t, tc.want, stored.Subject())
		})
	}
}

func TestJWTWare_Listeners(t *testing.T) {
	validator := new(MockValidator)
	validator.On("Validate", "good-token").Return(testClaims{sub: "12345"}, nil)

	var seen []string
	handler := handlerFor(jwtware.Config{
		TokenValidator: validator,
		ErrorHandler:   passError,
		ContextKey:     "claims",
		ValidationListeners: []jwtware.ValidationListener{
			nil,
			func(_ router.Context, claims jwtware.AuthClaims) error {
				seen = append(seen, claims.Subject())
				return nil
			},
		},
	})

	ctx := router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("Bearer good-token")
	ctx.On("Locals", "claims", mock.Anything).Return(nil)

	require.NoError(t, handler(ctx))
	assert.True(t, ctx.NextCalled)
	assert.Equal(t, []string{"12345"}, seen)
	ctx.AssertExpectations(t)
}

func TestJWTWare_ListenerRejects(t *testing.T) {
	validator := new(MockValidator)
	validator.On("Validate", "good-token").Return(testClaims{sub: "12345"}, nil)

	errRevoked := errors.New("revoked")
	handler := handlerFor(jwtware.Config{
		TokenValidator: validator,
		ErrorHandler:   passError,
		ValidationListeners: []jwtware.ValidationListener{
			func(router.Context, jwtware.AuthClaims) error {
				return errRevoked
			},
		},
	})

	ctx := router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("Bearer good-token")

	err := handler(ctx)
	assert.ErrorIs(t, err, errRevoked)
	assert.False(t, ctx.NextCalled)
	ctx.AssertNotCalled(t, "Locals", "user", mock.Anything)
}

func TestJWTWare_Filter(t *testing.T) {
	validator := new(MockValidator)

	handler := handlerFor(jwtware.Config{
		TokenValidator: validator,
		Filter: func(c router.Context) bool {
			return c.GetString("X-Skip", "") == "1"
		},
	})

	ctx := router.NewMockContext()
	ctx.On("GetString", "X-Skip", "").Return("1")

	require.NoError(t, handler(ctx))
	assert.True(t, ctx.NextCalled)
	validator.AssertNotCalled(t, "Validate", mock.Anything)
}

func TestJWTWare_RequiresValidator(t *testing.T) {
	assert.Panics(t, func() {
		jwtware.New(jwtware.Config{})
	})
}
