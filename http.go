package identity

import (
	"strings"

	"github.com/goliatone/go-identity/middleware/jwtware"
	"github.com/goliatone/go-router"
)

// RouteAuthenticator resolves the actor of each request from either an
// opaque token or a bearer JWT and leaves it on the request.
type RouteAuthenticator struct {
	auth   *Auther
	cfg    Config
	Logger Logger
}

func NewHTTPAuthenticator(auther *Auther, cfg Config) *RouteAuthenticator {
	return &RouteAuthenticator{
		auth:   auther,
		cfg:    cfg,
		Logger: defLogger{},
	}
}

func (a *RouteAuthenticator) WithLogger(l Logger) *RouteAuthenticator {
	a.Logger = normalizeLogger(l)
	return a
}

// ActorMiddleware never rejects anonymous requests; a credential that is
// present but invalid fails with 401.
func (a *RouteAuthenticator) ActorMiddleware() router.MiddlewareFunc {
	claimsKey := a.cfg.GetContextKey()
	if claimsKey == "" {
		claimsKey = "user"
	}

	bearer := jwtware.New(jwtware.Config{
		TokenValidator: accessOnly(a.auth.TokenService()),
		ContextKey:     claimsKey,
		AuthScheme:     a.cfg.GetAuthScheme(),
		Optional:       true,
		ErrorHandler:   a.authErrorHandler,
		SuccessHandler: func(c router.Context) error {
			claims, ok := c.Locals(claimsKey).(jwtware.AuthClaims)
			if !ok {
				return a.authErrorHandler(c, ErrNotAuthenticated)
			}

			user, err := a.auth.ActorFromSubject(c.Context(), claims.UserID())
			if err != nil {
				return a.authErrorHandler(c, err)
			}

			SetActor(c, user)
			return c.Next()
		},
	})

	return func(hf router.HandlerFunc) router.HandlerFunc {
		withBearer := bearer(hf)

		return func(c router.Context) error {
			key, ok := opaqueKey(c.GetString(router.HeaderAuthorization, ""), a.cfg.GetOpaqueScheme())
			if !ok {
				return withBearer(c)
			}

			user, err := a.auth.ActorFromOpaque(c.Context(), key)
			if err != nil {
				return a.authErrorHandler(c, err)
			}

			SetActor(c, user)
			return c.Next()
		}
	}
}

func (a *RouteAuthenticator) authErrorHandler(c router.Context, err error) error {
	if HTTPStatus(err) >= router.StatusInternalServerError && !IsTokenExpiredError(err) && !IsMalformedError(err) {
		return WriteError(c, a.Logger, err)
	}

	a.Logger.Info("authentication rejected",
		"path", c.Path(),
		"expired", IsTokenExpiredError(err),
		"malformed", IsMalformedError(err),
	)
	return WriteError(c, a.Logger, ErrNotAuthenticated)
}

func opaqueKey(header, scheme string) (string, bool) {
	if scheme == "" {
		scheme = "Token"
	}
	header = strings.TrimSpace(header)
	l := len(scheme)
	if len(header) <= l+1 || !strings.EqualFold(header[:l], scheme) || header[l] != ' ' {
		return "", false
	}
	return strings.TrimSpace(header[l+1:]), true
}
