package identity

import (
	"fmt"
	"net/http"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
)

// Options is the environment backed Config implementation.
type Options struct {
	Addr           string `env:"IDENTITY_ADDR"      envDefault:":8000"`
	DatabaseDriver string `env:"IDENTITY_DB_DRIVER" envDefault:"sqlite"`
	DatabaseDSN    string `env:"IDENTITY_DB_DSN"    envDefault:"file:identity.db?cache=shared"`

	SigningKey       string            `env:"IDENTITY_SIGNING_KEY"`
	SigningKeyID     string            `env:"IDENTITY_SIGNING_KEY_ID"`
	SigningMethod    string            `env:"IDENTITY_SIGNING_METHOD"    envDefault:"HS256"`
	VerificationKeys map[string]string `env:"IDENTITY_VERIFICATION_KEYS"`
	AccessTokenTTL   time.Duration     `env:"IDENTITY_ACCESS_TOKEN_TTL"  envDefault:"5m"`
	RefreshTokenTTL  time.Duration     `env:"IDENTITY_REFRESH_TOKEN_TTL" envDefault:"24h"`
	Issuer           string            `env:"IDENTITY_ISSUER"`
	Audience         []string          `env:"IDENTITY_AUDIENCE" envSeparator:","`

	ContextKey         string `env:"IDENTITY_CONTEXT_KEY"          envDefault:"user"`
	AuthScheme         string `env:"IDENTITY_AUTH_SCHEME"          envDefault:"Bearer"`
	OpaqueScheme       string `env:"IDENTITY_OPAQUE_SCHEME"        envDefault:"Token"`
	LoginFailureStatus int    `env:"IDENTITY_LOGIN_FAILURE_STATUS" envDefault:"404"`

	UseHashid bool   `env:"IDENTITY_USE_HASHID"`
	Debug     bool   `env:"IDENTITY_DEBUG"`
	LogLevel  string `env:"IDENTITY_LOG_LEVEL" envDefault:"info"`
}

var _ Config = Options{}

// LoadOptions reads Options from the process environment
func LoadOptions() (Options, error) {
	return parseOptions(env.Options{}, Options.Validate)
}

// LoadOptionsFrom reads Options from the given variables only
func LoadOptionsFrom(environ map[string]string) (Options, error) {
	return parseOptions(env.Options{Environment: environ}, Options.Validate)
}

// LoadDatabaseOptions reads Options from the process environment for
// tools that only touch the store. Signing settings are not required.
func LoadDatabaseOptions() (Options, error) {
	return parseOptions(env.Options{}, Options.ValidateDatabase)
}

// LoadDatabaseOptionsFrom is LoadDatabaseOptions over the given variables
func LoadDatabaseOptionsFrom(environ map[string]string) (Options, error) {
	return parseOptions(env.Options{Environment: environ}, Options.ValidateDatabase)
}

func parseOptions(opts env.Options, validate func(Options) error) (Options, error) {
	var o Options
	if err := env.ParseWithOptions(&o, opts); err != nil {
		return Options{}, fmt.Errorf("parse env: %w", err)
	}
	if err := validate(o); err != nil {
		return Options{}, err
	}
	return o, nil
}

// ValidateDatabase validates the store and logging options only
func (o Options) ValidateDatabase() error {
	return toValidationError(validation.ValidateStruct(&o,
		validation.Field(&o.DatabaseDriver, validation.Required, validation.In(DriverSQLite, "sqlite3", DriverPostgres, "pgx")),
		validation.Field(&o.DatabaseDSN, validation.Required),
		validation.Field(&o.LogLevel, validation.In("debug", "info", "warn", "error")),
	))
}

// Validate will validate the options
func (o Options) Validate() error {
	return toValidationError(validation.ValidateStruct(&o,
		validation.Field(&o.SigningKey, validation.Required),
		validation.Field(&o.SigningMethod, validation.In("HS256", "HS384", "HS512")),
		validation.Field(&o.DatabaseDriver, validation.Required, validation.In(DriverSQLite, "sqlite3", DriverPostgres, "pgx")),
		validation.Field(&o.DatabaseDSN, validation.Required),
		validation.Field(&o.AccessTokenTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&o.RefreshTokenTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&o.LoginFailureStatus, validation.In(http.StatusNotFound, http.StatusUnauthorized)),
		validation.Field(&o.LogLevel, validation.In("debug", "info", "warn", "error")),
	))
}

func (o Options) GetSigningKey() string {
	return o.SigningKey
}

func (o Options) GetSigningKeyID() string {
	return o.SigningKeyID
}

func (o Options) GetSigningMethod() string {
	return o.SigningMethod
}

func (o Options) GetVerificationKeys() map[string]string {
	return o.VerificationKeys
}

func (o Options) GetAccessTokenTTL() time.Duration {
	return o.AccessTokenTTL
}

func (o Options) GetRefreshTokenTTL() time.Duration {
	return o.RefreshTokenTTL
}

func (o Options) GetIssuer() string {
	return o.Issuer
}

func (o Options) GetAudience() []string {
	return o.Audience
}

func (o Options) GetContextKey() string {
	return o.ContextKey
}

func (o Options) GetAuthScheme() string {
	return o.AuthScheme
}

func (o Options) GetOpaqueScheme() string {
	return o.OpaqueScheme
}

func (o Options) GetLoginFailureStatus() int {
	if o.LoginFailureStatus == 0 {
		return http.StatusNotFound
	}
	return o.LoginFailureStatus
}

func (o Options) GetUseHashid() bool {
	return o.UseHashid
}
