package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Logger takes a message followed by alternating key value pairs
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Identity holds the attributes exposed to token issuance
type Identity interface {
	ID() string
	Username() string
	Email() string
	IsAdmin() bool
}

// Config holds identity service options
type Config interface {
	GetSigningKey() string
	GetSigningKeyID() string
	GetSigningMethod() string
	GetVerificationKeys() map[string]string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetIssuer() string
	GetAudience() []string
	GetContextKey() string
	GetAuthScheme() string
	GetOpaqueScheme() string
	GetLoginFailureStatus() int
	GetUseHashid() bool
}

// CredentialVerifier checks an email and password pair
type CredentialVerifier interface {
	Authenticate(ctx context.Context, email, password string) (*User, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// UserLookup resolves an actor by id once a token has been validated
type UserLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*User, error)
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Println("[ERR] IDENTITY " + formatKV(msg, args...))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Println("[WRN] IDENTITY " + formatKV(msg, args...))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Println("[INF] IDENTITY " + formatKV(msg, args...))
}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Println("[DBG] IDENTITY " + formatKV(msg, args...))
}

func formatKV(msg string, args ...any) string {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	return b.String()
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
