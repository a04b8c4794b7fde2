package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/uptrace/bun"
)

const opaqueKeyBytes = 20

// OpaqueTokens issues and resolves the long lived per user token
type OpaqueTokens struct {
	repo   RepositoryManager
	logger Logger
}

// NewOpaqueTokens returns the opaque token issuer
func NewOpaqueTokens(repo RepositoryManager) *OpaqueTokens {
	return &OpaqueTokens{
		repo:   repo,
		logger: defLogger{},
	}
}

func (o *OpaqueTokens) WithLogger(l Logger) *OpaqueTokens {
	o.logger = normalizeLogger(l)
	return o
}

// Issue returns the user's token, creating it on first use. Repeated and
// concurrent calls for the same user all observe the same key.
func (o *OpaqueTokens) Issue(ctx context.Context, user *User) (string, error) {
	if user == nil {
		return "", ErrNotAuthenticated
	}

	candidate, err := generateOpaqueKey()
	if err != nil {
		return "", wrapInternal(err, "failed to generate token key")
	}

	var token *OpaqueToken
	err = o.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		token, err = o.repo.Tokens().GetOrCreateTx(ctx, tx, user.ID, candidate)
		return err
	})
	if err != nil {
		o.logger.Error("failed to issue opaque token", "user_id", user.ID.String(), "error", err)
		return "", wrapInternal(err, "failed to issue token")
	}

	return token.Key, nil
}

// Authenticate resolves the active user holding key
func (o *OpaqueTokens) Authenticate(ctx context.Context, key string) (*User, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrNotAuthenticated
	}

	token, err := o.repo.Tokens().GetByKey(ctx, key)
	if err != nil {
		if isRecordNotFound(err) {
			return nil, ErrNotAuthenticated
		}
		return nil, wrapInternal(err, "failed to resolve token")
	}

	user, err := o.repo.Users().GetByID(ctx, token.UserID)
	if err != nil {
		if IsNotFoundError(err) || isRecordNotFound(err) {
			return nil, ErrNotAuthenticated
		}
		return nil, wrapInternal(err, "failed to resolve token owner")
	}

	if !user.IsActive {
		return nil, ErrNotAuthenticated
	}
	return user, nil
}

func generateOpaqueKey() (string, error) {
	b := make([]byte, opaqueKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
