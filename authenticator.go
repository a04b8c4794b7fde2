package identity

import (
	"context"

	"github.com/google/uuid"
)

// Auther ties credential verification to the two token mechanisms
type Auther struct {
	verifier CredentialVerifier
	opaque   *OpaqueTokens
	tokens   TokenService
	users    UserLookup
	logger   Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(verifier CredentialVerifier, opaque *OpaqueTokens, tokens TokenService, users UserLookup) *Auther {
	return &Auther{
		verifier: verifier,
		opaque:   opaque,
		tokens:   tokens,
		users:    users,
		logger:   defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger)
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// LoginOpaque verifies the credentials and returns the user's opaque token
func (s *Auther) LoginOpaque(ctx context.Context, email, password string) (string, *User, error) {
	user, err := s.verifier.Authenticate(ctx, email, password)
	if err != nil {
		return "", nil, err
	}

	key, err := s.opaque.Issue(ctx, user)
	if err != nil {
		return "", nil, err
	}

	return key, user, nil
}

// LoginPair verifies the credentials and returns a signed token pair
func (s *Auther) LoginPair(ctx context.Context, email, password string) (TokenPair, *User, error) {
	user, err := s.verifier.Authenticate(ctx, email, password)
	if err != nil {
		return TokenPair{}, nil, err
	}

	pair, err := s.tokens.IssuePair(NewIdentityFromUser(user))
	if err != nil {
		s.logger.Error("login failed to issue token pair", "user_id", user.ID.String(), "error", err)
		return TokenPair{}, nil, err
	}

	return pair, user, nil
}

// Refresh exchanges a refresh token for a new access token
func (s *Auther) Refresh(refreshToken string) (string, error) {
	return s.tokens.Refresh(refreshToken)
}

// Verify reports whether a signed token of either type is valid
func (s *Auther) Verify(token string) error {
	_, err := s.tokens.Validate(token)
	return err
}

// ActorFromOpaque resolves the actor presenting an opaque token
func (s *Auther) ActorFromOpaque(ctx context.Context, key string) (*User, error) {
	return s.opaque.Authenticate(ctx, key)
}

// ActorFromSubject loads the active user named by the user id claim of a
// validated token
func (s *Auther) ActorFromSubject(ctx context.Context, userID string) (*User, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrNotAuthenticated
	}

	user, err := s.users.Get(ctx, id)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, ErrNotAuthenticated
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrNotAuthenticated
	}
	return user, nil
}
