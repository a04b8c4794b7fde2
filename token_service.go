package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

const (
	DefaultAccessTokenTTL  = 5 * time.Minute
	DefaultRefreshTokenTTL = 24 * time.Hour
)

// TokenPair is the signed access/refresh pair handed out at login
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// TokenService issues, validates and refreshes signed tokens
type TokenService interface {
	IssuePair(identity Identity) (TokenPair, error)
	IssueAccess(identity Identity) (string, error)
	Refresh(refreshToken string) (string, error)
	Validate(tokenString string) (*JWTClaims, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	keys       *KeySet
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	now        func() time.Time
	logger     Logger
}

var _ TokenService = (*TokenServiceImpl)(nil)

// NewTokenService creates a new TokenService instance
func NewTokenService(keys *KeySet, accessTTL, refreshTTL time.Duration, issuer string, audience jwt.ClaimStrings, logger Logger) *TokenServiceImpl {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}
	return &TokenServiceImpl{
		keys:       keys,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		issuer:     issuer,
		audience:   audience,
		now:        time.Now,
		logger:     normalizeLogger(logger),
	}
}

// NewTokenServiceFromConfig builds the key set and token service from cfg
func NewTokenServiceFromConfig(cfg Config, logger Logger) (*TokenServiceImpl, error) {
	keys, err := NewKeySet(
		cfg.GetSigningKeyID(),
		cfg.GetSigningKey(),
		cfg.GetSigningMethod(),
		cfg.GetVerificationKeys(),
	)
	if err != nil {
		return nil, err
	}

	return NewTokenService(
		keys,
		cfg.GetAccessTokenTTL(),
		cfg.GetRefreshTokenTTL(),
		cfg.GetIssuer(),
		jwt.ClaimStrings(cfg.GetAudience()),
		logger,
	), nil
}

// WithClock overrides the time source used for issuing and validating
func (ts *TokenServiceImpl) WithClock(now func() time.Time) *TokenServiceImpl {
	if now != nil {
		ts.now = now
	}
	return ts
}

// IssuePair creates an access and a refresh token for identity
func (ts *TokenServiceImpl) IssuePair(identity Identity) (TokenPair, error) {
	access, err := ts.IssueAccess(identity)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := ts.issue(identity, TokenTypeRefresh, ts.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{Access: access, Refresh: refresh}, nil
}

// IssueAccess creates a short lived access token for identity
func (ts *TokenServiceImpl) IssueAccess(identity Identity) (string, error) {
	return ts.issue(identity, TokenTypeAccess, ts.accessTTL)
}

func (ts *TokenServiceImpl) issue(identity Identity, tokenType TokenType, ttl time.Duration) (string, error) {
	if identity == nil {
		return "", goerrors.New("identity is required", goerrors.CategoryBadInput)
	}

	now := ts.now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  ts.audienceCopy(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID:       identity.ID(),
		Email:     identity.Email(),
		Username:  identity.Username(),
		IsAdmin:   identity.IsAdmin(),
		TokenType: tokenType,
	}

	ensureTokenID(&claims.RegisteredClaims)

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary JWT claims using the current signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	signed, err := ts.keys.Sign(claims)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

// Validate checks signature and expiry, returning the claims. It never
// consults the store.
func (ts *TokenServiceImpl) Validate(tokenString string) (*JWTClaims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods(ts.keys.Algorithms()),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ts.now),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, ts.keys.Keyfunc, parserOptions...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		ts.logger.Debug("token validation failed", "error", err)
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode).
			WithCode(goerrors.CodeUnauthorized)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("token service could not decode or validate claims")
	return nil, ErrTokenMalformed
}

// Refresh exchanges a valid refresh token for a new access token carrying
// the same identity claims. The refresh token itself is not rotated.
func (ts *TokenServiceImpl) Refresh(refreshToken string) (string, error) {
	claims, err := ts.Validate(refreshToken)
	if err != nil {
		return "", err
	}

	if claims.TokenType != TokenTypeRefresh {
		return "", ErrTokenType
	}

	return ts.IssueAccess(claims.Identity())
}

func (ts *TokenServiceImpl) audienceCopy() jwt.ClaimStrings {
	if len(ts.audience) == 0 {
		return nil
	}
	aud := make(jwt.ClaimStrings, len(ts.audience))
	copy(aud, ts.audience)
	return aud
}
