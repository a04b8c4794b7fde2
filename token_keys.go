package identity

import (
	"fmt"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

const DefaultSigningMethod = "HS256"

// KeySet holds the current signing key and every key still accepted for
// verification, addressed by kid. Tokens without a kid verify against the
// current key.
type KeySet struct {
	kid    string
	key    []byte
	method jwt.SigningMethod
	jwks   *keyfunc.JWKS
}

// NewKeySet builds the key set. verification may repeat the current key;
// the current key always wins for its own kid.
func NewKeySet(kid, signingKey, method string, verification map[string]string) (*KeySet, error) {
	if signingKey == "" {
		return nil, goerrors.New("signing key must not be empty", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	if method == "" {
		method = DefaultSigningMethod
	}

	sm := jwt.GetSigningMethod(method)
	if _, ok := sm.(*jwt.SigningMethodHMAC); !ok {
		return nil, goerrors.New(fmt.Sprintf("unsupported signing method %q", method), goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	givenKeys := make(map[string]keyfunc.GivenKey, len(verification)+1)
	for id, secret := range verification {
		if id == "" || secret == "" {
			continue
		}
		givenKeys[id] = keyfunc.NewGivenCustom([]byte(secret), keyfunc.GivenKeyOptions{
			Algorithm: sm.Alg(),
		})
	}
	if kid != "" {
		givenKeys[kid] = keyfunc.NewGivenCustom([]byte(signingKey), keyfunc.GivenKeyOptions{
			Algorithm: sm.Alg(),
		})
	}

	return &KeySet{
		kid:    kid,
		key:    []byte(signingKey),
		method: sm,
		jwks:   keyfunc.NewGiven(givenKeys),
	}, nil
}

// Keyfunc resolves the verification key for a parsed token
func (k *KeySet) Keyfunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}

	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		if token.Method.Alg() != k.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return k.key, nil
	}

	return k.jwks.Keyfunc(token)
}

// Sign signs claims with the current key, stamping its kid
func (k *KeySet) Sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(k.method, claims)
	if k.kid != "" {
		token.Header["kid"] = k.kid
	}
	return token.SignedString(k.key)
}

// Algorithms lists the accepted algorithms for the parser
func (k *KeySet) Algorithms() []string {
	return []string{k.method.Alg()}
}
