package identity

import "github.com/goliatone/go-identity/middleware/jwtware"

// TokenValidatorFunc adapts a function into a jwtware.TokenValidator.
type TokenValidatorFunc func(tokenString string) (*JWTClaims, error)

// Validate satisfies the jwtware.TokenValidator interface.
func (f TokenValidatorFunc) Validate(tokenString string) (jwtware.AuthClaims, error) {
	if f == nil {
		return nil, ErrTokenMalformed
	}
	claims, err := f(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// accessOnly rejects refresh tokens presented as bearer credentials
func accessOnly(tokens TokenService) TokenValidatorFunc {
	return func(tokenString string) (*JWTClaims, error) {
		claims, err := tokens.Validate(tokenString)
		if err != nil {
			return nil, err
		}
		if claims.Type() != TokenTypeAccess {
			return nil, ErrTokenType
		}
		return claims, nil
	}
}
