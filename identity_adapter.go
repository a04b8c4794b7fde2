package identity

// UserIdentity exposes a stored User as the claim source for signed tokens.
// A zero value yields empty claims.
type UserIdentity struct {
	user *User
}

// NewIdentityFromUser returns nil for a nil user so callers can detect it
func NewIdentityFromUser(user *User) Identity {
	if user == nil {
		return nil
	}
	return UserIdentity{user: user}
}

func (u UserIdentity) ID() string {
	if u.user == nil {
		return ""
	}
	return u.user.ID.String()
}

func (u UserIdentity) Username() string { return u.orEmpty().Username }

func (u UserIdentity) Email() string { return u.orEmpty().Email }

// IsAdmin mirrors the superuser flag. Staff users are not admins.
func (u UserIdentity) IsAdmin() bool { return u.orEmpty().IsSuperuser }

func (u UserIdentity) orEmpty() *User {
	if u.user == nil {
		return &User{}
	}
	return u.user
}

// claimsIdentity re-issues tokens from the claims of a validated refresh
// token without a store lookup
type claimsIdentity struct {
	claims *JWTClaims
}

func (c claimsIdentity) ID() string       { return c.claims.UserID() }
func (c claimsIdentity) Username() string { return c.claims.Username }
func (c claimsIdentity) Email() string    { return c.claims.Email }
func (c claimsIdentity) IsAdmin() bool    { return c.claims.IsAdmin }
