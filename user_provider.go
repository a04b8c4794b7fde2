package identity

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// UserTracker is a store we can use to retrieve users
type UserTracker interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	TrackSuccessfulLogin(ctx context.Context, user *User) error
}

// UserProvider verifies credentials against the user store
type UserProvider struct {
	store     UserTracker
	passwords PasswordAuthenticator
	activity  ActivitySink
	logger    Logger
}

var _ CredentialVerifier = (*UserProvider)(nil)

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserTracker) *UserProvider {
	return &UserProvider{
		store:     store,
		passwords: NewPasswordAuthenticator(),
		activity:  noopActivitySink{},
		logger:    defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	u.logger = normalizeLogger(l)
	return u
}

func (u *UserProvider) WithActivitySink(sink ActivitySink) *UserProvider {
	u.activity = normalizeActivitySink(sink)
	return u
}

func (u *UserProvider) WithPasswordAuthenticator(p PasswordAuthenticator) *UserProvider {
	if p != nil {
		u.passwords = p
	}
	return u
}

// Authenticate returns the active user whose password matches. Unknown
// email, wrong password and inactive user all fail with
// ErrInvalidCredentials.
func (u *UserProvider) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = NormalizeEmail(email)

	user, err := u.store.GetByEmail(ctx, email)
	if err != nil {
		if !isRecordNotFound(err) && !goerrors.IsNotFound(err) {
			u.logger.Error("failed to retrieve user during verification", "error", err)
			return nil, wrapInternal(err, "failed to retrieve user during verification")
		}
		// burn the same bcrypt work as a real comparison
		_ = u.passwords.ComparePasswordAndHash(password, dummyPasswordHash())
		u.failed(ctx, "", "unknown_email")
		return nil, ErrInvalidCredentials
	}

	if err := u.passwords.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		u.failed(ctx, user.ID.String(), "password_mismatch")
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		u.failed(ctx, user.ID.String(), "inactive")
		return nil, ErrInvalidCredentials
	}

	if err := u.store.TrackSuccessfulLogin(ctx, user); err != nil {
		u.logger.Error("failed to track successful login", "error", err)
	}

	emitActivity(ctx, u.activity, u.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		UserID:    user.ID.String(),
		ActorID:   user.ID.String(),
	})

	return user, nil
}

func (u *UserProvider) failed(ctx context.Context, userID, reason string) {
	u.logger.Debug("credential verification failed", "reason", reason)
	emitActivity(ctx, u.activity, u.logger, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		UserID:    userID,
		Metadata: map[string]any{
			"reason": reason,
		},
	})
}
