package identity_test

import (
	"context"
	"sync"
	"testing"

	identity "github.com/goliatone/go-identity"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

const testSigningKey = "test-signing-key-with-enough-entropy"

// MockUserTracker implements identity.UserTracker
type MockUserTracker struct {
	mock.Mock
}

func (m *MockUserTracker) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if u := args.Get(0); u != nil {
		return u.(*identity.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserTracker) TrackSuccessfulLogin(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// recordingSink keeps every activity event it receives
type recordingSink struct {
	mu     sync.Mutex
	events []identity.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event identity.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) types() []identity.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]identity.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

// newTestDB returns a migrated in memory SQLite database
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := identity.OpenDB(context.Background(), identity.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func newTestOptions(t *testing.T, extra map[string]string) identity.Options {
	t.Helper()

	environ := map[string]string{
		"IDENTITY_SIGNING_KEY":    testSigningKey,
		"IDENTITY_SIGNING_KEY_ID": "k1",
		"IDENTITY_DB_DSN":         ":memory:",
	}
	for k, v := range extra {
		environ[k] = v
	}

	opts, err := identity.LoadOptionsFrom(environ)
	require.NoError(t, err)
	return opts
}

func boolPtr(v bool) *bool {
	return &v
}

func strPtr(v string) *string {
	return &v
}
