package identity_test

import (
	"context"
	"testing"

	identity "github.com/goliatone/go-identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuther(t *testing.T) (*identity.Auther, *identity.IdentityStore) {
	t.Helper()

	store, repo, _ := newTestStore(t)
	tokens := newTestTokenService(t, "k1", testSigningKey, nil)

	auther := identity.NewAuthenticator(
		identity.NewUserProvider(repo.Users()),
		identity.NewOpaqueTokens(repo),
		tokens,
		store,
	)
	return auther, store
}

func TestAutherLoginOpaque(t *testing.T) {
	ctx := context.Background()
	auther, store := newTestAuther(t)

	alice, err := store.Create(ctx, aliceInput())
	require.NoError(t, err)

	key, user, err := auther.LoginOpaque(ctx, "ALICE@example.com", "wonderland")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, user.ID)
	assert.NotNil(t, user.LastLogin)

	again, _, err := auther.LoginOpaque(ctx, "alice@example.com", "wonderland")
	require.NoError(t, err)
	assert.Equal(t, key, again)

	actor, err := auther.ActorFromOpaque(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, actor.ID)

	_, _, err = auther.LoginOpaque(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
}

func TestAutherLoginPair(t *testing.T) {
	ctx := context.Background()
	auther, store := newTestAuther(t)

	alice, err := store.Create(ctx, aliceInput())
	require.NoError(t, err)

	pair, user, err := auther.LoginPair(ctx, "alice@example.com", "wonderland")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, user.ID)

	assert.NoError(t, auther.Verify(pair.Access))
	assert.NoError(t, auther.Verify(pair.Refresh))

	access, err := auther.Refresh(pair.Refresh)
	require.NoError(t, err)
	assert.NoError(t, auther.Verify(access))

	_, err = auther.Refresh(pair.Access)
	assert.Error(t, err)

	_, _, err = auther.LoginPair(ctx, "nobody@example.com", "wonderland")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
}

func TestAutherActorFromSubject(t *testing.T) {
	ctx := context.Background()
	auther, store := newTestAuther(t)

	alice, err := store.Create(ctx, aliceInput())
	require.NoError(t, err)

	actor, err := auther.ActorFromSubject(ctx, alice.ID.String())
	require.NoError(t, err)
	assert.Equal(t, alice.ID, actor.ID)

	_, err = auther.ActorFromSubject(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, identity.ErrNotAuthenticated)

	_, err = auther.ActorFromSubject(ctx, uuid.NewString())
	assert.ErrorIs(t, err, identity.ErrNotAuthenticated)

	_, err = store.SetCapabilities(ctx, alice.ID, identity.Capabilities{})
	require.NoError(t, err)

	_, err = auther.ActorFromSubject(ctx, alice.ID.String())
	assert.ErrorIs(t, err, identity.ErrNotAuthenticated)
}
