package identity

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Tokens persists opaque tokens, one per user
type Tokens interface {
	GetOrCreateTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, key string) (*OpaqueToken, error)
	GetByKey(ctx context.Context, key string) (*OpaqueToken, error)
	GetByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*OpaqueToken, error)
	DeleteByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
}

type tokens struct {
	db *bun.DB
}

var _ Tokens = (*tokens)(nil)

// NewTokensRepository returns the bun backed opaque token repository
func NewTokensRepository(db *bun.DB) Tokens {
	return &tokens{db: db}
}

// GetOrCreateTx inserts the candidate key unless the user already holds a
// token, then reads back whichever row won. The unique index on user_id
// arbitrates concurrent callers.
func (t *tokens) GetOrCreateTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, key string) (*OpaqueToken, error) {
	candidate := &OpaqueToken{
		Key:       key,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := tx.NewInsert().
		Model(candidate).
		On("CONFLICT (user_id) DO NOTHING").
		Exec(ctx); err != nil {
		return nil, err
	}

	return t.GetByUserTx(ctx, tx, userID)
}

func (t *tokens) GetByKey(ctx context.Context, key string) (*OpaqueToken, error) {
	record := &OpaqueToken{}
	err := t.db.NewSelect().
		Model(record).
		Where("?TableAlias.key = ?", key).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isRecordNotFound(err) {
			return nil, repository.NewRecordNotFound()
		}
		return nil, err
	}
	return record, nil
}

func (t *tokens) GetByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*OpaqueToken, error) {
	record := &OpaqueToken{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"user_id": userID.String(),
				})
		}
		return nil, err
	}
	return record, nil
}

func (t *tokens) DeleteByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*OpaqueToken)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	return err
}
