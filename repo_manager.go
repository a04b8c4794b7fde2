package identity

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes the users and tokens repositories and the
// transaction boundary they share
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	DB() bun.IDB
	Users() Users
	Tokens() Tokens
}

type mngr struct {
	db     *bun.DB
	users  Users
	tokens Tokens
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:     db,
		users:  NewUsersRepository(db),
		tokens: NewTokensRepository(db),
	}
}

func (m *mngr) Validate() error {
	if m.db == nil {
		return fmt.Errorf("repository manager: database handle is nil")
	}
	for name, ok := range map[string]bool{
		"users":  m.users != nil,
		"tokens": m.tokens != nil,
	} {
		if !ok {
			return fmt.Errorf("repository manager: %s repository should be initialized", name)
		}
	}
	return nil
}

func (m *mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

// RunInTx refuses to open a transaction for an already cancelled context
func (m *mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.db.RunInTx(ctx, opts, f)
}

func (m *mngr) DB() bun.IDB    { return m.db }
func (m *mngr) Users() Users   { return m.users }
func (m *mngr) Tokens() Tokens { return m.tokens }
