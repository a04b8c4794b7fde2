package identity

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var registerModels sync.Once

// dbConfig is what the persistence client reads about the connection
type dbConfig struct {
	driver string
	dsn    string
}

func (c dbConfig) GetDebug() bool                { return false }
func (c dbConfig) GetDriver() string             { return c.driver }
func (c dbConfig) GetServer() string             { return c.dsn }
func (c dbConfig) GetDatabase() string           { return c.dsn }
func (c dbConfig) GetDSN() string                { return c.dsn }
func (c dbConfig) GetPingTimeout() time.Duration { return 5 * time.Second }
func (c dbConfig) GetOtelIdentifier() string     { return "identity" }

// OpenDB opens the database for the given driver, applies the embedded
// migrations and returns a bun handle over it.
func OpenDB(ctx context.Context, driver, dsn string) (*bun.DB, error) {
	var (
		sqldb   *sql.DB
		dialect schema.Dialect
		name    string
		err     error
	)

	switch strings.ToLower(driver) {
	case DriverSQLite, "sqlite3":
		sqldb, err = sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open sqlite database")
		}
		// in memory databases live as long as their single connection
		sqldb.SetMaxOpenConns(1)
		if _, err := sqldb.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
			_ = sqldb.Close()
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to enable foreign keys")
		}
		dialect, name = sqlitedialect.New(), DriverSQLite
	case DriverPostgres, "pgx":
		sqldb, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open postgres database")
		}
		dialect, name = pgdialect.New(), DriverPostgres
	default:
		return nil, goerrors.New(fmt.Sprintf("unsupported database driver %q", driver), goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	if err := sqldb.PingContext(ctx); err != nil {
		_ = sqldb.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to reach database")
	}

	registerModels.Do(func() {
		persistence.RegisterModel((*User)(nil))
		persistence.RegisterModel((*OpaqueToken)(nil))
	})

	client, err := persistence.New(dbConfig{driver: name, dsn: dsn}, sqldb, dialect)
	if err != nil {
		_ = sqldb.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create persistence client")
	}

	client.RegisterDialectMigrations(
		GetMigrationsFS(),
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets(DriverPostgres, DriverSQLite),
	)

	if err := client.ValidateDialects(ctx); err != nil {
		_ = sqldb.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "migrations differ between dialects")
	}

	if err := client.Migrate(ctx); err != nil {
		_ = sqldb.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to run migrations")
	}

	return client.DB(), nil
}
