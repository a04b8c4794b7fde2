package identity

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
)

// Users is the persistence surface for identities
type Users interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)

	EmailTakenTx(ctx context.Context, tx bun.IDB, email string, exclude uuid.UUID) (bool, error)
	UsernameTakenTx(ctx context.Context, tx bun.IDB, username string, exclude uuid.UUID) (bool, error)

	CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	UpdateColumnsTx(ctx context.Context, tx bun.IDB, record *User, columns ...string) (*User, error)
	UpdateCapabilitiesTx(ctx context.Context, tx bun.IDB, id uuid.UUID, caps Capabilities) (*User, error)
	DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	List(ctx context.Context, p Pagination) (Page, error)

	TrackSuccessfulLogin(ctx context.Context, user *User) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error
}

type users struct {
	repo repository.Repository[*User]
	db   *bun.DB
}

var _ Users = (*users)(nil)

// NewUsersRepository returns a bun backed Users repository
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	return &users{
		repo: repo,
		db:   db,
	}
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := a.repo.GetByID(ctx, id.String())
	if err != nil {
		if isRecordNotFound(err) {
			return nil, newNotFound(id.String())
		}
		return nil, err
	}
	return user, nil
}

func (a *users) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isRecordNotFound(err) {
			return nil, newNotFound(id.String())
		}
		return nil, err
	}
	return record, nil
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	email = NormalizeEmail(email)

	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, err
	}
	return record, nil
}

func (a *users) EmailTakenTx(ctx context.Context, tx bun.IDB, email string, exclude uuid.UUID) (bool, error) {
	return a.columnTaken(ctx, tx, "email", NormalizeEmail(email), exclude)
}

func (a *users) UsernameTakenTx(ctx context.Context, tx bun.IDB, username string, exclude uuid.UUID) (bool, error) {
	return a.columnTaken(ctx, tx, "username", username, exclude)
}

func (a *users) columnTaken(ctx context.Context, tx bun.IDB, column, value string, exclude uuid.UUID) (bool, error) {
	q := tx.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.? = ?", bun.Ident(column), value)

	if exclude != uuid.Nil {
		q = q.Where("?TableAlias.id != ?", exclude)
	}

	return q.Exists(ctx)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	prepareUserDefaults(record)

	user, err := a.repo.CreateTx(ctx, tx, record)
	if err != nil {
		return nil, mapConstraintError(err)
	}
	return user, nil
}

func (a *users) UpdateColumnsTx(ctx context.Context, tx bun.IDB, record *User, columns ...string) (*User, error) {
	if len(columns) > 0 {
		res, err := tx.NewUpdate().
			Model(record).
			Column(columns...).
			WherePK().
			Exec(ctx)
		if err != nil {
			return nil, mapConstraintError(err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return nil, newNotFound(record.ID.String())
		}
	}

	return a.GetByIDTx(ctx, tx, record.ID)
}

func (a *users) UpdateCapabilitiesTx(ctx context.Context, tx bun.IDB, id uuid.UUID, caps Capabilities) (*User, error) {
	record := &User{ID: id}
	record.applyCapabilities(caps)
	return a.UpdateColumnsTx(ctx, tx, record, "is_active", "is_staff", "is_superuser")
}

func (a *users) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*User)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return newNotFound(id.String())
	}
	return nil
}

// List returns a page of users ordered by email
func (a *users) List(ctx context.Context, p Pagination) (Page, error) {
	p = p.normalize()

	records := make([]*User, 0, p.PageSize)
	q := a.db.NewSelect().Model(&records)

	if term := strings.ToLower(strings.TrimSpace(p.Search)); term != "" {
		like := "%" + term + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("LOWER(?TableAlias.email) LIKE ?", like).
				WhereOr("LOWER(?TableAlias.first_name) LIKE ?", like).
				WhereOr("LOWER(?TableAlias.last_name) LIKE ?", like).
				WhereOr("?TableAlias.mobile LIKE ?", like)
		})
	}
	if p.IsActive != nil {
		q = q.Where("?TableAlias.is_active = ?", *p.IsActive)
	}
	if p.IsStaff != nil {
		q = q.Where("?TableAlias.is_staff = ?", *p.IsStaff)
	}
	if p.IsSuperuser != nil {
		q = q.Where("?TableAlias.is_superuser = ?", *p.IsSuperuser)
	}

	count, err := q.
		OrderExpr("?TableAlias.email ASC").
		Limit(p.PageSize).
		Offset(p.offset()).
		ScanAndCount(ctx)
	if err != nil {
		return Page{}, err
	}

	return Page{
		Count:    count,
		Page:     p.Page,
		PageSize: p.PageSize,
		Results:  records,
	}, nil
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, user)
}

func (a *users) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	loggedInAt := time.Now().UTC()
	_, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("last_login = ?", loggedInAt).
		Where("id = ?", user.ID).
		Exec(ctx)
	if err != nil {
		return err
	}

	user.LastLogin = &loggedInAt
	return nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	record.Email = NormalizeEmail(record.Email)

	if record.DateJoined.IsZero() {
		record.DateJoined = time.Now().UTC()
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

func isRecordNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err)
}

// mapConstraintError turns unique violations on users into field level
// validation errors. Both postgres and sqlite are recognized.
func mapConstraintError(err error) error {
	if err == nil {
		return nil
	}

	if field, ok := classifyUniqueViolation(err); ok {
		return newFieldError(field, uniqueMessage(field))
	}
	return err
}

func classifyUniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != "23505" {
			return "", false
		}
		c := strings.ToLower(pgErr.ConstraintName)
		switch {
		case strings.Contains(c, "email"):
			return "email", true
		case strings.Contains(c, "username"):
			return "username", true
		}
		return "", false
	}

	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return "", false
	}
	switch {
	case strings.Contains(msg, "users.email"):
		return "email", true
	case strings.Contains(msg, "users.username"):
		return "username", true
	}
	return "", false
}

func uniqueMessage(field string) string {
	return "user with this " + field + " already exists."
}
