package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// IdentityStore owns the user record. It validates and normalizes input,
// hashes passwords and guards the capability flags before handing rows
// to the repositories.
type IdentityStore struct {
	repo      RepositoryManager
	passwords PasswordAuthenticator
	activity  ActivitySink
	logger    Logger
	useHashid bool
}

// NewIdentityStore returns a store over the given repositories
func NewIdentityStore(repo RepositoryManager) *IdentityStore {
	return &IdentityStore{
		repo:      repo,
		passwords: NewPasswordAuthenticator(),
		activity:  noopActivitySink{},
		logger:    defLogger{},
	}
}

func (s *IdentityStore) WithLogger(l Logger) *IdentityStore {
	s.logger = normalizeLogger(l)
	return s
}

func (s *IdentityStore) WithActivitySink(sink ActivitySink) *IdentityStore {
	s.activity = normalizeActivitySink(sink)
	return s
}

func (s *IdentityStore) WithPasswordAuthenticator(p PasswordAuthenticator) *IdentityStore {
	if p != nil {
		s.passwords = p
	}
	return s
}

// WithHashid derives user ids from the email instead of random UUIDs
func (s *IdentityStore) WithHashid(enabled bool) *IdentityStore {
	s.useHashid = enabled
	return s
}

// Create registers a new active user. Capability flags in the input are
// ignored: self registration never grants privileges. Registration counts
// as the first login.
func (s *IdentityStore) Create(ctx context.Context, in CreateUserInput) (*User, error) {
	return s.create(ctx, in, Capabilities{Active: true}, true)
}

// CreateSuperuser is the administrative construction path. Staff, superuser
// and active all default to true; an explicit false for staff or superuser
// is rejected before anything is written.
func (s *IdentityStore) CreateSuperuser(ctx context.Context, in CreateUserInput) (*User, error) {
	fields := map[string]string{}
	if in.IsStaff != nil && !*in.IsStaff {
		fields["is_staff"] = "Superuser must have is_staff=True."
	}
	if in.IsSuperuser != nil && !*in.IsSuperuser {
		fields["is_superuser"] = "Superuser must have is_superuser=True."
	}
	if len(fields) > 0 {
		return nil, NewValidationError(fields)
	}

	if NormalizeEmail(in.Email) == "" {
		return nil, newFieldError("email", "The given email must be set")
	}

	if in.Username == "" {
		in.Username = NormalizeEmail(in.Email)
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	return s.create(ctx, in, Capabilities{
		Active:    active,
		Staff:     true,
		Superuser: true,
	}, false)
}

func (s *IdentityStore) create(ctx context.Context, in CreateUserInput, caps Capabilities, stampLogin bool) (*User, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	hash, err := s.passwords.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		Email:        in.Email,
		Username:     in.Username,
		Mobile:       in.Mobile,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
	}
	user.applyCapabilities(caps)
	if stampLogin {
		now := time.Now().UTC()
		user.LastLogin = &now
	}

	if s.useHashid {
		if id, err := hashid.NewUUID(in.Email); err == nil {
			user.ID = id
		}
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.ensureUnique(ctx, tx, in.Email, in.Username, uuid.Nil); err != nil {
			return err
		}

		created, err := s.repo.Users().CreateTx(ctx, tx, user)
		if err != nil {
			return err
		}
		user = created
		return nil
	})
	if err != nil {
		return nil, s.storeError(err, "could not create user")
	}

	s.logger.Info("user created", "user_id", user.ID.String(), "staff", user.IsStaff, "superuser", user.IsSuperuser)
	emitActivity(ctx, s.activity, s.logger, ActivityEvent{
		EventType: ActivityEventUserCreated,
		UserID:    user.ID.String(),
	})

	return user, nil
}

// Update applies the caller writable fields of in to the user. Flags and
// the join date cannot be reached from here.
func (s *IdentityStore) Update(ctx context.Context, actor *User, id uuid.UUID, in UpdateUserInput) (*User, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var hash string
	if in.Password != nil {
		h, err := s.passwords.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		hash = h
	}

	var updated *User
	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := s.repo.Users().GetByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}

		email, username := "", ""
		if in.Email != nil && *in.Email != current.Email {
			email = *in.Email
		}
		if in.Username != nil && *in.Username != current.Username {
			username = *in.Username
		}
		if err := s.ensureUnique(ctx, tx, email, username, id); err != nil {
			return err
		}

		record := &User{ID: id}
		columns := make([]string, 0, 6)
		if in.Email != nil {
			record.Email = *in.Email
			columns = append(columns, "email")
		}
		if in.Username != nil {
			record.Username = *in.Username
			columns = append(columns, "username")
		}
		if in.Mobile != nil {
			record.Mobile = *in.Mobile
			columns = append(columns, "mobile")
		}
		if in.FirstName != nil {
			record.FirstName = *in.FirstName
			columns = append(columns, "first_name")
		}
		if in.LastName != nil {
			record.LastName = *in.LastName
			columns = append(columns, "last_name")
		}
		if in.Password != nil {
			record.PasswordHash = hash
			columns = append(columns, "password_hash")
		}

		updated, err = s.repo.Users().UpdateColumnsTx(ctx, tx, record, columns...)
		return err
	})
	if err != nil {
		return nil, s.storeError(err, "could not update user")
	}

	emitActivity(ctx, s.activity, s.logger, ActivityEvent{
		EventType: ActivityEventUserUpdated,
		ActorID:   actorID(actor),
		UserID:    id.String(),
		Metadata: map[string]any{
			"password_changed": in.Password != nil,
		},
	})

	return updated, nil
}

// Get returns the user with the given id
func (s *IdentityStore) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := s.repo.Users().GetByID(ctx, id)
	if err != nil {
		return nil, s.storeError(err, "could not retrieve user")
	}
	return user, nil
}

// Delete removes the user and its opaque token. There is no soft delete.
func (s *IdentityStore) Delete(ctx context.Context, actor *User, id uuid.UUID) error {
	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.repo.Tokens().DeleteByUserTx(ctx, tx, id); err != nil {
			return err
		}
		return s.repo.Users().DeleteTx(ctx, tx, id)
	})
	if err != nil {
		return s.storeError(err, "could not delete user")
	}

	s.logger.Info("user deleted", "user_id", id.String(), "actor_id", actorID(actor))
	emitActivity(ctx, s.activity, s.logger, ActivityEvent{
		EventType: ActivityEventUserDeleted,
		ActorID:   actorID(actor),
		UserID:    id.String(),
	})
	return nil
}

// List returns a page of users ordered by email
func (s *IdentityStore) List(ctx context.Context, p Pagination) (Page, error) {
	page, err := s.repo.Users().List(ctx, p)
	if err != nil {
		return Page{}, s.storeError(err, "could not list users")
	}
	return page, nil
}

// SetCapabilities is the privileged path that writes the capability flags
func (s *IdentityStore) SetCapabilities(ctx context.Context, id uuid.UUID, caps Capabilities) (*User, error) {
	var updated *User
	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		updated, err = s.repo.Users().UpdateCapabilitiesTx(ctx, tx, id, caps)
		return err
	})
	if err != nil {
		return nil, s.storeError(err, "could not update capabilities")
	}

	emitActivity(ctx, s.activity, s.logger, ActivityEvent{
		EventType: ActivityEventCapabilities,
		UserID:    id.String(),
		Metadata: map[string]any{
			"is_active":    caps.Active,
			"is_staff":     caps.Staff,
			"is_superuser": caps.Superuser,
		},
	})
	return updated, nil
}

func (s *IdentityStore) ensureUnique(ctx context.Context, tx bun.IDB, email, username string, exclude uuid.UUID) error {
	fields := map[string]string{}

	if email != "" {
		taken, err := s.repo.Users().EmailTakenTx(ctx, tx, email, exclude)
		if err != nil {
			return err
		}
		if taken {
			fields["email"] = uniqueMessage("email")
		}
	}

	if username != "" {
		taken, err := s.repo.Users().UsernameTakenTx(ctx, tx, username, exclude)
		if err != nil {
			return err
		}
		if taken {
			fields["username"] = uniqueMessage("username")
		}
	}

	if len(fields) > 0 {
		return NewValidationError(fields)
	}
	return nil
}

// storeError keeps typed errors and wraps anything else as internal
func (s *IdentityStore) storeError(err error, message string) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Category != goerrors.CategoryInternal {
		return err
	}
	if isRecordNotFound(err) {
		return ErrIdentityNotFound
	}
	s.logger.Error(message, "error", err)
	return wrapInternal(err, message)
}

func actorID(actor *User) string {
	if actor == nil {
		return ""
	}
	return actor.ID.String()
}
