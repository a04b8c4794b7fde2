package identity

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the identity record. PasswordHash never leaves the process:
// it is excluded from every JSON representation.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Email         string     `bun:"email,notnull,unique" json:"email"`
	Username      string     `bun:"username,notnull,unique" json:"username"`
	Mobile        string     `bun:"mobile,notnull" json:"mobile"`
	FirstName     string     `bun:"first_name,notnull" json:"first_name"`
	LastName      string     `bun:"last_name,notnull" json:"last_name"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	IsActive      bool       `bun:"is_active,notnull" json:"is_active"`
	IsStaff       bool       `bun:"is_staff,notnull" json:"is_staff"`
	IsSuperuser   bool       `bun:"is_superuser,notnull" json:"is_superuser"`
	DateJoined    time.Time  `bun:"date_joined,notnull" json:"date_joined"`
	LastLogin     *time.Time `bun:"last_login" json:"last_login"`
}

// Capabilities is the set of independent capability flags of a user.
// Staff and superuser are orthogonal.
type Capabilities struct {
	Active    bool `json:"is_active"`
	Staff     bool `json:"is_staff"`
	Superuser bool `json:"is_superuser"`
}

// Capabilities returns the capability flags of the user
func (u *User) Capabilities() Capabilities {
	if u == nil {
		return Capabilities{}
	}
	return Capabilities{
		Active:    u.IsActive,
		Staff:     u.IsStaff,
		Superuser: u.IsSuperuser,
	}
}

func (u *User) applyCapabilities(c Capabilities) {
	u.IsActive = c.Active
	u.IsStaff = c.Staff
	u.IsSuperuser = c.Superuser
}

// String returns the email, the sole authentication handle
func (u *User) String() string {
	if u == nil {
		return ""
	}
	return u.Email
}

// OpaqueToken is the long lived token bound to exactly one user.
type OpaqueToken struct {
	bun.BaseModel `bun:"table:auth_tokens,alias:tok"`
	Key           string    `bun:"key,pk" json:"-"`
	UserID        uuid.UUID `bun:"user_id,notnull,unique,type:uuid" json:"user_id"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

// Pagination selects a page of a listing. Page is one based.
// Search matches email, first name, last name or mobile; the nil flag
// filters are ignored.
type Pagination struct {
	Page     int
	PageSize int

	Search      string
	IsActive    *bool
	IsStaff     *bool
	IsSuperuser *bool
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	maxPage = math.MaxInt / MaxPageSize
)

func (p Pagination) normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	// keeps offset() from overflowing
	if p.Page > maxPage {
		p.Page = maxPage
	}
	return p
}

func (p Pagination) offset() int {
	return (p.Page - 1) * p.PageSize
}

// Page is a slice of users plus the total count
type Page struct {
	Count    int     `json:"count"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
	Results  []*User `json:"results"`
}
