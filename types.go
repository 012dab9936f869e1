package goIAM

import (
	"context"
	"strings"
	"time"

	"github.com/MrEthical07/goIAM/refresh"
)

// Role is the authorization role stored on an account and embedded in access
// tokens.
type Role string

const (
	RoleRegular Role = "regular"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleRegular || r == RoleAdmin
}

// Account is the persisted account record. PasswordHash never leaves the
// Engine; read paths return Profile or AccountSummary instead.
type Account struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	FirstName    string
	LastName     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is an Account without its password hash.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AccountSummary is the administrative listing shape.
type AccountSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

func (a *Account) profile() *Profile {
	return &Profile{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		Role:      a.Role,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func (a *Account) summary() AccountSummary {
	return AccountSummary{
		ID:       a.ID,
		Username: a.Username,
		Email:    a.Email,
		Role:     a.Role,
	}
}

// SignUpInput carries the fields of a new account.
type SignUpInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// AccountPatch is a partial profile update. Nil or empty fields are left
// untouched; every other field overwrites independently.
type AccountPatch struct {
	FirstName *string
	LastName  *string
	Username  *string
	Email     *string
}

// apply writes the provided fields onto a and reports whether anything
// changed.
func (p AccountPatch) apply(a *Account) bool {
	changed := false
	set := func(dst *string, src *string) {
		if src == nil {
			return
		}
		v := strings.TrimSpace(*src)
		if v == "" || v == *dst {
			return
		}
		*dst = v
		changed = true
	}
	set(&a.FirstName, p.FirstName)
	set(&a.LastName, p.LastName)
	set(&a.Username, p.Username)
	set(&a.Email, p.Email)
	return changed
}

// TokenPair is the access/refresh pair returned by every issuing operation.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// ActiveUser is the identity carried by a verified access token.
type ActiveUser struct {
	ID       string `json:"sub"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// AccountStore is the persistence boundary for accounts. Implementations
// must be safe for concurrent use.
type AccountStore interface {
	// FindByUsername and FindByID return an error wrapping ErrAccountNotFound
	// when no record matches.
	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	// Save inserts or updates. A unique constraint clash returns an error
	// wrapping ErrDuplicateKey and leaves no partial record.
	Save(ctx context.Context, account *Account) error
	// Remove returns an error wrapping ErrAccountNotFound when id is absent.
	Remove(ctx context.Context, id string) error
	List(ctx context.Context) ([]Account, error)
}

// RefreshTokenStore holds the single live refresh-token id per account.
// *refresh.Store is the production implementation.
type RefreshTokenStore interface {
	Insert(ctx context.Context, accountID, tokenID string) error
	// InsertUntil stores tokenID with an absolute expiry no later than the
	// refresh token's exp.
	InsertUntil(ctx context.Context, accountID, tokenID string, expiresAt time.Time) error
	Validate(ctx context.Context, accountID, tokenID string) (refresh.Status, error)
	Invalidate(ctx context.Context, accountID string) error
	Consume(ctx context.Context, accountID, tokenID string) (refresh.Status, error)
	TrackReplay(ctx context.Context, accountID string, window time.Duration) (int64, error)
	Ping(ctx context.Context) (time.Duration, error)
}
