package domain

import (
	"context"
	"time"
)

// Role is the authorization role carried in the auth token.
type Role string

const (
	RoleAttendee  Role = "attendee"
	RoleOrganizer Role = "organizer"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAttendee, RoleOrganizer, RoleAdmin:
		return true
	}
	return false
}

// User is an account record.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserRepository defines the interface for user storage.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	UpdateProfile(ctx context.Context, id string, name *string) (*User, error)
}

// PasswordHasher hashes and verifies passwords (infrastructure port).
type PasswordHasher interface {
	GenerateSalt() (string, error)
	Hash(salt, password string) (string, error)
	Compare(hash, salt, password string) error
}

// TokenIssuer signs auth tokens.
type TokenIssuer interface {
	Issue(userID, email string, role Role, expiry time.Duration) (string, error)
}

// TokenVerifier validates an auth token and extracts its subject and role.
type TokenVerifier interface {
	Verify(token string) (userID string, role Role, err error)
}

// AuthService defines account and token operations.
type AuthService interface {
	// SignUp registers a user and returns it with a fresh token.
	SignUp(ctx context.Context, email, password, name string, role Role) (*User, string, error)
	// Login verifies credentials and returns the user with a fresh token.
	Login(ctx context.Context, email, password string) (*User, string, error)
	GetProfile(ctx context.Context, userID string) (*User, error)
	UpdateProfile(ctx context.Context, userID string, name *string) (*User, error)
}
