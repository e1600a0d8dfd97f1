package domain

import (
	"errors"
	"time"
)

// Common validation errors
var (
	ErrEmptyUsername    = errors.New("username cannot be empty")
	ErrInvalidUsername  = errors.New("username must be 3-32 characters of letters, digits, '_' or '-'")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters long")
	ErrPasswordTooLong  = errors.New("password must be at most 72 characters long")
	ErrEmptyPassword    = errors.New("password cannot be empty")
)

// User represents an account on the translation service. The username doubles
// as the name of the user's data directory, which is why its character set is
// restricted.
type User struct {
	Username       string    `json:"username"`
	HashedPassword string    `json:"-"` // Never expose password hash in JSON
	IsAdmin        bool      `json:"is_admin"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewUser creates a new User with the given username and admin flag.
// The password is validated here but hashing is the caller's responsibility.
func NewUser(username, password string, isAdmin bool) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	return &User{
		Username:  username,
		IsAdmin:   isAdmin,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ValidateUsername checks that a username is usable both as an identity and
// as a directory name.
func ValidateUsername(username string) error {
	if username == "" {
		return ErrEmptyUsername
	}
	if len(username) < 3 || len(username) > 32 {
		return ErrInvalidUsername
	}
	for _, c := range username {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '-':
		default:
			return ErrInvalidUsername
		}
	}
	return nil
}

// ValidatePassword checks password length bounds. The upper bound is bcrypt's
// practical input limit.
func ValidatePassword(password string) error {
	switch {
	case password == "":
		return ErrEmptyPassword
	case len(password) < 8:
		return ErrPasswordTooShort
	case len(password) > 72:
		return ErrPasswordTooLong
	}
	return nil
}
