// Package file implements the store interfaces on top of flat JSON files.
// It is the only persistence backend the service needs: user records live in
// a single users.json under the data directory.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/babelpdf/babelpdf-api/internal/domain"
	"github.com/babelpdf/babelpdf-api/internal/service/auth"
	"github.com/babelpdf/babelpdf-api/internal/store"
)

const usersFilename = "users.json"

// userRecord is the on-disk shape of a user account.
type userRecord struct {
	Username       string    `json:"username"`
	HashedPassword string    `json:"hashed_password"`
	IsAdmin        bool      `json:"is_admin"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserStore is a JSON-file-backed implementation of store.UserStore.
// All access is serialized through a mutex; writes go to a temp file that is
// renamed into place so a crash never leaves a half-written users.json.
type UserStore struct {
	path     string
	hasher   auth.PasswordHasher
	verifier auth.PasswordVerifier

	mu sync.Mutex
}

// Ensure UserStore implements store.UserStore.
var _ store.UserStore = (*UserStore)(nil)

// NewUserStore creates a user store persisting to {dataDir}/users.json.
func NewUserStore(dataDir string, hasher auth.PasswordHasher, verifier auth.PasswordVerifier) (*UserStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &UserStore{
		path:     filepath.Join(dataDir, usersFilename),
		hasher:   hasher,
		verifier: verifier,
	}, nil
}

// Create persists a new user with a hashed password.
func (s *UserStore) Create(ctx context.Context, user *domain.User, password string) error {
	if err := domain.ValidatePassword(password); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := records[user.Username]; ok {
		return store.ErrUsernameExists
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.HashedPassword = hash

	records[user.Username] = userRecord{
		Username:       user.Username,
		HashedPassword: hash,
		IsAdmin:        user.IsAdmin,
		CreatedAt:      user.CreatedAt,
	}
	return s.save(records)
}

// Get retrieves a user by username.
func (s *UserStore) Get(ctx context.Context, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	rec, ok := records[username]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return rec.toDomain(), nil
}

// List returns all users ordered by creation time.
func (s *UserStore) List(ctx context.Context) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}

	users := make([]*domain.User, 0, len(records))
	for _, rec := range records {
		users = append(users, rec.toDomain())
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].Username < users[j].Username
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

// Count returns the number of registered users.
func (s *UserStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// Delete removes a user record.
func (s *UserStore) Delete(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := records[username]; !ok {
		return store.ErrUserNotFound
	}
	delete(records, username)
	return s.save(records)
}

// Authenticate verifies a username/password pair.
func (s *UserStore) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	rec, ok := records[username]
	if !ok {
		return nil, store.ErrInvalidCredentials
	}
	if err := s.verifier.Compare(rec.HashedPassword, password); err != nil {
		return nil, store.ErrInvalidCredentials
	}
	return rec.toDomain(), nil
}

// UpdatePassword changes a user's password after verifying the old one.
func (s *UserStore) UpdatePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	if err := domain.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	rec, ok := records[username]
	if !ok {
		return store.ErrUserNotFound
	}
	if err := s.verifier.Compare(rec.HashedPassword, oldPassword); err != nil {
		return store.ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	rec.HashedPassword = hash
	records[username] = rec
	return s.save(records)
}

// load reads users.json. A missing file yields an empty map.
// Callers must hold s.mu.
func (s *UserStore) load() (map[string]userRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]userRecord), nil
		}
		return nil, fmt.Errorf("failed to read user file: %w", err)
	}

	var records []userRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse user file: %w", err)
	}

	byName := make(map[string]userRecord, len(records))
	for _, rec := range records {
		byName[rec.Username] = rec
	}
	return byName, nil
}

// save writes the full record set atomically. Callers must hold s.mu.
func (s *UserStore) save(records map[string]userRecord) error {
	list := make([]userRecord, 0, len(records))
	for _, rec := range records {
		list = append(list, rec)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Username < list[j].Username })

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode user file: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write user file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace user file: %w", err)
	}
	return nil
}

func (r userRecord) toDomain() *domain.User {
	return &domain.User{
		Username:       r.Username,
		HashedPassword: r.HashedPassword,
		IsAdmin:        r.IsAdmin,
		CreatedAt:      r.CreatedAt,
	}
}
