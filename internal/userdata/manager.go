// Package userdata manages the per-user directory tree that holds settings,
// translation history, uploaded documents and rendered outputs.
//
// Layout under the data directory:
//
//	users/{username}/settings.json
//	users/{username}/history.json
//	users/{username}/uploads/{file_id}_{filename}
//	users/{username}/outputs/{task_id}/...
package userdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/babelpdf/babelpdf-api/internal/domain"
)

// Errors returned by the manager.
var (
	// ErrUploadNotFound is returned when no upload matches a file ID.
	ErrUploadNotFound = errors.New("upload not found")

	// ErrInvalidSettings is returned when a settings payload is not a JSON object.
	ErrInvalidSettings = errors.New("settings must be a JSON object")

	// ErrInvalidFilename is returned when an upload filename is unusable.
	ErrInvalidFilename = errors.New("invalid filename")
)

const (
	settingsFilename = "settings.json"
	historyFilename  = "history.json"
	uploadsDirname   = "uploads"
	outputsDirname   = "outputs"
)

// Manager owns all file access below users/. History writes are serialized
// per user to close the read-modify-write race the whole-file format invites.
type Manager struct {
	root string

	mu    sync.Mutex
	users map[string]*sync.Mutex
}

// NewManager creates a manager rooted at {dataDir}/users.
func NewManager(dataDir string) (*Manager, error) {
	root := filepath.Join(dataDir, "users")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create user data root: %w", err)
	}
	return &Manager{
		root:  root,
		users: make(map[string]*sync.Mutex),
	}, nil
}

// userLock returns the mutex serializing writes for one user.
func (m *Manager) userLock(username string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.users[username]
	if !ok {
		lock = &sync.Mutex{}
		m.users[username] = lock
	}
	return lock
}

// userDir returns (and creates) the directory for a user. The username has
// already passed domain validation, which excludes path separators; this is
// a second line of defense.
func (m *Manager) userDir(username string) (string, error) {
	if err := domain.ValidateUsername(username); err != nil {
		return "", err
	}
	dir := filepath.Join(m.root, username)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create user directory: %w", err)
	}
	return dir, nil
}

// Settings returns the user's settings blob. A missing file reads as an
// empty object.
func (m *Manager) Settings(username string) (json.RawMessage, error) {
	dir, err := m.userDir(username)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, settingsFilename))
	if err != nil {
		if os.IsNotExist(err) {
			return json.RawMessage("{}"), nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	return json.RawMessage(data), nil
}

// PutSettings stores the user's settings blob. The blob is opaque to the
// server but must be a JSON object.
func (m *Manager) PutSettings(username string, settings json.RawMessage) error {
	var obj map[string]any
	if err := json.Unmarshal(settings, &obj); err != nil || obj == nil {
		return ErrInvalidSettings
	}

	dir, err := m.userDir(username)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	lock := m.userLock(username)
	lock.Lock()
	defer lock.Unlock()
	return writeFileAtomic(filepath.Join(dir, settingsFilename), data)
}

// ResetSettings replaces the user's settings with an empty object.
func (m *Manager) ResetSettings(username string) error {
	return m.PutSettings(username, json.RawMessage("{}"))
}

// History returns the user's recorded translation history, oldest first.
// A missing file reads as an empty history.
func (m *Manager) History(username string) ([]domain.HistoryEntry, error) {
	dir, err := m.userDir(username)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, historyFilename))
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.HistoryEntry{}, nil
		}
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	var entries []domain.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}
	return entries, nil
}

// AppendHistory appends one entry to the user's history file. The per-user
// lock makes concurrent completions for the same user lose no entries.
func (m *Manager) AppendHistory(username string, entry domain.HistoryEntry) error {
	dir, err := m.userDir(username)
	if err != nil {
		return err
	}

	lock := m.userLock(username)
	lock.Lock()
	defer lock.Unlock()

	path := filepath.Join(dir, historyFilename)
	var entries []domain.HistoryEntry
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("failed to parse history: %w", err)
		}
	case os.IsNotExist(err):
		// First entry.
	default:
		return fmt.Errorf("failed to read history: %w", err)
	}

	entries = append(entries, entry)
	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	return writeFileAtomic(path, out)
}

// SaveUpload stores an uploaded document as uploads/{fileID}_{filename} and
// returns the stored path.
func (m *Manager) SaveUpload(username, fileID, filename string, r io.Reader) (string, error) {
	filename = filepath.Base(filename)
	if filename == "" || filename == "." || filename == ".." || strings.ContainsAny(filename, "/\\") {
		return "", ErrInvalidFilename
	}

	dir, err := m.userDir(username)
	if err != nil {
		return "", err
	}
	uploadDir := filepath.Join(dir, uploadsDirname)
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	path := filepath.Join(uploadDir, fileID+"_"+filename)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close upload: %w", err)
	}
	return path, nil
}

// FindUpload locates a stored upload by file ID and returns its path and the
// original filename.
func (m *Manager) FindUpload(username, fileID string) (path, filename string, err error) {
	dir, err := m.userDir(username)
	if err != nil {
		return "", "", err
	}
	matches, err := filepath.Glob(filepath.Join(dir, uploadsDirname, fileID+"_*"))
	if err != nil {
		return "", "", fmt.Errorf("failed to search uploads: %w", err)
	}
	if len(matches) == 0 {
		return "", "", ErrUploadNotFound
	}
	path = matches[0]
	filename = strings.TrimPrefix(filepath.Base(path), fileID+"_")
	return path, filename, nil
}

// OutputDir returns (and creates) the output directory for a task.
func (m *Manager) OutputDir(username, taskID string) (string, error) {
	dir, err := m.userDir(username)
	if err != nil {
		return "", err
	}
	out := filepath.Join(dir, outputsDirname, taskID)
	if err := os.MkdirAll(out, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return out, nil
}

// Purge removes a user's entire data directory. Used when the account is
// deleted.
func (m *Manager) Purge(username string) error {
	if err := domain.ValidateUsername(username); err != nil {
		return err
	}

	lock := m.userLock(username)
	lock.Lock()
	defer lock.Unlock()

	if err := os.RemoveAll(filepath.Join(m.root, username)); err != nil {
		return fmt.Errorf("failed to remove user directory: %w", err)
	}
	return nil
}

// writeFileAtomic writes data to a temp file and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
