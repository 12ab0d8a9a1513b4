package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// DefaultCredentialsFile is the credentials path relative to the user's home directory.
const DefaultCredentialsFile = ".config/agentdesk/credentials.json"

// FileStore is a durable Store backed by a single JSON file, so a login
// survives process restarts the same way a browser keeps tokens across page
// reloads.
//
// SECURITY: This store handles sensitive credentials.
//   - The file is created with 0600 permissions, its directory with 0700
//   - Writes go to a temp file that is renamed into place
//   - Token values are NEVER logged (only the file path)
type FileStore struct {
	mu     sync.RWMutex
	path   string
	cred   Credential
	set    bool
	logger *slog.Logger
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithFileLogger sets a custom logger.
func WithFileLogger(logger *slog.Logger) FileStoreOption {
	return func(s *FileStore) {
		s.logger = logger
	}
}

// DefaultPath returns ~/.config/agentdesk/credentials.json.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, DefaultCredentialsFile), nil
}

// NewFileStore opens the store at path, creating its directory if needed and
// loading any credential already persisted there.
func NewFileStore(path string, opts ...FileStoreOption) (*FileStore, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	s := &FileStore{
		path:   path,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}

	if err := s.reload(); err != nil {
		return nil, err
	}

	return s, nil
}

// Path returns the file backing the store.
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the cached credential.
func (s *FileStore) Get() (Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred, s.set
}

// Set persists cred and updates the cache. A credential without an access
// token is treated the same as Clear.
func (s *FileStore) Set(cred Credential) error {
	if cred.IsZero() {
		return s.Clear()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeFileLocked(cred); err != nil {
		s.logger.Warn("SECURITY_AUDIT: credential storage failed",
			"event", "credential_store_failed",
			"path", s.path,
			"error", err.Error(),
		)
		return fmt.Errorf("failed to persist credential: %w", err)
	}

	s.cred, s.set = cred, true

	s.logger.Debug("SECURITY_AUDIT: credential stored",
		"event", "credential_stored",
		"path", s.path,
		"has_refresh_token", cred.RefreshToken != "",
	)
	return nil
}

// Clear removes the credential file and empties the cache. The cache is
// emptied even when removing the file fails.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cred, s.set = Credential{}, false

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("SECURITY_AUDIT: credential deletion failed",
			"event", "credential_delete_failed",
			"path", s.path,
			"error", err.Error(),
		)
		return fmt.Errorf("failed to remove credentials file: %w", err)
	}

	s.logger.Debug("SECURITY_AUDIT: credential cleared",
		"event", "credential_cleared",
		"path", s.path,
	)
	return nil
}

// Watch keeps the cache in sync with changes made to the file by other
// processes (for example a second CLI invocation running login or logout).
// It blocks until ctx is cancelled.
func (s *FileStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: the file itself is replaced by rename on every write.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	name := filepath.Base(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if err := s.reload(); err != nil {
				s.logger.Warn("Failed to reload credentials after file change",
					"path", s.path,
					"error", err.Error(),
				)
				continue
			}
			s.logger.Debug("Reloaded credentials after file change", "path", s.path, "op", event.Op.String())

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("Credential file watcher error", "error", err.Error())
		}
	}
}

// reload replaces the cache with the file contents. A missing file means
// no credential.
func (s *FileStore) reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// #nosec G304 -- path is provided by configuration, not remote input
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.cred, s.set = Credential{}, false
			return nil
		}
		return fmt.Errorf("failed to read credentials file: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return fmt.Errorf("failed to parse credentials file: %w", err)
	}

	s.cred, s.set = cred, !cred.IsZero()
	return nil
}

// writeFileLocked persists cred atomically. REQUIRES: s.mu held.
func (s *FileStore) writeFileLocked(cred Credential) error {
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".credentials-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set credentials file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close credentials file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to move credentials file into place: %w", err)
	}
	return nil
}

// Ensure FileStore implements Store at compile time.
var _ Store = (*FileStore)(nil)
