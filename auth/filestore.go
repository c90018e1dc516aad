package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Tokens is the persisted token pair.
type Tokens struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FileStore persists tokens in a JSON file and serves them as a TokenSource.
// A missing file means no token is stored.
type FileStore struct {
	path string
	mu   sync.RWMutex
	now  func() time.Time
}

var _ TokenSource = (*FileStore)(nil)

// NewFileStore creates a store backed by path. A leading "~/" is expanded to
// the user's home directory.
func NewFileStore(path string) (*FileStore, error) {
	expanded, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}
	if expanded == "" {
		return nil, errors.New("token file path is required")
	}
	return &FileStore{path: expanded, now: time.Now}, nil
}

// Path returns the resolved file location.
func (s *FileStore) Path() string {
	return s.path
}

// Token returns the stored access token, or "" when none is stored.
func (s *FileStore) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t, err := s.Load()
	if err != nil {
		return "", err
	}
	return t.Token, nil
}

// RefreshToken returns the stored refresh token, or "" when none is stored.
func (s *FileStore) RefreshToken() (string, error) {
	t, err := s.Load()
	if err != nil {
		return "", err
	}
	return t.RefreshToken, nil
}

// Load reads the stored token pair.
func (s *FileStore) Load() (Tokens, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Tokens{}, nil
	}
	if err != nil {
		return Tokens{}, fmt.Errorf("read token file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return Tokens{}, nil
	}

	var t Tokens
	if err := json.Unmarshal(data, &t); err != nil {
		return Tokens{}, fmt.Errorf("decode token file %s: %w", s.path, err)
	}
	return t, nil
}

// SetTokens replaces the stored token pair. The file is written atomically
// with owner-only permissions.
func (s *FileStore) SetTokens(token, refreshToken string) error {
	if token == "" {
		return errors.New("token cannot be empty")
	}

	data, err := json.MarshalIndent(Tokens{
		Token:        token,
		RefreshToken: refreshToken,
		UpdatedAt:    s.now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tokens: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp token file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp token file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}

// Clear removes the stored tokens. Clearing an empty store is not an error.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether a usable token is stored: present and, when
// it is a JWT, not past its exp claim.
func (s *FileStore) IsAuthenticated() bool {
	t, err := s.Load()
	if err != nil || t.Token == "" {
		return false
	}
	return !Expired(t.Token, s.now())
}

// ExpandHome expands a leading "~/" to the current user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
