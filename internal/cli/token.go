package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"
)

const keyringService = "step26"

// ErrNoToken is returned when no access token has been saved.
var ErrNoToken = errors.New("no saved token")

// TokenStore keeps the access token in the OS keyring, falling back to a
// private file when no keyring is available.
type TokenStore struct {
	user string
	path string
}

func NewTokenStore(user, path string) *TokenStore {
	return &TokenStore{user: user, path: path}
}

// DefaultTokenPath is ~/.config/step26/token.
func DefaultTokenPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "step26", "token"), nil
}

func (s *TokenStore) Save(token string) error {
	if token == "" {
		return errors.New("token cannot be empty")
	}
	if err := keyring.Set(keyringService, s.user, token); err == nil {
		// Drop any copy left by a session that had no keyring.
		_ = s.removeFile()
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

func (s *TokenStore) Load() (string, error) {
	token, err := keyring.Get(keyringService, s.user)
	if err == nil && token != "" {
		return token, nil
	}
	// Not in the keyring, or no keyring on this system.
	return s.readFile()
}

// Clear removes the token from both stores. Keyring failures are ignored
// since a missing keyring holds nothing to remove.
func (s *TokenStore) Clear() error {
	_ = keyring.Delete(keyringService, s.user)
	return s.removeFile()
}

func (s *TokenStore) readFile() (string, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	token := strings.TrimSpace(string(b))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func (s *TokenStore) removeFile() error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
