package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// TokenStore keeps one bearer per namespace under dir, file mode 0600
type TokenStore struct {
	dir string
}

func NewTokenStore(dir string) *TokenStore {
	return &TokenStore{dir: dir}
}

// DefaultTokenDir is ~/.droplog/tokens
func DefaultTokenDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".droplog", "tokens")
	}
	return filepath.Join(home, ".droplog", "tokens")
}

func (s *TokenStore) Save(id, token string) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	return os.WriteFile(filepath.Join(s.dir, id), []byte(token), 0o600)
}

// Load returns "" when no token has been saved for id
func (s *TokenStore) Load(id string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, id))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
