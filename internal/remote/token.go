package remote

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// TokenFilePerms restricts token files to owner-only read/write.
const TokenFilePerms = 0o600

// FileTokenSource reads a bearer token from a file on disk. The token is
// cached and re-read when the file's modification time changes, so an
// out-of-band re-login is picked up without restarting.
type FileTokenSource struct {
	path string

	mu      sync.Mutex
	token   string
	modTime int64
}

var _ TokenSource = (*FileTokenSource)(nil)

// NewFileTokenSource returns a TokenSource backed by the file at path.
func NewFileTokenSource(path string) *FileTokenSource {
	return &FileTokenSource{path: path}
}

// Token returns the current bearer token. A missing or empty file means
// there is no session: the caller must log in first.
func (s *FileTokenSource) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNoSession
	}

	if err != nil {
		return "", fmt.Errorf("remote: reading token file %s: %w", s.path, err)
	}

	if mod := info.ModTime().UnixNano(); mod != s.modTime || s.token == "" {
		data, err := os.ReadFile(s.path)
		if err != nil {
			return "", fmt.Errorf("remote: reading token file %s: %w", s.path, err)
		}

		s.token = strings.TrimSpace(string(data))
		s.modTime = mod
	}

	if s.token == "" {
		return "", ErrNoSession
	}

	return s.token, nil
}

// SaveToken writes a bearer token to path with owner-only permissions,
// creating parent directories as needed.
func SaveToken(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("remote: creating token directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(token+"\n"), TokenFilePerms); err != nil {
		return fmt.Errorf("remote: writing token file %s: %w", path, err)
	}

	return nil
}
