// Package credential stores the bearer token the client sends.  It stands
// in for the browser's local storage.
package credential

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/ts4z/fanvest/transport"
)

const defaultFileName = ".fanvest-token"

// DefaultPath is the token file in the user's home directory.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, defaultFileName)
}

// File keeps a token in a file only its owner can read.  A missing file
// means no token.
type File struct {
	path string
}

var _ transport.TokenSource = (*File)(nil)

func NewFile(path string) *File {
	if path == "" {
		path = DefaultPath()
	}
	return &File{path: path}
}

func (f *File) Path() string {
	return f.path
}

func (f *File) Token(context.Context) (string, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("can't read token file: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// Save replaces the stored token.  The write goes through a temporary file
// so a reader never sees half a token.
func (f *File) Save(token string) error {
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".fanvest-token-*")
	if err != nil {
		return fmt.Errorf("can't create token file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("can't restrict token file: %w", err)
	}
	if _, err := tmp.WriteString(token + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("can't write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("can't write token file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("can't install token file: %w", err)
	}
	log.Debugf("saved token to %s", f.path)
	return nil
}

// Clear forgets the token.  Clearing an absent token is not an error.
func (f *File) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("can't remove token file: %w", err)
	}
	return nil
}

// Static is a fixed token, typically from the environment.
type Static string

func (s Static) Token(context.Context) (string, error) {
	return string(s), nil
}

// Chain asks each source in turn and returns the first non-empty token.
type Chain []transport.TokenSource

func (c Chain) Token(ctx context.Context) (string, error) {
	for _, src := range c {
		tok, err := src.Token(ctx)
		if err != nil {
			return "", err
		}
		if tok != "" {
			return tok, nil
		}
	}
	return "", nil
}
