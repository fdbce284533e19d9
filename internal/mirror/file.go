package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/naveenspark/tradedesk/pkg/domain"
)

const (
	tokenFile = "token"
	userFile  = "user.json"
)

// FileMirror stores the token and user as two files under a directory.
type FileMirror struct {
	dir string
}

// NewFileMirror returns a mirror writing to dir (e.g. ~/.tradedesk).
func NewFileMirror(dir string) *FileMirror {
	return &FileMirror{dir: dir}
}

func (m *FileMirror) Load(_ context.Context) (Snapshot, error) {
	var s Snapshot
	data, err := os.ReadFile(filepath.Join(m.dir, tokenFile))
	switch {
	case err == nil:
		s.Token = strings.TrimSpace(string(data))
	case !errors.Is(err, os.ErrNotExist):
		return Snapshot{}, fmt.Errorf("read token: %w", err)
	}

	data, err = os.ReadFile(filepath.Join(m.dir, userFile))
	switch {
	case err == nil:
		var u domain.User
		if err := json.Unmarshal(data, &u); err != nil {
			return Snapshot{}, fmt.Errorf("%w: user: %v", ErrCorrupt, err)
		}
		s.User = &u
	case !errors.Is(err, os.ErrNotExist):
		return Snapshot{}, fmt.Errorf("read user: %w", err)
	}
	return s, nil
}

func (m *FileMirror) Save(_ context.Context, s Snapshot) error {
	if err := os.MkdirAll(m.dir, 0700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if err := writeFile(filepath.Join(m.dir, userFile), data); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	if err := writeFile(filepath.Join(m.dir, tokenFile), []byte(s.Token)); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (m *FileMirror) Clear(_ context.Context) error {
	for _, name := range []string{tokenFile, userFile} {
		if err := os.Remove(filepath.Join(m.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	return nil
}

func (m *FileMirror) Close() error { return nil }

// writeFile replaces path via a temp file so readers never see a partial write.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after rename
	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return err
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close() //nolint:errcheck
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
