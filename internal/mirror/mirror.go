// Package mirror persists the session token and user record between runs.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/naveenspark/tradedesk/pkg/domain"
)

// ErrCorrupt is returned by Load when stored contents cannot be parsed.
var ErrCorrupt = errors.New("mirror: corrupt contents")

// Snapshot is the persisted session. A zero Snapshot means nothing is stored.
type Snapshot struct {
	Token string
	User  *domain.User
}

// Empty reports whether neither key is present.
func (s Snapshot) Empty() bool {
	return s.Token == "" && s.User == nil
}

// Complete reports whether both the token and a valid user are present.
func (s Snapshot) Complete() bool {
	return s.Token != "" && s.User.Valid()
}

// Mirror is a durable store for the token and user keys.
type Mirror interface {
	// Load returns the stored snapshot. Missing keys are not an error;
	// unparsable contents yield an error wrapping ErrCorrupt.
	Load(ctx context.Context) (Snapshot, error)
	// Save replaces both keys.
	Save(ctx context.Context, s Snapshot) error
	// Clear removes both keys. Clearing an empty mirror is not an error.
	Clear(ctx context.Context) error
	Close() error
}

// Backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open returns the mirror for backend rooted at dir.
func Open(backend, dir string) (Mirror, error) {
	switch backend {
	case "", BackendFile:
		return NewFileMirror(dir), nil
	case BackendSQLite:
		return NewSQLiteMirror(filepath.Join(dir, "mirror.db"))
	default:
		return nil, fmt.Errorf("mirror.Open: unknown backend %q", backend)
	}
}
