package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"epublift/internal/logging"
)

const lockFileName = ".epublift.lock"

// Workspace is the scoped temporary directory for one run's staging
// files. It is owned exclusively by that run via a lock file and is
// removed unconditionally on Release, success or failure.
type Workspace struct {
	dir      string
	lock     *flock.Flock
	logger   *slog.Logger
	released bool
}

// New creates a uniquely-named workspace under parent (the OS temp
// directory when parent is empty) and acquires its lock.
func New(parent string, logger *slog.Logger) (*Workspace, error) {
	if parent == "" {
		parent = os.TempDir()
	}
	dir := filepath.Join(parent, "epublift-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	acquired, err := lock.TryLock()
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("acquire workspace lock: %w", err)
	}
	if !acquired {
		_ = os.RemoveAll(dir)
		return nil, errors.New("workspace is already in use by another run")
	}

	ws := &Workspace{
		dir:    dir,
		lock:   lock,
		logger: logging.WithComponent(logger, "workspace"),
	}
	ws.logger.Debug("workspace created", logging.String("dir", dir))
	return ws, nil
}

// Dir returns the workspace directory path.
func (w *Workspace) Dir() string {
	return w.dir
}

// Path returns the path of a named staging file inside the workspace.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// Stage writes a staging file into the workspace and returns its path.
func (w *Workspace) Stage(name string, data []byte) (string, error) {
	if w.released {
		return "", errors.New("workspace already released")
	}
	path := w.Path(name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("stage %s: %w", name, err)
	}
	return path, nil
}

// Release unlocks and removes the workspace tree. It is idempotent and
// safe to defer: every exit path goes through it.
func (w *Workspace) Release() error {
	if w == nil || w.released {
		return nil
	}
	w.released = true

	if err := w.lock.Unlock(); err != nil {
		w.logger.Warn("failed to release workspace lock", logging.Error(err))
	}
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("remove workspace: %w", err)
	}
	w.logger.Debug("workspace removed", logging.String("dir", w.dir))
	return nil
}
