package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"git.home.luguber.info/inful/refsite/internal/foundation/errors"
	"git.home.luguber.info/inful/refsite/internal/logfields"
)

// LockFileName is created inside the build directory while a build process holds it.
const LockFileName = ".lock"

// Manager handles the persistent build directory.
type Manager struct {
	baseDir string
	lock    *flock.Flock
}

// NewManager creates a manager for the build directory at baseDir.
func NewManager(baseDir string) *Manager {
	return &Manager{
		baseDir: baseDir,
		lock:    flock.New(filepath.Join(baseDir, LockFileName)),
	}
}

// Path returns the build directory.
func (m *Manager) Path() string {
	return m.baseDir
}

// Create ensures the build directory exists.
func (m *Manager) Create() error {
	if err := os.MkdirAll(m.baseDir, 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create build directory").
			WithContext(logfields.KeyPath, m.baseDir).
			Build()
	}
	return nil
}

// Lock creates the build directory and takes an exclusive lock on it. It fails immediately
// if another process holds the lock.
func (m *Manager) Lock() error {
	if err := m.Create(); err != nil {
		return err
	}
	ok, err := m.lock.TryLock()
	if err != nil {
		return errors.WrapError(err, errors.CategoryRuntime, "acquire build lock").
			WithContext(logfields.KeyPath, m.lock.Path()).
			Build()
	}
	if !ok {
		return errors.RuntimeError("another build is already using the build directory").
			WithContext(logfields.KeyPath, m.baseDir).
			Build()
	}
	slog.Debug("Acquired build lock", logfields.Path(m.lock.Path()))
	return nil
}

// Unlock releases the lock taken by Lock. It is safe to call when not locked.
func (m *Manager) Unlock() error {
	if !m.lock.Locked() {
		return nil
	}
	if err := m.lock.Unlock(); err != nil {
		return fmt.Errorf("release build lock: %w", err)
	}
	return nil
}

// ResetSubdir removes and recreates a subdirectory of the build directory.
func (m *Manager) ResetSubdir(name string) (string, error) {
	dir := filepath.Join(m.baseDir, name)
	if err := Recreate(dir); err != nil {
		return "", err
	}
	return dir, nil
}
