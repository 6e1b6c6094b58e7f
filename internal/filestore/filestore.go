// Package filestore reads and writes the small state files kollacli keeps
// (inventory, globals, passwords) under advisory file locks.
//
// Each file <path> is guarded by a sibling <path>.lock. Readers take a
// shared lock, writers an exclusive one, and writes replace the file
// atomically so a concurrent reader never sees a partial document.
package filestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
)

const lockSuffix = ".lock"

// File is a single lock-guarded state file.
type File struct {
	path string
	perm os.FileMode
}

// New returns a File for path that is created with permission perm.
func New(path string, perm os.FileMode) *File {
	return &File{path: path, perm: perm}
}

// Path returns the file's location.
func (f *File) Path() string {
	return f.path
}

// Read returns the file content under a shared lock. A missing file is
// not an error and yields nil content.
func (f *File) Read() ([]byte, error) {
	if err := f.ensureDir(); err != nil {
		return nil, err
	}
	lock := f.lock()
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock %s: %w", f.path, err)
	}
	defer func() { _ = lock.Unlock() }()

	return f.readUnlocked()
}

// Write atomically replaces the file content under an exclusive lock.
func (f *File) Write(data []byte) error {
	return f.Update(func([]byte) ([]byte, error) { return data, nil })
}

// Update runs fn with the current content while holding the exclusive
// lock and atomically writes back what fn returns. If fn returns an error
// the file is left untouched.
func (f *File) Update(fn func(current []byte) ([]byte, error)) error {
	if err := f.ensureDir(); err != nil {
		return err
	}
	lock := f.lock()
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", f.path, err)
	}
	defer func() { _ = lock.Unlock() }()

	current, err := f.readUnlocked()
	if err != nil {
		return err
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(f.path, next, f.perm); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return nil
}

// lock returns the sibling lock file. It is created with the data file's
// permission so every user who may read the data can also lock it.
func (f *File) lock() *flock.Flock {
	return flock.New(f.path+lockSuffix, flock.SetPermissions(f.perm))
}

func (f *File) readUnlocked() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	return data, nil
}

// ensureDir creates the parent directory so the lock file can be created.
func (f *File) ensureDir() error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}
