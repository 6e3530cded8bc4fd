package store

import (
	"github.com/gofrs/flock"
	"github.com/rotisserie/eris"
)

// ErrLocked is returned when another process holds the writer lock.
var ErrLocked = eris.New("store: writer lock held by another process")

// FileLock is an advisory single-writer lock around the upsert phase. Runs
// that cannot take it still score and return leads; they just skip writes.
type FileLock struct {
	fl *flock.Flock
}

// NewFileLock returns a lock backed by the file at path.
func NewFileLock(path string) *FileLock {
	return &FileLock{fl: flock.New(path)}
}

// Acquire takes the lock without blocking. It returns ErrLocked when the lock
// is held elsewhere.
func (l *FileLock) Acquire() error {
	ok, err := l.fl.TryLock()
	if err != nil {
		return eris.Wrapf(err, "store: lock %s", l.fl.Path())
	}
	if !ok {
		return ErrLocked
	}
	return nil
}

// Release drops the lock.
func (l *FileLock) Release() error {
	return eris.Wrapf(l.fl.Unlock(), "store: unlock %s", l.fl.Path())
}

// Path returns the lock file path.
func (l *FileLock) Path() string { return l.fl.Path() }
