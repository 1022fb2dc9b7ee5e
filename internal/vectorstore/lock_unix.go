//go:build unix

package vectorstore

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// FileLock is an advisory lock shared by every process using the same store directory.
// It does not exclude goroutines of one process; backends pair it with a sync.RWMutex.
// flock locks belong to the descriptor, so shared holders are counted and only
// the last RUnlock releases it.
type FileLock struct {
	f *os.File

	mu      sync.Mutex
	readers int
}

// OpenLock opens (creating if needed) the lock file at path.
func OpenLock(path string) (*FileLock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	return &FileLock{f: f}, nil
}

// Lock blocks until the exclusive lock is held.
func (l *FileLock) Lock() error { return l.flock(unix.LOCK_EX) }

// Unlock releases the exclusive lock.
func (l *FileLock) Unlock() error { return l.flock(unix.LOCK_UN) }

// RLock blocks until a shared lock is held.
func (l *FileLock) RLock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readers == 0 {
		if err := l.flock(unix.LOCK_SH); err != nil {
			return err
		}
	}
	l.readers++
	return nil
}

// RUnlock drops one shared holder.
func (l *FileLock) RUnlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readers == 0 {
		return fmt.Errorf("flock %s: RUnlock without RLock", l.f.Name())
	}
	l.readers--
	if l.readers > 0 {
		return nil
	}
	return l.flock(unix.LOCK_UN)
}

// Close releases the lock file.
func (l *FileLock) Close() error { return l.f.Close() }

func (l *FileLock) flock(how int) error {
	for {
		err := unix.Flock(int(l.f.Fd()), how)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("flock %s: %w", l.f.Name(), err)
		}
		return nil
	}
}
