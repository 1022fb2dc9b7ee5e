//go:build !unix

package vectorstore

import (
	"fmt"
	"os"
)

// FileLock degrades to a no-op where flock is unavailable; only the
// in-process mutex of each backend serializes appends there.
type FileLock struct {
	f *os.File
}

// OpenLock opens (creating if needed) the lock file at path.
func OpenLock(path string) (*FileLock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	return &FileLock{f: f}, nil
}

func (l *FileLock) Lock() error    { return nil }
func (l *FileLock) Unlock() error  { return nil }
func (l *FileLock) RLock() error   { return nil }
func (l *FileLock) RUnlock() error { return nil }
func (l *FileLock) Close() error   { return l.f.Close() }
