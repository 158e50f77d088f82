package modpath

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/openpcli/pcli-setup/internal/messages"
)

// lockFileName is created inside the destination root while a run holds it.
const lockFileName = ".pcli-setup.lock"

type rootLock struct {
	file *os.File
}

var lockFileFn = lockFile
var unlockFileFn = unlockFile
var flockFn = unix.Flock
var lockSleep = time.Sleep

var (
	lockWaitTimeout = 30 * time.Second
	lockPollEvery   = 100 * time.Millisecond
)

// WithRootLock acquires exclusive ownership of the destination root, runs
// fn, and releases ownership. Concurrent pcli-setup runs against the same
// root block here rather than interleaving writes.
func WithRootLock(root string, fn func() error) error {
	lock, err := acquireRootLock(root)
	if err != nil {
		return err
	}
	defer func() {
		_ = lock.release()
	}()
	return fn()
}

// acquireRootLock opens or creates the root's lock file and acquires an
// exclusive lock. The root must already exist.
func acquireRootLock(root string) (*rootLock, error) {
	path := filepath.Join(root, lockFileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf(messages.ModpathOpenLockFmt, path, err)
	}
	if err := lockFileFn(file, path); err != nil {
		_ = file.Close()
		return nil, err
	}
	return &rootLock{file: file}, nil
}

// release unlocks and closes the lock file.
func (l *rootLock) release() error {
	if l == nil || l.file == nil {
		return nil
	}
	if err := unlockFileFn(l.file); err != nil {
		_ = l.file.Close()
		return err
	}
	return l.file.Close()
}

// lockFile acquires an exclusive advisory lock on the file, polling until
// the wait timeout elapses.
func lockFile(file *os.File, path string) error {
	deadline := time.Now().Add(lockWaitTimeout)
	for {
		err := flockFn(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EAGAIN) {
			return fmt.Errorf(messages.ModpathLockFmt, path, err)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf(messages.ModpathLockTimeoutFmt, path, lockWaitTimeout)
		}
		lockSleep(lockPollEvery)
	}
}

// unlockFile releases the advisory lock on the file.
func unlockFile(file *os.File) error {
	return flockFn(int(file.Fd()), unix.LOCK_UN)
}
