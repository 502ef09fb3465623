// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package pidfile implements the singleton guard for proxy processes.
//
// One metadata proxy runs per context (network, router, or domain) on a
// host. The guard has two halves:
//
//   - [Acquire] takes an exclusive flock on the pidfile and writes the
//     current pid. The lock is held for the life of the process and
//     released by the kernel if the process dies, so a crashed proxy
//     never blocks its replacement.
//   - [IsRunning] answers "is the proxy for this context already up?"
//     before a daemonizing parent detaches. It reads the recorded pid and
//     checks that the process's command line mentions the context id, so
//     a stale pidfile whose pid was recycled by an unrelated process is
//     not mistaken for a live proxy.
package pidfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// ErrAlreadyRunning is returned by Acquire when another process holds
// the pidfile lock.
var ErrAlreadyRunning = errors.New("another instance holds the pidfile lock")

// procRoot is where IsRunning looks up command lines.
var procRoot = "/proc"

// PIDFile is a held pidfile lock.
type PIDFile struct {
	path string
	file *os.File
}

// Acquire creates path if needed, locks it exclusively without
// blocking, and records the current process id in it.
func Acquire(path string) (*PIDFile, error) {
	if path == "" {
		return nil, fmt.Errorf("pidfile path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating pidfile directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening pidfile %s: %w", path, err)
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, path)
		}
		return nil, fmt.Errorf("locking pidfile %s: %w", path, err)
	}

	pidFile := &PIDFile{path: path, file: file}
	if err := pidFile.write(os.Getpid()); err != nil {
		pidFile.Release()
		return nil, err
	}
	return pidFile, nil
}

func (p *PIDFile) write(pid int) error {
	if err := p.file.Truncate(0); err != nil {
		return fmt.Errorf("truncating pidfile: %w", err)
	}
	if _, err := p.file.WriteAt([]byte(strconv.Itoa(pid)+"\n"), 0); err != nil {
		return fmt.Errorf("writing pidfile: %w", err)
	}
	if err := p.file.Sync(); err != nil {
		return fmt.Errorf("syncing pidfile: %w", err)
	}
	return nil
}

// Path returns the pidfile location.
func (p *PIDFile) Path() string {
	return p.path
}

// Release removes the pidfile and drops the lock. The file is removed
// while still locked so a racing Acquire cannot lock a file that is
// about to disappear.
func (p *PIDFile) Release() error {
	removeErr := os.Remove(p.path)
	if removeErr != nil && errors.Is(removeErr, os.ErrNotExist) {
		removeErr = nil
	}
	unlockErr := unix.Flock(int(p.file.Fd()), unix.LOCK_UN)
	closeErr := p.file.Close()
	return errors.Join(removeErr, unlockErr, closeErr)
}

// Read returns the pid recorded in path.
func Read(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("pidfile %s: invalid pid: %w", path, err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("pidfile %s: invalid pid %d", path, pid)
	}
	return pid, nil
}

// IsRunning reports whether the pid recorded in path belongs to a live
// process whose command line contains uuid. An empty uuid only checks
// that the process exists.
func IsRunning(path, uuid string) bool {
	pid, err := Read(path)
	if err != nil {
		return false
	}
	cmdline, err := os.ReadFile(filepath.Join(procRoot, strconv.Itoa(pid), "cmdline"))
	if err != nil {
		return false
	}
	if uuid == "" {
		return true
	}
	// Arguments are NUL-separated; "--network-id=<id>" and
	// "--network-id <id>" both contain the id as a substring.
	return strings.Contains(string(cmdline), uuid)
}
