// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package daemon moves the proxy into the background.
//
// Go cannot fork a running multi-threaded process, so [Detach]
// re-executes the current binary in a new session (setsid), working
// directory "/", and stdio on /dev/null. The child sees [EnvDetached] in
// its environment, which [IsDetached] reports, and continues as the
// serving process; the parent exits. Relative paths in the child's
// arguments resolve against "/", so callers pass absolute ones.
package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// EnvDetached marks the re-executed background child.
const EnvDetached = "METADATA_PROXY_DETACHED"

// IsDetached reports whether this process is the background child
// started by Detach.
func IsDetached() bool {
	return os.Getenv(EnvDetached) == "1"
}

// Detach starts the background copy of the current process with args
// and returns its pid. The caller should exit once Detach returns
// successfully.
func Detach(args []string) (int, error) {
	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("locating executable: %w", err)
	}

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", os.DevNull, err)
	}
	defer devNull.Close()

	cmd := command(executable, args, os.Environ())
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("starting background process: %w", err)
	}
	pid := cmd.Process.Pid
	// The child is not waited on; it outlives this process.
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("releasing background process: %w", err)
	}
	return pid, nil
}

// command builds the re-exec command without starting it.
func command(executable string, args, environment []string) *exec.Cmd {
	cmd := exec.Command(executable, args...)
	cmd.Env = append(withoutMarker(environment), EnvDetached+"=1")
	cmd.Dir = "/"
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}
	return cmd
}

func withoutMarker(environment []string) []string {
	prefix := EnvDetached + "="
	filtered := make([]string, 0, len(environment))
	for _, entry := range environment {
		if strings.HasPrefix(entry, prefix) {
			continue
		}
		filtered = append(filtered, entry)
	}
	return filtered
}
