// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"slices"
	"testing"
)

func TestIsDetached(t *testing.T) {
	t.Setenv(EnvDetached, "")
	if IsDetached() {
		t.Fatal("expected foreground process")
	}

	t.Setenv(EnvDetached, "1")
	if !IsDetached() {
		t.Fatal("expected detached process")
	}
}

func TestCommand(t *testing.T) {
	environment := []string{"PATH=/usr/bin", EnvDetached + "=0", "HOME=/root"}
	args := []string{"--network-id", "net-123", "--daemonize", "--pid-file=/run/metadata-proxy.pid"}

	cmd := command("/usr/bin/metadata-proxy", args, environment)

	if cmd.Path != "/usr/bin/metadata-proxy" {
		t.Errorf("Path = %q", cmd.Path)
	}
	wantArgs := append([]string{"/usr/bin/metadata-proxy"}, args...)
	if !slices.Equal(cmd.Args, wantArgs) {
		t.Errorf("Args = %q, want %q", cmd.Args, wantArgs)
	}
	wantEnv := []string{"PATH=/usr/bin", "HOME=/root", EnvDetached + "=1"}
	if !slices.Equal(cmd.Env, wantEnv) {
		t.Errorf("Env = %q, want %q", cmd.Env, wantEnv)
	}
	// Arguments pass through verbatim; relative paths in them would
	// resolve against Dir.
	if cmd.Dir != "/" {
		t.Errorf("Dir = %q, want /", cmd.Dir)
	}
	if cmd.SysProcAttr == nil || !cmd.SysProcAttr.Setsid {
		t.Error("expected Setsid in SysProcAttr")
	}
}
