// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [SocketDir] creates a short temporary directory for Unix domain
// sockets. Socket paths are limited to 108 bytes (sun_path in
// sockaddr_un) and t.TempDir() can exceed that under some build
// systems.
//
// [StateFile] writes a file into a temporary directory and returns its
// path, for tests that need an on-disk document such as the
// domain-to-network mapping.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern so tests never hang on a channel that is never written.
//
// All helpers call t.Fatalf on failure rather than returning errors.
package testutil
