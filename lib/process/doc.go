// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides the binary entrypoint error handler. Fatal
// is the one place the proxy writes raw text to stderr: configuration
// errors happen before the structured logger exists, and a daemonized
// proxy may log to a file the operator is not watching.
package process
