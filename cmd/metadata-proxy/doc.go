// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Metadata-proxy is the per-context instance metadata proxy. It runs
// inside a tenant network namespace, accepts metadata requests from
// instances on the metadata port, and forwards them over a Unix socket
// to the metadata service with the network, router, or domain context
// attached.
package main
