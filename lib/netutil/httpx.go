// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides HTTP body and connection helpers for the
// metadata proxy.
//
// Body helpers (ReadBody, ErrorBody) bound every read at MaxBodySize so
// a misbehaving instance or backend cannot make the proxy buffer an
// unbounded amount of memory. Metadata documents and user-data are
// small; the bound only exists to stop pathological input.
//
// Connection error helpers (IsExpectedCloseError) classify errors that
// occur when a client hangs up before its response is fully written.
package netutil

import (
	"errors"
	"fmt"
	"io"
)

// MaxBodySize bounds request and response bodies handled by the proxy:
// 32 MB.
const MaxBodySize int64 = 32 << 20

// ErrBodyTooLarge is returned by ReadBody when the body exceeds
// MaxBodySize.
var ErrBodyTooLarge = errors.New("body exceeds maximum size")

// ReadBody reads a request or response body up to MaxBodySize bytes.
// A body longer than the bound is an error rather than being silently
// truncated, since forwarding a partial metadata document would be
// worse than failing the request.
func ReadBody(body io.Reader) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(io.LimitReader(body, MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if int64(len(data)) > MaxBodySize {
		return nil, ErrBodyTooLarge
	}
	return data, nil
}

// ErrorBody reads an error response body and returns it as a string for
// server-side diagnostics. Read errors are ignored; a partial or empty
// body is still useful in a log line.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, MaxBodySize))
	return string(data)
}
