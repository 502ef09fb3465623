// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// placeholderHost fills the host of backend URLs. The backend is always
// reached through the socket; only scheme, path, and query reach it.
const placeholderHost = "169.254.169.254"

// DefaultRequestTimeout bounds a whole backend exchange, from dial to the
// last byte of the response body.
const DefaultRequestTimeout = 60 * time.Second

// UnixClientConfig configures NewUnixClient.
type UnixClientConfig struct {
	// SocketPath is the backend metadata service's Unix socket.
	SocketPath string

	// ConnectTimeout bounds dialing the socket. Zero means no dial
	// timeout beyond RequestTimeout.
	ConnectTimeout time.Duration

	// RequestTimeout bounds the whole request. Must be positive.
	RequestTimeout time.Duration
}

// NewUnixClient returns an HTTP client that speaks ordinary HTTP/1.1 but
// dials SocketPath for every request, whatever host the URL names.
//
// Keep-alives are disabled: each request opens its own connection, which
// is closed once the response body has been read. Redirects from the
// backend are returned to the caller rather than followed.
func NewUnixClient(config UnixClientConfig) (*http.Client, error) {
	if config.SocketPath == "" {
		return nil, fmt.Errorf("backend socket path is required")
	}
	if config.ConnectTimeout < 0 {
		return nil, fmt.Errorf("connect timeout must not be negative, got %v", config.ConnectTimeout)
	}
	if config.RequestTimeout <= 0 {
		return nil, fmt.Errorf("request timeout must be positive, got %v", config.RequestTimeout)
	}

	socketPath := config.SocketPath
	dialer := &net.Dialer{Timeout: config.ConnectTimeout}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, address string) (net.Conn, error) {
			return dialer.DialContext(ctx, "unix", socketPath)
		},
		DisableKeepAlives:  true,
		DisableCompression: true,
		Proxy:              nil,
	}

	return &http.Client{
		Timeout:   config.RequestTimeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}, nil
}

// backendURL builds the URL of a forwarded request from the inbound
// request's escaped path and raw query, so percent-encoding reaches the
// backend exactly as the instance sent it.
func backendURL(escapedPath, rawQuery string) string {
	if !strings.HasPrefix(escapedPath, "/") {
		escapedPath = "/" + escapedPath
	}
	target := "http://" + placeholderHost + escapedPath
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	return target
}
