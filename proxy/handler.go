// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/bureau-foundation/metadata-proxy/lib/clock"
	"github.com/bureau-foundation/metadata-proxy/lib/netutil"
)

// Request is one inbound metadata request, reduced to what is
// forwarded.
type Request struct {
	// RemoteAddress is the instance's source IP, without port.
	RemoteAddress string

	Method string

	// Path is the escaped request path.
	Path string

	RawQuery string

	// Header holds the instance's request headers. Hop-by-hop and tenant
	// headers are dropped before forwarding.
	Header http.Header

	Body []byte
}

// HandlerConfig holds configuration for creating a Handler.
type HandlerConfig struct {
	// Context is the tenant scope of this proxy. Required.
	Context Context

	// Resolver maps source addresses to networks for a DomainContext.
	// Defaults to a FileResolver on DefaultMappingPath. Unused for other
	// contexts.
	Resolver Resolver

	// Client reaches the backend, normally built by NewUnixClient.
	// Required.
	Client *http.Client

	// Clock measures request durations. Defaults to clock.Real().
	Clock clock.Clock

	// Logger for request logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Handler proxies metadata requests to the backend over its Unix socket
// with the tenant context attached. It holds no per-request state and
// is safe for concurrent use.
type Handler struct {
	context  Context
	resolver Resolver
	client   *http.Client
	clock    clock.Clock
	logger   *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(config HandlerConfig) (*Handler, error) {
	if config.Context == nil {
		return nil, ErrNoContext
	}
	if config.Client == nil {
		return nil, fmt.Errorf("backend client is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	resolver := config.Resolver
	if resolver == nil {
		resolver = &FileResolver{Path: DefaultMappingPath, Logger: logger}
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	return &Handler{
		context:  config.Context,
		resolver: resolver,
		client:   config.Client,
		clock:    clk,
		logger:   logger.With("context", config.Context.String()),
	}, nil
}

// ServeHTTP implements http.Handler. Every failure becomes a generic 500;
// the detail goes to the log only.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	startTime := h.clock.Now()
	remoteAddress := clientAddress(r.RemoteAddr)

	defer func() {
		if recovered := recover(); recovered != nil {
			if recovered == http.ErrAbortHandler {
				panic(recovered)
			}
			h.logger.Error("unexpected error",
				"remote_address", remoteAddress,
				"method", r.Method,
				"path", r.URL.Path,
				"panic", fmt.Sprint(recovered),
			)
			writeError(w, http.StatusInternalServerError, explanationUnknownError)
		}
	}()

	h.logger.Debug("metadata request",
		"remote_address", remoteAddress,
		"method", r.Method,
		"path", r.URL.Path,
		"query", r.URL.RawQuery,
	)

	body, err := netutil.ReadBody(r.Body)
	if err != nil {
		h.logger.Error("unexpected error",
			"remote_address", remoteAddress,
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, explanationUnknownError)
		return
	}

	result, err := h.Proxy(r.Context(), Request{
		RemoteAddress: remoteAddress,
		Method:        r.Method,
		Path:          r.URL.EscapedPath(),
		RawQuery:      r.URL.RawQuery,
		Header:        r.Header,
		Body:          body,
	})
	if err != nil {
		h.logger.Error("unexpected error",
			"remote_address", remoteAddress,
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
			"duration", h.clock.Now().Sub(startTime),
		)
		writeError(w, http.StatusInternalServerError, explanationUnknownError)
		return
	}

	if err := result.write(w); err != nil {
		level := slog.LevelWarn
		if netutil.IsExpectedCloseError(err) {
			level = slog.LevelDebug
		}
		h.logger.Log(r.Context(), level, "writing metadata response failed",
			"remote_address", remoteAddress,
			"error", err,
		)
		return
	}

	h.logger.Info("metadata request complete",
		"remote_address", remoteAddress,
		"method", r.Method,
		"path", r.URL.Path,
		"result", result.Kind.String(),
		"status", result.StatusCode(),
		"bytes", len(result.Body),
		"duration", h.clock.Now().Sub(startTime),
	)
}

// Proxy forwards request to the backend and translates the response.
// A domain resolution miss returns ResultNotFound without contacting the
// backend. Transport failures and backend statuses the proxy has no
// translation for are returned as errors.
func (h *Handler) Proxy(ctx context.Context, request Request) (Result, error) {
	tenantHeaders, ok := contextHeaders(h.context, h.resolver, request.RemoteAddress)
	if !ok {
		return Result{Kind: ResultNotFound}, nil
	}

	var body io.Reader
	if len(request.Body) > 0 {
		body = bytes.NewReader(request.Body)
	}
	backendRequest, err := http.NewRequestWithContext(ctx, request.Method, backendURL(request.Path, request.RawQuery), body)
	if err != nil {
		return Result{}, fmt.Errorf("building backend request: %w", err)
	}
	backendRequest.Header = outboundHeaders(request.Header, tenantHeaders)

	response, err := h.client.Do(backendRequest)
	if err != nil {
		return Result{}, fmt.Errorf("backend request failed: %w", err)
	}
	defer response.Body.Close()

	kind, err := translateStatus(response.StatusCode)
	if err != nil {
		return Result{}, err
	}

	switch kind {
	case ResultOK:
		responseBody, err := netutil.ReadBody(response.Body)
		if err != nil {
			return Result{}, fmt.Errorf("reading backend response: %w", err)
		}
		return Result{
			Kind:            ResultOK,
			ContentType:     response.Header.Get("Content-Type"),
			ContentEncoding: response.Header.Get("Content-Encoding"),
			Body:            responseBody,
		}, nil
	case ResultBackendError:
		h.logger.Debug(explanationBackendError,
			"remote_address", request.RemoteAddress,
			"path", request.Path,
			"backend_body", netutil.ErrorBody(response.Body),
		)
		return Result{Kind: kind}, nil
	default:
		return Result{Kind: kind}, nil
	}
}

// clientAddress strips the port from an http.Request RemoteAddr.
func clientAddress(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
