// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bureau-foundation/metadata-proxy/lib/clock"
	"github.com/bureau-foundation/metadata-proxy/lib/testutil"
)

// backendRequest is what the fake metadata backend observed.
type backendRequest struct {
	Method   string
	Host     string
	Path     string
	RawQuery string
	Header   http.Header
	Body     string
}

// testBackend is a fake metadata service listening on a Unix socket.
type testBackend struct {
	socketPath string
	server     *httptest.Server
	calls      atomic.Int64
	requests   chan backendRequest
}

// startBackend serves respond on a fresh Unix socket. Every request the
// backend sees is recorded on requests (buffered; tests that send more
// than 16 requests must drain it).
func startBackend(t *testing.T, respond http.HandlerFunc) *testBackend {
	t.Helper()

	socketPath := filepath.Join(testutil.SocketDir(t), "metadata.sock")
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("listening on backend socket: %v", err)
	}

	backend := &testBackend{
		socketPath: socketPath,
		requests:   make(chan backendRequest, 16),
	}
	server := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backend.calls.Add(1)
		body, _ := io.ReadAll(r.Body)
		select {
		case backend.requests <- backendRequest{
			Method:   r.Method,
			Host:     r.Host,
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
			Body:     string(body),
		}:
		default:
		}
		respond(w, r)
	}))
	server.Listener.Close()
	server.Listener = listener
	server.Start()
	t.Cleanup(server.Close)

	backend.server = server
	return backend
}

// respondWith returns a backend handler that always answers with the
// given status, content type, and body.
func respondWith(status int, contentType, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

// nextRequest returns the next request the backend recorded.
func (b *testBackend) nextRequest(t *testing.T) backendRequest {
	t.Helper()
	return testutil.RequireReceive(t, b.requests, 5*time.Second, "waiting for backend request")
}

// testClient builds a Unix socket client for the backend.
func testClient(t *testing.T, socketPath string) *http.Client {
	t.Helper()
	client, err := NewUnixClient(UnixClientConfig{
		SocketPath:     socketPath,
		ConnectTimeout: time.Second,
		RequestTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewUnixClient: %v", err)
	}
	return client
}

// testHandler builds a Handler for context talking to backend.
func testHandler(t *testing.T, context Context, resolver Resolver, backend *testBackend) *Handler {
	t.Helper()
	handler, err := NewHandler(HandlerConfig{
		Context:  context,
		Resolver: resolver,
		Client:   testClient(t, backend.socketPath),
		Clock:    clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		Logger:   discardLogger(),
	})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return handler
}

// serve runs one request from remoteAddress through handler.
func serve(handler http.Handler, method, target, remoteAddress string, body io.Reader) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, target, body)
	request.RemoteAddr = remoteAddress
	return serveRequest(handler, request)
}

// serveRequest runs request through handler and records the response.
func serveRequest(handler http.Handler, request *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

// mappingResolver returns a FileResolver over a mapping file holding
// content.
func mappingResolver(t *testing.T, content string) *FileResolver {
	t.Helper()
	return &FileResolver{
		Path:   testutil.StateFile(t, "domain_nets.state", content),
		Logger: discardLogger(),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
