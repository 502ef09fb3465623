// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"
)

// Server binds a Handler to the metadata listen address.
type Server struct {
	address    string
	httpServer *http.Server
	listener   net.Listener
	done       chan struct{}
	serveErr   error
	logger     *slog.Logger
}

// ServerConfig holds configuration for creating a new Server.
type ServerConfig struct {
	// Address is the TCP listen address, e.g. "0.0.0.0:9697". Port 0
	// picks a free port; see Addr.
	Address string

	// Handler serves every request. Required.
	Handler http.Handler

	Logger *slog.Logger
}

// NewServer creates a new metadata proxy server.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("listen address is required")
	}
	if config.Handler == nil {
		return nil, fmt.Errorf("handler is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		address: config.Address,
		httpServer: &http.Server{
			Handler:           config.Handler,
			ReadHeaderTimeout: 30 * time.Second,
			ReadTimeout:       2 * time.Minute,
			WriteTimeout:      5 * time.Minute,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		done:   make(chan struct{}),
		logger: logger,
	}, nil
}

// Start binds the listen address and begins serving in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}
	s.listener = listener

	s.logger.Info("metadata proxy listening", "address", listener.Addr().String())

	go func() {
		defer close(s.done)
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metadata server error", "error", err)
			s.serveErr = err
		}
	}()

	// Notify systemd that we're ready (no-op if not running under systemd)
	notifySystemd("READY=1")

	return nil
}

// Wait blocks until the server stops serving, either through Shutdown
// or a listener failure, and returns the failure if there was one.
func (s *Server) Wait() error {
	<-s.done
	return s.serveErr
}

// Addr returns the bound listen address. Nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting connections and waits for in-flight requests
// to finish, or for ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down metadata proxy")
	notifySystemd("STOPPING=1")
	return s.httpServer.Shutdown(ctx)
}

// notifySystemd sends a notification to systemd's sd_notify socket.
// Does nothing if NOTIFY_SOCKET is not set.
func notifySystemd(state string) {
	socketPath := os.Getenv("NOTIFY_SOCKET")
	if socketPath == "" {
		return
	}

	conn, err := net.Dial("unixgram", socketPath)
	if err != nil {
		return
	}
	defer conn.Close()

	conn.Write([]byte(state))
}
