// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/tidwall/jsonc"
)

// DefaultMappingPath is where the opflex agent publishes the
// domain-to-network mapping.
const DefaultMappingPath = "/var/lib/neutron/opflex_agent/domain_nets.state.state"

// Resolver maps a request's source address within a domain to the
// network it belongs to.
type Resolver interface {
	// Resolve returns the network id for remoteAddress in domainID, or
	// found == false. Implementations never fail: an unreadable mapping
	// resolves to not found.
	Resolve(domainID, remoteAddress string) (networkID string, found bool)
}

// domainNetworks is the mapping document: domain id -> source IP ->
// network id.
type domainNetworks map[string]map[string]string

// FileResolver reads the mapping document from disk on every call. The
// file is owned by an external agent and may be rewritten at any time;
// re-reading means a lookup always reflects the agent's latest state.
type FileResolver struct {
	// Path is the mapping document. Empty means DefaultMappingPath.
	Path string

	// Logger receives warnings for unreadable files and misses.
	Logger *slog.Logger
}

// Resolve implements Resolver.
func (r *FileResolver) Resolve(domainID, remoteAddress string) (string, bool) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mapping, err := r.load()
	if err != nil {
		logger.Warn("reading domain network mapping failed",
			"path", r.path(),
			"error", err,
		)
	}

	if networkID, ok := mapping[domainID][remoteAddress]; ok && networkID != "" {
		return networkID, true
	}

	logger.Warn("IP address not found",
		"domain", domainID,
		"address", remoteAddress,
	)
	return "", false
}

func (r *FileResolver) path() string {
	if r.Path == "" {
		return DefaultMappingPath
	}
	return r.Path
}

func (r *FileResolver) load() (domainNetworks, error) {
	data, err := os.ReadFile(r.path())
	if err != nil {
		return nil, err
	}
	var mapping domainNetworks
	if err := json.Unmarshal(jsonc.ToJSON(data), &mapping); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", r.path(), err)
	}
	return mapping, nil
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(domainID, remoteAddress string) (string, bool)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(domainID, remoteAddress string) (string, bool) {
	return f(domainID, remoteAddress)
}
