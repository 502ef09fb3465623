// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"errors"
	"fmt"
)

// ErrNoContext is returned when none of the network, router, or domain
// identifiers is configured.
var ErrNoContext = errors.New("network_id, router_id, and domain_id are all empty; one of them must be provided")

// Context is the tenant scope a proxy instance serves. It is exactly one
// of [NetworkContext], [RouterContext], or [DomainContext]; the unexported
// method keeps the set closed.
type Context interface {
	// ID returns the identifier of the context. It names the proxy
	// instance for the pidfile guard.
	ID() string

	// String describes the context for logs.
	String() string

	isContext()
}

// NetworkContext proxies metadata for instances on a single network.
type NetworkContext struct {
	NetworkID string
}

// RouterContext proxies metadata for instances behind a router.
type RouterContext struct {
	RouterID string
}

// DomainContext proxies metadata for an L3 domain. The network of each
// request is resolved from the source address through a [Resolver].
type DomainContext struct {
	DomainID string
}

func (c NetworkContext) ID() string { return c.NetworkID }
func (c RouterContext) ID() string  { return c.RouterID }
func (c DomainContext) ID() string  { return c.DomainID }

func (c NetworkContext) String() string { return fmt.Sprintf("network %s", c.NetworkID) }
func (c RouterContext) String() string  { return fmt.Sprintf("router %s", c.RouterID) }
func (c DomainContext) String() string  { return fmt.Sprintf("domain %s", c.DomainID) }

func (NetworkContext) isContext() {}
func (RouterContext) isContext()  {}
func (DomainContext) isContext()  {}

// NewContext selects the context from the configured identifiers. When
// several are set, domain takes precedence over router, and router over
// network.
func NewContext(networkID, routerID, domainID string) (Context, error) {
	switch {
	case domainID != "":
		return DomainContext{DomainID: domainID}, nil
	case routerID != "":
		return RouterContext{RouterID: routerID}, nil
	case networkID != "":
		return NetworkContext{NetworkID: networkID}, nil
	default:
		return nil, ErrNoContext
	}
}
