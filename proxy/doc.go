// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package proxy implements the instance metadata proxy.
//
// Instances inside an isolated tenant network send metadata requests
// to the well-known link-local address; those requests land on this
// proxy, which cannot route to the metadata service itself. The proxy
// forwards each request over a Unix domain socket to the backend
// metadata service and tells it which tenant the request came from.
//
// A proxy instance serves exactly one [Context]:
//
//   - [NetworkContext]: every request carries X-Network-ID.
//   - [RouterContext]: every request carries X-Router-ID.
//   - [DomainContext]: the network is looked up per request from the
//     instance's source address through a [Resolver]. [FileResolver]
//     reads the opflex agent's domain mapping file on every lookup; an
//     unmapped address is answered with 404 and never forwarded.
//
// Every forwarded request also carries X-Forwarded-For with the
// instance's address.
//
// [Handler] performs the forwarding through an *http.Client built by
// [NewUnixClient], and translates backend statuses: 200 passes through,
// 400/404/409 become the same status with a generic body, 500 becomes a
// generic internal error that does not leak the backend's message, and
// anything else is treated as an internal error. [Handler.Proxy]
// returns these outcomes as a [Result] so callers handle every kind
// explicitly.
//
// [Server] binds the handler to the metadata listen address. [Config]
// carries the process options, loaded from YAML and command-line flags.
package proxy
