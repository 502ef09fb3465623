// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"net/http"
	"strings"
)

// Headers the proxy sets on every backend request.
const (
	HeaderForwardedFor = "X-Forwarded-For"
	HeaderNetworkID    = "X-Network-ID"
	HeaderRouterID     = "X-Router-ID"
)

// contextHeaders returns the tenant headers for a request from
// remoteAddress: X-Forwarded-For plus exactly one of X-Network-ID or
// X-Router-ID. It returns false when the context is a domain and the
// address is not mapped to a network, in which case the request must not
// be forwarded.
func contextHeaders(context Context, resolver Resolver, remoteAddress string) (http.Header, bool) {
	headers := http.Header{}
	headers.Set(HeaderForwardedFor, remoteAddress)

	switch context := context.(type) {
	case DomainContext:
		networkID, found := resolver.Resolve(context.DomainID, remoteAddress)
		if !found {
			return nil, false
		}
		headers.Set(HeaderNetworkID, networkID)
	case RouterContext:
		headers.Set(HeaderRouterID, context.RouterID)
	case NetworkContext:
		headers.Set(HeaderNetworkID, context.NetworkID)
	default:
		return nil, false
	}
	return headers, true
}

// Client request headers that are never forwarded: hop-by-hop headers,
// Accept-Encoding, and the tenant headers the proxy owns. An instance
// that sends its own X-Network-ID must not be able to pick another
// tenant's metadata. The backend is asked for identity encoding so the
// body reaches the instance exactly as the backend produced it.
var droppedRequestHeaders = map[string]bool{
	"accept-encoding":     true,
	"connection":          true,
	"keep-alive":          true,
	"proxy-authenticate":  true,
	"proxy-authorization": true,
	"proxy-connection":    true,
	"te":                  true,
	"trailer":             true,
	"transfer-encoding":   true,
	"upgrade":             true,
	"x-forwarded-for":     true,
	"x-network-id":        true,
	"x-router-id":         true,
}

// outboundHeaders merges the client's forwardable headers with the
// tenant headers. Headers the client lists in Connection are hop-by-hop
// as well and are dropped with it.
func outboundHeaders(client, tenant http.Header) http.Header {
	connectionHeaders := make(map[string]bool)
	for _, value := range client.Values("Connection") {
		for _, token := range strings.Split(value, ",") {
			if token = strings.TrimSpace(token); token != "" {
				connectionHeaders[strings.ToLower(token)] = true
			}
		}
	}

	headers := make(http.Header, len(client)+len(tenant))
	for key, values := range client {
		name := strings.ToLower(key)
		if droppedRequestHeaders[name] || connectionHeaders[name] {
			continue
		}
		for _, value := range values {
			headers.Add(key, value)
		}
	}
	for key, values := range tenant {
		headers[key] = values
	}
	return headers
}
