// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"errors"
	"net/http"
	"testing"
)

func TestNewContext(t *testing.T) {
	tests := []struct {
		name      string
		networkID string
		routerID  string
		domainID  string
		want      Context
	}{
		{"network only", "net-1", "", "", NetworkContext{NetworkID: "net-1"}},
		{"router only", "", "router-1", "", RouterContext{RouterID: "router-1"}},
		{"domain only", "", "", "dom-1", DomainContext{DomainID: "dom-1"}},
		{"domain wins", "net-1", "router-1", "dom-1", DomainContext{DomainID: "dom-1"}},
		{"router beats network", "net-1", "router-1", "", RouterContext{RouterID: "router-1"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := NewContext(test.networkID, test.routerID, test.domainID)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != test.want {
				t.Errorf("NewContext = %#v, want %#v", got, test.want)
			}
		})
	}
}

func TestNewContextRequiresAnIdentifier(t *testing.T) {
	for attempt := 0; attempt < 3; attempt++ {
		if _, err := NewContext("", "", ""); !errors.Is(err, ErrNoContext) {
			t.Fatalf("attempt %d: expected ErrNoContext, got %v", attempt, err)
		}
	}
}

func TestNewHandlerRequiresContext(t *testing.T) {
	_, err := NewHandler(HandlerConfig{Client: &http.Client{}})
	if !errors.Is(err, ErrNoContext) {
		t.Fatalf("expected ErrNoContext, got %v", err)
	}
}

func TestNewHandlerRequiresClient(t *testing.T) {
	if _, err := NewHandler(HandlerConfig{Context: NetworkContext{NetworkID: "net-1"}}); err == nil {
		t.Fatal("expected error without a backend client")
	}
}

func TestContextIDAndString(t *testing.T) {
	tests := []struct {
		context    Context
		wantID     string
		wantString string
	}{
		{NetworkContext{NetworkID: "net-1"}, "net-1", "network net-1"},
		{RouterContext{RouterID: "router-1"}, "router-1", "router router-1"},
		{DomainContext{DomainID: "dom-1"}, "dom-1", "domain dom-1"},
	}
	for _, test := range tests {
		if got := test.context.ID(); got != test.wantID {
			t.Errorf("ID() = %q, want %q", got, test.wantID)
		}
		if got := test.context.String(); got != test.wantString {
			t.Errorf("String() = %q, want %q", got, test.wantString)
		}
	}
}
