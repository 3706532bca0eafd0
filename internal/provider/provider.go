// Package provider contains the outbound SMS gateway adapters. Adapters
// make exactly one HTTP call per send and never retry or write to the
// database; callers persist results and decide on retries or fallback.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// Adapter is the uniform surface over heterogeneous SMS gateways.
type Adapter interface {
	// Send submits one message and returns the provider-assigned message id.
	Send(ctx context.Context, to, body string) (string, error)
	// QueryStatus polls the gateway for the delivery status of a message.
	QueryStatus(ctx context.Context, providerMessageID string) (string, error)
	Name() string
}

// ErrNotConfigured marks a credential/configuration problem. The dispatcher
// treats it as fatal for the batch rather than retrying per recipient.
var ErrNotConfigured = errors.New("provider credentials not configured")

// TransportError wraps HTTP/network failures reaching the gateway.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport error: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RejectionError is a business-logic failure returned by the gateway
// (non-2xx status or an explicit failure response).
type RejectionError struct {
	Provider string
	Reason   string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s rejected send: %s", e.Provider, e.Reason)
}

// Credentials is a decrypted sender credential bundle handed to factories.
type Credentials struct {
	SenderID           string
	HubtelAPIURL       string
	HubtelClientID     string
	HubtelClientSecret string
	ClickSendUsername  string
	ClickSendAPIKey    string
}
