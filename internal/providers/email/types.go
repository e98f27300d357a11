package email

import (
	"context"
	"time"
)

// Payload is a single-recipient email produced by the email adapter. The
// template code travels in Headers so the relay can render the final body.
type Payload struct {
	MessageID string
	From      string
	To        string
	Subject   string
	Body      string
	Headers   map[string]string
}

// RawResponse mirrors the low level provider response that adapters inspect to
// derive higher level ProviderResponse values.
type RawResponse struct {
	ID        string
	Code      int
	Body      string
	Timestamp time.Time
}

// Provider is the contract exposed by the email provider implementation.
type Provider interface {
	Send(ctx context.Context, payload *Payload) (*RawResponse, error)
}
