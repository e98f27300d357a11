package sms

import (
	"context"
	"time"
)

// Payload is a templated SMS addressed to a single MSISDN. The gateway renders
// the message from TemplateCode and Params.
type Payload struct {
	MessageID    string
	From         string
	To           string
	TemplateCode string
	Params       map[string]string
	Meta         map[string]string
}

// RawResponse describes the low-level provider response returned after an SMS
// has been processed.
type RawResponse struct {
	ID        string
	Code      int
	Status    string
	Body      string
	Timestamp time.Time
}

// Provider represents an outbound SMS gateway.
type Provider interface {
	Send(ctx context.Context, payload *Payload) (*RawResponse, error)
}
