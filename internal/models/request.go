package models

import "time"

// Channel constants.
const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// Channel identifies a notification transport.
type Channel string

// String implements fmt.Stringer.
func (c Channel) String() string { return string(c) }

// CallbackEvent is the canonical payment notification consumed from the
// callback hub. Only PIX Automático events are handled by this service.
type CallbackEvent struct {
	EventID       string            `json:"event_id"`
	Identifier    string            `json:"identifier"`
	EventType     string            `json:"event_type"`
	Status        string            `json:"status,omitempty"`
	PaymentMethod string            `json:"payment_method,omitempty"`
	RecurrenceID  string            `json:"recurrence_id,omitempty"`
	TraceID       string            `json:"trace_id,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	Meta          map[string]string `json:"meta,omitempty"`
}

// Signals extracts the classification inputs carried by the callback.
func (c CallbackEvent) Signals() EventSignals {
	return EventSignals{
		EventType:     c.EventType,
		Status:        c.Status,
		PaymentMethod: c.PaymentMethod,
		RecurrenceID:  c.RecurrenceID,
	}
}

// DispatchRequest is a single-channel notification handed to the dispatch port.
type DispatchRequest struct {
	Channel      Channel
	Destination  string
	TemplateCode string
	TemplateData map[string]string
}

// DispatchResult describes the transport outcome for a DispatchRequest.
type DispatchResult struct {
	MessageID  string
	Channel    Channel
	ProviderID string
	Status     string
}
