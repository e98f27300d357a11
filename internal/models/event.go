package models

// CanonicalEvent is the lifecycle stage of a PIX Automático flow as understood
// by the notification pipeline.
type CanonicalEvent string

const (
	EventOptIn             CanonicalEvent = "OPTIN"
	EventOptOut            CanonicalEvent = "OPTOUT"
	EventScheduling        CanonicalEvent = "AGENDAMENTO"
	EventPayment           CanonicalEvent = "PAGAMENTO"
	EventChange            CanonicalEvent = "ALTERACAO"
	EventCharge            CanonicalEvent = "COBRANCA"
	EventSchedulingFailure CanonicalEvent = "FALHA_AGENDAMENTO"
	EventAdhesionIncentive CanonicalEvent = "INCENTIVO_ADESAO"
)

// CanonicalEvents lists the closed set of lifecycle stages.
var CanonicalEvents = []CanonicalEvent{
	EventOptIn,
	EventOptOut,
	EventScheduling,
	EventPayment,
	EventChange,
	EventCharge,
	EventSchedulingFailure,
	EventAdhesionIncentive,
}

// String implements fmt.Stringer.
func (e CanonicalEvent) String() string { return string(e) }

// EventSignals are the raw, untrusted event attributes delivered with a
// payment callback.
type EventSignals struct {
	EventType     string `json:"event_type"`
	Status        string `json:"status,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
	RecurrenceID  string `json:"recurrence_id,omitempty"`
}
