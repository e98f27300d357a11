// Package classifier maps raw PIX Automático callback signals onto canonical
// lifecycle events and the notification templates used for them. It performs
// no I/O and is safe for concurrent use once constructed.
package classifier

import (
	"strings"

	"github.com/example/pixauto-notifier/internal/config"
	"github.com/example/pixauto-notifier/internal/models"
)

type family int

const (
	familyNone family = iota
	familyChange
	familyCharge
	familyDirect
)

const statusCancelled = "CANCELADA"

var eventFamilies = map[string]family{
	"CHANGE_PAYMENT_METHOD": familyChange,
	"ALTERACAO":             familyChange,
	"CHARGE":                familyCharge,
	"COBRANCA":              familyCharge,
	"PAGAMENTO":             familyDirect,
	"PAYMENT":               familyDirect,
	"OPTIN":                 familyDirect,
	"OPTOUT":                familyDirect,
	"AGENDAMENTO":           familyDirect,
}

var directEvents = map[string]models.CanonicalEvent{
	"PAGAMENTO":   models.EventPayment,
	"PAYMENT":     models.EventPayment,
	"OPTIN":       models.EventOptIn,
	"OPTOUT":      models.EventOptOut,
	"AGENDAMENTO": models.EventScheduling,
}

// Charge statuses are grouped by what they mean for the recurrence; anything
// outside these groups is left unclassified.
var chargeStatuses = map[string]models.CanonicalEvent{
	"CRIADA":    models.EventScheduling,
	"ATIVA":     models.EventScheduling,
	"AGENDADA":  models.EventScheduling,
	"PENDENTE":  models.EventScheduling,
	"CREATED":   models.EventScheduling,
	"SCHEDULED": models.EventScheduling,

	"CONCLUIDA": models.EventPayment,
	"EXECUTADA": models.EventPayment,
	"PAGA":      models.EventPayment,
	"LIQUIDADA": models.EventPayment,
	"COMPLETED": models.EventPayment,
	"PAID":      models.EventPayment,

	"CANCELADA":     models.EventSchedulingFailure,
	"EXPIRADA":      models.EventSchedulingFailure,
	"REJEITADA":     models.EventSchedulingFailure,
	"NAO_REALIZADA": models.EventSchedulingFailure,
	"CANCELLED":     models.EventSchedulingFailure,
	"EXPIRED":       models.EventSchedulingFailure,
	"REJECTED":      models.EventSchedulingFailure,
	"FAILED":        models.EventSchedulingFailure,
}

var paymentMethodEvents = map[string]models.CanonicalEvent{
	"PIX_AUTOMATICO": models.EventOptIn,
	"OPTIN":          models.EventOptIn,
	"ADESAO":         models.EventOptIn,

	"PIX_AUTOMATICO_OPTOUT": models.EventOptOut,
	"OPTOUT":                models.EventOptOut,
	"CANCELAMENTO":          models.EventOptOut,

	"PIX_AUTOMATICO_AGENDAMENTO": models.EventScheduling,
	"AGENDAMENTO":                models.EventScheduling,
	"RECORRENCIA":                models.EventScheduling,

	"PIX_AUTOMATICO_PAGAMENTO": models.EventPayment,
	"PAGAMENTO":                models.EventPayment,
	"EXECUTADO":                models.EventPayment,
}

var notifiableEventTypes = map[string]struct{}{
	"PAYMENT":               {},
	"PAGAMENTO":             {},
	"CHANGE_PAYMENT_METHOD": {},
	"ALTERACAO":             {},
	"CHARGE":                {},
	"COBRANCA":              {},
}

// Classifier resolves canonical events and template codes.
type Classifier struct {
	templates       map[models.CanonicalEvent]string
	defaultTemplate string
}

// New builds a Classifier whose template table is fixed from cfg.
func New(cfg config.TemplateConfig) *Classifier {
	return &Classifier{
		templates: map[models.CanonicalEvent]string{
			models.EventOptIn:             cfg.Change,
			models.EventOptOut:            cfg.Change,
			models.EventChange:            cfg.Change,
			models.EventScheduling:        cfg.Charge,
			models.EventCharge:            cfg.Charge,
			models.EventPayment:           cfg.Payment,
			models.EventSchedulingFailure: cfg.SchedulingFailure,
			models.EventAdhesionIncentive: cfg.AdhesionIncentive,
		},
		defaultTemplate: cfg.Payment,
	}
}

// Classify maps callback signals to a canonical event. The boolean is false
// when the signals do not identify a known lifecycle stage.
func (c *Classifier) Classify(signals models.EventSignals) (models.CanonicalEvent, bool) {
	eventType := normalize(signals.EventType)
	status := normalize(signals.Status)

	switch eventFamilies[eventType] {
	case familyChange:
		if status == statusCancelled {
			return models.EventOptOut, true
		}
		if strings.TrimSpace(signals.RecurrenceID) != "" {
			return models.EventAdhesionIncentive, true
		}
		return models.EventChange, true
	case familyCharge:
		if status == "" {
			return models.EventCharge, true
		}
		event, ok := chargeStatuses[status]
		return event, ok
	case familyDirect:
		event, ok := directEvents[eventType]
		return event, ok
	default:
		return "", false
	}
}

// MapPaymentTypeToEvent classifies by payment-method family, for callbacks
// that carry no explicit event type.
func (c *Classifier) MapPaymentTypeToEvent(paymentMethod string) (models.CanonicalEvent, bool) {
	event, ok := paymentMethodEvents[normalize(paymentMethod)]
	return event, ok
}

// ShouldNotify reports whether eventType belongs to a family customers are
// notified about. It does not imply Classify will resolve an event.
func (c *Classifier) ShouldNotify(eventType string) bool {
	_, ok := notifiableEventTypes[normalize(eventType)]
	return ok
}

// TemplateFor returns the template code for event, falling back to the
// payment template when event is nil or unknown.
func (c *Classifier) TemplateFor(event *models.CanonicalEvent) string {
	if event == nil {
		return c.defaultTemplate
	}
	if code, ok := c.templates[*event]; ok {
		return code
	}
	return c.defaultTemplate
}

func normalize(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}
