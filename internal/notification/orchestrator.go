// Package notification runs the PIX Automático notification pipeline: it
// extracts the paying customer, resolves their contact channels, classifies
// the callback and dispatches the templated message on every usable channel.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/pixauto-notifier/internal/identity"
	"github.com/example/pixauto-notifier/internal/logger"
	"github.com/example/pixauto-notifier/internal/metrics"
	"github.com/example/pixauto-notifier/internal/models"
)

// Template data keys sent with every dispatch.
const (
	DataCustomerName = "customer_name"
	DataEvent        = "event"
	DataCampaignID   = "campaign_id"
	DataIdentifier   = "identifier"
)

// Extractor rebuilds the customer identity for a transaction identifier.
type Extractor interface {
	Extract(ctx context.Context, identifier string) (*models.CustomerIdentity, error)
}

// Enricher attaches contact channels to an identity. It must not fail.
type Enricher interface {
	Enrich(ctx context.Context, identity *models.CustomerIdentity) *models.CustomerIdentity
}

// Classifier maps callback signals to a canonical event and its template.
type Classifier interface {
	Classify(signals models.EventSignals) (models.CanonicalEvent, bool)
	TemplateFor(event *models.CanonicalEvent) string
}

// Dependencies collects the collaborators required by the orchestrator.
type Dependencies struct {
	Extractor  Extractor
	Enricher   Enricher
	Classifier Classifier
	Dispatcher DispatchPort
	Logger     zerolog.Logger
	Now        func() time.Time
}

// Result describes a single pipeline run.
type Result struct {
	Dispatched bool
	Outcome    string
	Reason     string
	Event      *models.CanonicalEvent
	Template   string
	Identity   *models.CustomerIdentity
	Deliveries []models.DispatchResult
}

// Orchestrator wires extraction, enrichment, classification and dispatch.
type Orchestrator struct {
	extractor  Extractor
	enricher   Enricher
	classifier Classifier
	dispatcher DispatchPort
	campaignID string
	logger     zerolog.Logger
	now        func() time.Time
}

// NewOrchestrator validates the dependencies and builds an Orchestrator that
// tags every message with campaignID.
func NewOrchestrator(campaignID string, deps Dependencies) (*Orchestrator, error) {
	if deps.Extractor == nil {
		return nil, errors.New("notification: extractor dependency is required")
	}
	if deps.Enricher == nil {
		return nil, errors.New("notification: enricher dependency is required")
	}
	if deps.Classifier == nil {
		return nil, errors.New("notification: classifier dependency is required")
	}
	if deps.Dispatcher == nil {
		return nil, errors.New("notification: dispatcher dependency is required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Orchestrator{
		extractor:  deps.Extractor,
		enricher:   deps.Enricher,
		classifier: deps.Classifier,
		dispatcher: deps.Dispatcher,
		campaignID: strings.TrimSpace(campaignID),
		logger:     logger.Component(deps.Logger, "orchestrator"),
		now:        deps.Now,
	}, nil
}

// Process runs the pipeline once and reports whether at least one channel
// accepted the notification. It never panics and never returns an error.
func (o *Orchestrator) Process(ctx context.Context, identifier string, signals models.EventSignals) bool {
	return o.Run(ctx, identifier, signals).Dispatched
}

// Run is Process with the details of the decision exposed for callers that
// publish outcomes.
func (o *Orchestrator) Run(ctx context.Context, identifier string, signals models.EventSignals) (res Result) {
	start := o.now()
	log := o.logger.With().Str("identifier", identifier).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("panic", fmt.Sprint(r)).Msg("notification pipeline aborted")
			res.Dispatched = false
			res.Outcome = metrics.OutcomeFailed
			res.Reason = "panic"
		}
		metrics.ProcessTotal.WithLabelValues(res.Outcome).Inc()
		metrics.ProcessDuration.Observe(o.now().Sub(start).Seconds())
	}()

	customer, err := o.extractor.Extract(ctx, identifier)
	switch {
	case errors.Is(err, identity.ErrPaymentInfoNotFound), errors.Is(err, identity.ErrPaymentInfoMalformed):
		log.Info().Err(err).Msg("no usable payment info; skipping")
		return skipped(metrics.OutcomeNoIdentity, err.Error())
	case err != nil:
		log.Warn().Err(err).Msg("identity extraction failed")
		return skipped(metrics.OutcomeFailed, err.Error())
	case customer == nil:
		log.Info().Msg("no identity for identifier")
		return skipped(metrics.OutcomeNoIdentity, "no identity")
	case !customer.Complete():
		log.Info().
			Bool("has_name", strings.TrimSpace(customer.Name) != "").
			Bool("has_document", customer.HasDocument()).
			Msg("identity incomplete; skipping enrichment")
		return skipped(metrics.OutcomeIncomplete, "identity incomplete")
	}

	enriched := o.enricher.Enrich(ctx, customer)
	if enriched == nil {
		log.Warn().Msg("enrichment returned no identity")
		return skipped(metrics.OutcomeFailed, "enrichment returned no identity")
	}
	res.Identity = enriched
	if !enriched.Contacts.HasAny() {
		log.Info().Msg("no contact channel resolved")
		res.Outcome = metrics.OutcomeNoContact
		res.Reason = "no contact channel"
		return res
	}

	if event, ok := o.classifier.Classify(signals); ok {
		res.Event = &event
	}
	res.Template = o.classifier.TemplateFor(res.Event)
	data := o.templateData(identifier, enriched, res.Event)

	var failures []string
	send := func(channel models.Channel, destination string) {
		if destination == "" {
			return
		}
		result, err := o.dispatch(ctx, models.DispatchRequest{
			Channel:      channel,
			Destination:  destination,
			TemplateCode: res.Template,
			TemplateData: data,
		})
		if err != nil {
			metrics.DispatchTotal.WithLabelValues(channel.String(), "error").Inc()
			log.Warn().Err(err).Str("channel", channel.String()).Msg("dispatch failed")
			failures = append(failures, fmt.Sprintf("%s: %v", channel, err))
			return
		}
		metrics.DispatchTotal.WithLabelValues(channel.String(), "ok").Inc()
		if result != nil {
			res.Deliveries = append(res.Deliveries, *result)
		}
		res.Dispatched = true
	}
	send(models.ChannelSMS, enriched.Contacts.MSISDN)
	send(models.ChannelEmail, enriched.Contacts.Email)

	if res.Dispatched {
		res.Outcome = metrics.OutcomeDispatched
	} else {
		res.Outcome = metrics.OutcomeFailed
		res.Reason = strings.Join(failures, "; ")
	}

	log.Info().
		Str("event", eventName(res.Event)).
		Str("template", res.Template).
		Int("deliveries", len(res.Deliveries)).
		Bool("criteria_met", enriched.Contacts.CriteriaMet).
		Bool("dispatched", res.Dispatched).
		Msg("notification processed")
	return res
}

// dispatch sends one channel. A panic in the dispatcher fails only that
// channel.
func (o *Orchestrator) dispatch(ctx context.Context, req models.DispatchRequest) (result *models.DispatchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("dispatch %s panicked: %v", req.Channel, r)
		}
	}()
	return o.dispatcher.Send(ctx, req)
}

func (o *Orchestrator) templateData(identifier string, customer *models.CustomerIdentity, event *models.CanonicalEvent) map[string]string {
	data := map[string]string{
		DataCustomerName: strings.TrimSpace(customer.Name),
		DataIdentifier:   identifier,
	}
	if o.campaignID != "" {
		data[DataCampaignID] = o.campaignID
	}
	if event != nil {
		data[DataEvent] = string(*event)
	}
	return data
}

func skipped(outcome, reason string) Result {
	return Result{Outcome: outcome, Reason: reason}
}

func eventName(event *models.CanonicalEvent) string {
	if event == nil {
		return ""
	}
	return string(*event)
}
