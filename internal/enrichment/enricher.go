// Package enrichment attaches verified contact channels to a customer identity
// by cross-checking the mobile and residential customer directories.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/example/pixauto-notifier/internal/logger"
	"github.com/example/pixauto-notifier/internal/metrics"
	"github.com/example/pixauto-notifier/internal/models"
	"github.com/example/pixauto-notifier/internal/util"
)

// Directory labels used in logs and metrics.
const (
	directoryBilling     = "mobile_billing"
	directorySubscriber  = "mobile_subscriber"
	directoryResidential = "residential_subscriber"
)

type segment string

const (
	segmentUnsupported segment = ""
	segmentMobile      segment = "mobile"
	segmentResidential segment = "residential"
)

var segmentHints = map[string]segment{
	"MOVEL":       segmentMobile,
	"MÓVEL":       segmentMobile,
	"MOBILE":      segmentMobile,
	"MOBILIDADE":  segmentMobile,
	"RESIDENCIAL": segmentResidential,
	"RESIDENTIAL": segmentResidential,
	"FIXO":        segmentResidential,
}

// Option customises the Enricher.
type Option func(*Enricher)

// WithConcurrentLookups issues the billing and subscriber lookups of the
// mobile path in parallel. Results are merged the same way as the sequential
// path.
func WithConcurrentLookups(enabled bool) Option {
	return func(e *Enricher) {
		e.concurrent = enabled
	}
}

// Enricher resolves email and MSISDN contacts for an identity.
type Enricher struct {
	billing     MobileBillingPort
	subscribers MobileSubscriberPort
	residential ResidentialSubscriberPort
	logger      zerolog.Logger
	concurrent  bool
}

// NewEnricher constructs an Enricher using the supplied directory ports.
func NewEnricher(billing MobileBillingPort, subscribers MobileSubscriberPort, residential ResidentialSubscriberPort, log zerolog.Logger, opts ...Option) (*Enricher, error) {
	if billing == nil {
		return nil, errors.New("enrichment: mobile billing port is required")
	}
	if subscribers == nil {
		return nil, errors.New("enrichment: mobile subscriber port is required")
	}
	if residential == nil {
		return nil, errors.New("enrichment: residential subscriber port is required")
	}

	e := &Enricher{
		billing:     billing,
		subscribers: subscribers,
		residential: residential,
		logger:      logger.Component(log, "contact_enricher"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e, nil
}

// Enrich returns a copy of identity carrying the contact channels that could
// be resolved. It never fails: directory errors leave the affected channel
// unset and are only visible through logs and metrics.
func (e *Enricher) Enrich(ctx context.Context, identity *models.CustomerIdentity) (result *models.CustomerIdentity) {
	if identity == nil {
		return nil
	}
	if strings.TrimSpace(identity.Name) == "" && !identity.HasDocument() {
		return identity
	}

	result = identity
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Str("panic", fmt.Sprint(r)).
				Msg("enrichment aborted; returning identity assembled so far")
		}
	}()

	seg := resolveSegment(identity)
	log := e.logger.With().
		Str("segment", string(seg)).
		Str("document", maskedDocument(identity)).
		Logger()

	var contacts models.ContactChannels
	switch seg {
	case segmentMobile:
		contacts = e.enrichMobile(ctx, identity, log)
	case segmentResidential:
		contacts = e.enrichResidential(ctx, identity, log)
	default:
		log.Debug().Msg("unsupported segment; identity left unchanged")
		return identity
	}

	enriched := identity.WithContacts(contacts)
	result = &enriched

	log.Info().
		Bool("email", contacts.Email != "").
		Bool("msisdn", contacts.MSISDN != "").
		Bool("criteria_met", contacts.CriteriaMet).
		Msg("identity enriched")
	return result
}

func resolveSegment(identity *models.CustomerIdentity) segment {
	if seg, ok := segmentHints[strings.ToUpper(strings.TrimSpace(identity.SegmentHint))]; ok {
		return seg
	}
	if identity.MobileBan == "" {
		return segmentUnsupported
	}
	if identity.OperatorCode == "" {
		return segmentMobile
	}
	return segmentResidential
}

func (e *Enricher) enrichMobile(ctx context.Context, identity *models.CustomerIdentity, log zerolog.Logger) models.ContactChannels {
	var (
		email   string
		msisdn  string
		matched bool
	)

	lookupBilling := func() {
		email = e.billingEmail(ctx, identity, log)
	}
	lookupSubscriber := func() {
		msisdn, matched = e.matchSubscriber(ctx, identity, log)
	}

	if e.concurrent {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			guard(log, directoryBilling, lookupBilling)
		}()
		go func() {
			defer wg.Done()
			guard(log, directorySubscriber, lookupSubscriber)
		}()
		wg.Wait()
	} else {
		guard(log, directoryBilling, lookupBilling)
		guard(log, directorySubscriber, lookupSubscriber)
	}

	return models.ContactChannels{Email: email, MSISDN: msisdn, CriteriaMet: matched}
}

func (e *Enricher) billingEmail(ctx context.Context, identity *models.CustomerIdentity, log zerolog.Logger) string {
	if identity.MobileBan == "" {
		return ""
	}

	details, err := e.billing.GetBillingDetails(ctx, identity.MobileBan)
	if err != nil {
		directoryFailed(log, directoryBilling, err)
		return ""
	}
	if details == nil {
		return ""
	}

	log.Debug().
		Str("billing_name", details.Name).
		Str("billing_document", util.MaskDocument(details.Document)).
		Msg("billing account found")

	if strings.TrimSpace(details.Email) == "" {
		return ""
	}
	email, err := util.NormalizeEmail(details.Email)
	if err != nil {
		log.Warn().Err(err).Str("directory", directoryBilling).Msg("billing email discarded")
		return ""
	}
	return email
}

func (e *Enricher) matchSubscriber(ctx context.Context, identity *models.CustomerIdentity, log zerolog.Logger) (string, bool) {
	if identity.MobileBan == "" || !identity.HasDocument() {
		return "", false
	}

	subscribers, err := e.subscribers.Find(ctx, identity.Document.Value, StatusActive)
	if err != nil {
		directoryFailed(log, directorySubscriber, err)
		return "", false
	}

	for _, sub := range subscribers {
		if sub.Account.MobileBan != identity.MobileBan {
			continue
		}
		if !sameName(sub.Name, identity.Name) || !strings.EqualFold(strings.TrimSpace(sub.Status), StatusActive) {
			continue
		}
		if msisdn := strings.TrimSpace(sub.MSISDN); msisdn != "" {
			return msisdn, true
		}
	}

	log.Info().Int("candidates", len(subscribers)).Msg("no subscriber matched identity")
	return "", false
}

func (e *Enricher) enrichResidential(ctx context.Context, identity *models.CustomerIdentity, log zerolog.Logger) models.ContactChannels {
	var contacts models.ContactChannels
	guard(log, directoryResidential, func() {
		contacts = e.matchContract(ctx, identity, log)
	})
	return contacts
}

func (e *Enricher) matchContract(ctx context.Context, identity *models.CustomerIdentity, log zerolog.Logger) models.ContactChannels {
	if identity.ContractNumber == "" {
		log.Info().Msg("residential identity without contract number; skipping lookup")
		return models.ContactChannels{}
	}

	contracts, err := e.residential.Find(ctx, identity.ContractNumber, StatusActive)
	if err != nil {
		directoryFailed(log, directoryResidential, err)
		return models.ContactChannels{}
	}

	for _, c := range contracts {
		if strings.TrimSpace(c.ContractNumber) != identity.ContractNumber {
			continue
		}
		if !sameName(c.Name, identity.Name) || !strings.EqualFold(strings.TrimSpace(c.Status), StatusActive) {
			continue
		}
		msisdn := strings.TrimSpace(c.MSISDN)
		if msisdn == "" {
			continue
		}
		contacts := models.ContactChannels{MSISDN: msisdn, CriteriaMet: true}
		if email, err := util.NormalizeEmail(c.Email); err == nil {
			contacts.Email = email
		}
		return contacts
	}

	log.Info().Int("candidates", len(contracts)).Msg("no contract matched identity")
	return models.ContactChannels{}
}

// guard runs fn and absorbs a panic so that one directory cannot take down
// the other lookup or the caller.
func guard(log zerolog.Logger, directory string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			directoryFailed(log, directory, fmt.Errorf("panic: %v", r))
		}
	}()
	fn()
}

func directoryFailed(log zerolog.Logger, directory string, err error) {
	metrics.DirectoryFailuresTotal.WithLabelValues(directory).Inc()
	log.Warn().Err(err).Str("directory", directory).Msg("directory lookup failed")
}

func sameName(a, b string) bool {
	a = strings.Join(strings.Fields(a), " ")
	b = strings.Join(strings.Fields(b), " ")
	return a != "" && strings.EqualFold(a, b)
}

func maskedDocument(identity *models.CustomerIdentity) string {
	if !identity.HasDocument() {
		return ""
	}
	return util.MaskDocument(identity.Document.Value)
}
