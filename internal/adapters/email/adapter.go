package email

import (
	"context"
	"errors"
	"fmt"
	"net/textproto"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	common "github.com/example/pixauto-notifier/internal/adapters/common"
	"github.com/example/pixauto-notifier/internal/logger"
	"github.com/example/pixauto-notifier/internal/models"
	emailprovider "github.com/example/pixauto-notifier/internal/providers/email"
	"github.com/example/pixauto-notifier/internal/util"
)

// Template data keys the adapter understands.
const (
	DataEvent        = "event"
	DataCustomerName = "customer_name"
)

const (
	headerTemplate = "X-Template-Code"
	headerPrefix   = "X-Template-"
	defaultSubject = "PIX Automático"
)

// subjects gives each canonical event a human readable subject line.
var subjects = map[models.CanonicalEvent]string{
	models.EventOptIn:             "PIX Automático: autorização confirmada",
	models.EventOptOut:            "PIX Automático: autorização cancelada",
	models.EventScheduling:        "PIX Automático: cobrança agendada",
	models.EventPayment:           "PIX Automático: pagamento confirmado",
	models.EventChange:            "PIX Automático: forma de pagamento alterada",
	models.EventCharge:            "PIX Automático: nova cobrança",
	models.EventSchedulingFailure: "PIX Automático: falha no agendamento",
	models.EventAdhesionIncentive: "PIX Automático: conheça o débito automático via PIX",
}

// Option customises the email adapter.
type Option func(*Adapter)

// WithRawBodyLimit overrides how much of the provider body to keep in responses.
func WithRawBodyLimit(limit int) Option {
	return func(a *Adapter) {
		if limit > 0 {
			a.maxRawChars = limit
		}
	}
}

// WithFrom overrides the sender address. The provider default applies otherwise.
func WithFrom(from string) Option {
	return func(a *Adapter) {
		a.from = strings.TrimSpace(from)
	}
}

// WithIDGenerator replaces the message id source (useful for tests).
func WithIDGenerator(next func() string) Option {
	return func(a *Adapter) {
		if next != nil {
			a.newID = next
		}
	}
}

// Adapter implements common.Adapter for the email channel.
type Adapter struct {
	logger      zerolog.Logger
	provider    emailprovider.Provider
	from        string
	maxRawChars int
	newID       func() string
}

// NewAdapter constructs an email adapter using the supplied provider.
func NewAdapter(provider emailprovider.Provider, log zerolog.Logger, opts ...Option) (*Adapter, error) {
	if provider == nil {
		return nil, errors.New("email adapter: provider dependency is required")
	}

	a := &Adapter{
		logger:      logger.Component(log, "email_adapter"),
		provider:    provider,
		maxRawChars: common.DefaultRawBodyLimit,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

// Send converts the request to a provider payload and delegates the send
// operation. Errors are wrapped with sentinel markers so callers can
// distinguish between transient and permanent failures.
func (a *Adapter) Send(ctx context.Context, req *models.DispatchRequest) (*common.ProviderResponse, error) {
	payload, err := a.buildPayload(req)
	if err != nil {
		return nil, common.WrapPermanent(err)
	}

	rawResp, err := a.provider.Send(ctx, payload)
	if err != nil {
		wrapped := classifyError(rawResp, err)
		resp := a.buildResponse(payload.MessageID, rawResp, statusFor(wrapped), err.Error())
		a.logger.Warn().
			Str("message_id", payload.MessageID).
			Str("channel", models.ChannelEmail.String()).
			Str("template", req.TemplateCode).
			Str("provider_status", resp.Status).
			Err(err).
			Msg("email adapter send failed")
		return resp, wrapped
	}

	resp := a.buildResponse(payload.MessageID, rawResp, common.StatusOK, "sent")
	a.logger.Debug().
		Str("message_id", payload.MessageID).
		Str("channel", models.ChannelEmail.String()).
		Str("template", req.TemplateCode).
		Msg("email adapter send succeeded")
	return resp, nil
}

func (a *Adapter) buildPayload(req *models.DispatchRequest) (*emailprovider.Payload, error) {
	if req == nil {
		return nil, errors.New("email adapter: request is nil")
	}
	if req.Channel != models.ChannelEmail {
		return nil, fmt.Errorf("email adapter: unexpected channel %q", req.Channel)
	}
	to, err := util.NormalizeEmail(req.Destination)
	if err != nil {
		return nil, fmt.Errorf("email adapter: %w", err)
	}
	template, err := util.ValidateTemplateID(req.TemplateCode)
	if err != nil {
		return nil, fmt.Errorf("email adapter: %w", err)
	}

	messageID := a.newID()
	headers := map[string]string{headerTemplate: template}
	for key, value := range req.TemplateData {
		if name := headerName(key); name != "" && strings.TrimSpace(value) != "" {
			headers[headerPrefix+name] = value
		}
	}

	return &emailprovider.Payload{
		MessageID: messageID,
		From:      a.from,
		To:        to,
		Subject:   subjectFor(req.TemplateData[DataEvent]),
		Body:      renderBody(req.TemplateData),
		Headers:   headers,
	}, nil
}

func (a *Adapter) buildResponse(messageID string, raw *emailprovider.RawResponse, status, message string) *common.ProviderResponse {
	resp := &common.ProviderResponse{
		MessageID: messageID,
		Status:    status,
		Message:   message,
	}
	if raw == nil {
		return resp
	}

	meta := make(map[string]string)
	if raw.ID != "" {
		meta["provider_id"] = raw.ID
	}
	if !raw.Timestamp.IsZero() {
		meta["provider_timestamp"] = raw.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	if len(meta) > 0 {
		resp.Meta = meta
	}
	resp.Code = common.OptionalInt(raw.Code)
	if raw.Body != "" {
		resp.Raw = common.TruncateRaw(raw.Body, a.maxRawChars)
	}
	return resp
}

func subjectFor(event string) string {
	if subject, ok := subjects[models.CanonicalEvent(strings.ToUpper(strings.TrimSpace(event)))]; ok {
		return subject
	}
	return defaultSubject
}

// renderBody produces a plain-text fallback listing the template data. The
// relay renders the branded body from the template headers.
func renderBody(data map[string]string) string {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	if name := strings.TrimSpace(data[DataCustomerName]); name != "" {
		fmt.Fprintf(&b, "Olá, %s.\n\n", name)
	}
	for _, key := range keys {
		if key == DataCustomerName || strings.TrimSpace(data[key]) == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", key, data[key])
	}
	return b.String()
}

// headerName turns a template data key such as campaign_id into Campaign-Id.
func headerName(key string) string {
	parts := strings.FieldsFunc(strings.TrimSpace(key), func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	if len(parts) == 0 {
		return ""
	}
	return textproto.CanonicalMIMEHeaderKey(strings.Join(parts, "-"))
}

// classifyError treats SMTP 5xx replies as permanent and everything else as
// transient.
func classifyError(raw *emailprovider.RawResponse, err error) error {
	code := 0
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		code = tpErr.Code
	} else if raw != nil {
		code = raw.Code
	}

	switch {
	case code >= 500:
		return common.WrapPermanent(err)
	case code >= 400:
		return common.WrapTransient(err)
	default:
		return common.ClassifyTransport(err)
	}
}

func statusFor(err error) string {
	switch {
	case common.IsPermanent(err):
		return common.StatusRejected
	case common.IsTransient(err):
		return common.StatusRateLimited
	default:
		return common.StatusUnknown
	}
}
