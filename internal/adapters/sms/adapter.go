package sms

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	common "github.com/example/pixauto-notifier/internal/adapters/common"
	"github.com/example/pixauto-notifier/internal/logger"
	"github.com/example/pixauto-notifier/internal/models"
	smsprovider "github.com/example/pixauto-notifier/internal/providers/sms"
	"github.com/example/pixauto-notifier/internal/util"
)

// Option modifies adapter behaviour.
type Option func(*Adapter)

// WithRawBodyLimit overrides how much of the provider body to keep in responses.
func WithRawBodyLimit(limit int) Option {
	return func(a *Adapter) {
		if limit > 0 {
			a.maxRawChars = limit
		}
	}
}

// WithSender sets the sender id passed to the provider.
func WithSender(from string) Option {
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

// Adapter implements common.Adapter for the SMS channel.
type Adapter struct {
	logger      zerolog.Logger
	provider    smsprovider.Provider
	from        string
	maxRawChars int
	newID       func() string
}

// NewAdapter constructs an SMS adapter using the supplied provider.
func NewAdapter(provider smsprovider.Provider, log zerolog.Logger, opts ...Option) (*Adapter, error) {
	if provider == nil {
		return nil, errors.New("sms adapter: provider dependency is required")
	}

	a := &Adapter{
		logger:      logger.Component(log, "sms_adapter"),
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

// Send validates the request, converts it into a provider payload and
// delegates to the provider. Invalid requests fail with a permanent error
// before the provider is called.
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
			Str("channel", models.ChannelSMS.String()).
			Str("template", payload.TemplateCode).
			Str("provider_status", resp.Status).
			Err(err).
			Msg("sms adapter send failed")
		return resp, wrapped
	}

	resp := a.buildResponse(payload.MessageID, rawResp, common.StatusOK, "sent")
	a.logger.Debug().
		Str("message_id", payload.MessageID).
		Str("channel", models.ChannelSMS.String()).
		Str("template", payload.TemplateCode).
		Str("provider_id", resp.Meta["provider_id"]).
		Msg("sms adapter send succeeded")
	return resp, nil
}

func (a *Adapter) buildPayload(req *models.DispatchRequest) (*smsprovider.Payload, error) {
	if req == nil {
		return nil, errors.New("sms adapter: request is nil")
	}
	if req.Channel != models.ChannelSMS {
		return nil, fmt.Errorf("sms adapter: unexpected channel %q", req.Channel)
	}
	to, err := util.NormalizeMSISDN(req.Destination)
	if err != nil {
		return nil, fmt.Errorf("sms adapter: %w", err)
	}
	template, err := util.ValidateTemplateID(req.TemplateCode)
	if err != nil {
		return nil, fmt.Errorf("sms adapter: %w", err)
	}

	messageID := a.newID()
	params := make(map[string]string, len(req.TemplateData))
	for key, value := range req.TemplateData {
		if strings.TrimSpace(value) != "" {
			params[key] = value
		}
	}

	return &smsprovider.Payload{
		MessageID:    messageID,
		From:         a.from,
		To:           to,
		TemplateCode: template,
		Params:       params,
		Meta:         map[string]string{"message_id": messageID},
	}, nil
}

func (a *Adapter) buildResponse(messageID string, raw *smsprovider.RawResponse, status, message string) *common.ProviderResponse {
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
	if raw.Status != "" {
		meta["provider_status"] = raw.Status
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

// classifyError prefers an explicit HTTP status from the provider error, then
// the raw response code, then the provider status text.
func classifyError(raw *smsprovider.RawResponse, err error) error {
	var httpErr interface{ StatusCode() int }
	if errors.As(err, &httpErr) {
		return common.ClassifyStatus(httpErr.StatusCode(), err)
	}
	if raw != nil {
		lower := strings.ToLower(raw.Status)
		switch {
		case strings.Contains(lower, "permanent"), strings.Contains(lower, "invalid"):
			return common.WrapPermanent(err)
		case strings.Contains(lower, "transient"):
			return common.WrapTransient(err)
		case raw.Code >= 400:
			return common.ClassifyStatus(raw.Code, err)
		}
	}
	return common.ClassifyTransport(err)
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
