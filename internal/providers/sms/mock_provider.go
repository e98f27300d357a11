package sms

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/pixauto-notifier/internal/logger"
)

// Scenario enumerates the mock behaviours supported by the SMS provider.
type Scenario string

const (
	ScenarioSuccess   Scenario = "success"
	ScenarioTransient Scenario = "transient"
	ScenarioPermanent Scenario = "permanent"
	ScenarioTimeout   Scenario = "timeout"
)

// Option customises the mock provider.
type Option func(*MockProvider)

// WithScenario sets the default scenario used when a payload does not specify one.
func WithScenario(s Scenario) Option {
	return func(p *MockProvider) {
		p.defaultScenario = s
	}
}

// WithLatency configures the artificial latency injected before sending.
func WithLatency(d time.Duration) Option {
	return func(p *MockProvider) {
		if d < 0 {
			d = 0
		}
		p.latency = d
	}
}

// WithClock overrides the clock used to timestamp responses (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(p *MockProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// MockProvider is a deterministic SMS provider used for tests and dry runs.
// Accepted payloads are kept and can be inspected with Sent.
type MockProvider struct {
	logger          zerolog.Logger
	defaultScenario Scenario
	latency         time.Duration
	now             func() time.Time

	mu   sync.Mutex
	sent []Payload
}

// NewMockProvider constructs a mock SMS provider.
func NewMockProvider(log zerolog.Logger, opts ...Option) *MockProvider {
	p := &MockProvider{
		logger:          logger.Component(log, "sms_mock_provider"),
		defaultScenario: ScenarioSuccess,
		now:             time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Send simulates sending an SMS payload according to the configured scenario.
func (p *MockProvider) Send(ctx context.Context, payload *Payload) (*RawResponse, error) {
	if payload == nil {
		return nil, errors.New("sms mock: payload is required")
	}
	if strings.TrimSpace(payload.To) == "" {
		return nil, errors.New("sms mock: recipient is required")
	}

	// honour context cancellation before work begins
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if p.latency > 0 {
		timer := time.NewTimer(p.latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	scenario := p.defaultScenario
	if val, ok := payload.Meta["scenario"]; ok && strings.TrimSpace(val) != "" {
		scenario = Scenario(strings.ToLower(strings.TrimSpace(val)))
	}

	response := &RawResponse{
		ID:        generateID(payload.MessageID),
		Code:      200,
		Status:    "accepted",
		Body:      "mock: message accepted",
		Timestamp: p.now(),
	}

	switch scenario {
	case ScenarioSuccess:
		p.record(payload)
		p.logger.Debug().
			Str("message_id", payload.MessageID).
			Str("template", payload.TemplateCode).
			Msg("sms mock accepted message")
		return response, nil
	case ScenarioTransient:
		response.Code = 429
		response.Status = "transient_failure"
		response.Body = "mock: transient failure"
		return response, fmt.Errorf("sms mock transient error: rate limited")
	case ScenarioPermanent:
		response.Code = 400
		response.Status = "permanent_failure"
		response.Body = "mock: permanent failure"
		return response, fmt.Errorf("sms mock permanent error: invalid recipient")
	case ScenarioTimeout:
		if _, ok := ctx.Deadline(); !ok {
			return response, context.DeadlineExceeded
		}
		<-ctx.Done()
		return response, ctx.Err()
	default:
		response.Status = "unknown"
		response.Body = "mock: unknown scenario"
		return response, fmt.Errorf("sms mock unknown scenario: %s", scenario)
	}
}

// Sent returns a copy of the payloads accepted so far.
func (p *MockProvider) Sent() []Payload {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Payload(nil), p.sent...)
}

func (p *MockProvider) record(payload *Payload) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, *payload)
}

func generateID(suggested string) string {
	if strings.TrimSpace(suggested) != "" {
		return suggested
	}
	return "sms-" + uuid.NewString()
}
