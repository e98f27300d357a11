package email

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

// Scenario enumerates the supported mock behaviours. The default scenario is
// success unless overridden via headers or options.
type Scenario string

const (
	ScenarioSuccess   Scenario = "success"
	ScenarioTransient Scenario = "transient"
	ScenarioPermanent Scenario = "permanent"
	ScenarioTimeout   Scenario = "timeout"

	headerScenario = "X-Mock-Provider-Scenario"
)

// Option customizes the behaviour of the mock provider at construction time.
type Option func(*MockProvider)

// WithDefaultScenario configures the default behaviour when a payload does not
// specify an explicit scenario via headers.
func WithDefaultScenario(s Scenario) Option {
	return func(p *MockProvider) {
		p.defaultScenario = s
	}
}

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *MockProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// MockProvider implements a deterministic email provider suitable for local
// development and automated testing. Accepted payloads are kept in memory.
type MockProvider struct {
	logger          zerolog.Logger
	defaultScenario Scenario
	now             func() time.Time

	mu   sync.Mutex
	sent []Payload
}

// NewMockProvider constructs a mock email provider that accepts every message
// unless configured otherwise.
func NewMockProvider(log zerolog.Logger, opts ...Option) *MockProvider {
	p := &MockProvider{
		logger:          logger.Component(log, "email_mock_provider"),
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

// Send simulates an SMTP exchange. The scenario can be forced per message with
// the X-Mock-Provider-Scenario header.
func (p *MockProvider) Send(ctx context.Context, payload *Payload) (*RawResponse, error) {
	if payload == nil {
		return nil, errors.New("email mock: payload is required")
	}
	if strings.TrimSpace(payload.To) == "" {
		return nil, errors.New("email mock: recipient is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scenario := p.defaultScenario
	for key, value := range payload.Headers {
		if strings.EqualFold(key, headerScenario) && strings.TrimSpace(value) != "" {
			scenario = Scenario(strings.ToLower(strings.TrimSpace(value)))
		}
	}

	id := payload.MessageID
	if strings.TrimSpace(id) == "" {
		id = "email-" + uuid.NewString()
	}
	resp := &RawResponse{ID: id, Timestamp: p.now()}

	switch scenario {
	case ScenarioSuccess:
		resp.Code = 250
		resp.Body = "mock: message queued"
		p.mu.Lock()
		p.sent = append(p.sent, *payload)
		p.mu.Unlock()
		p.logger.Debug().Str("message_id", id).Msg("email mock accepted message")
		return resp, nil
	case ScenarioTransient:
		resp.Code = 421
		resp.Body = "mock: service not available"
		return resp, fmt.Errorf("email mock transient error: %s", resp.Body)
	case ScenarioPermanent:
		resp.Code = 550
		resp.Body = "mock: mailbox unavailable"
		return resp, fmt.Errorf("email mock permanent error: %s", resp.Body)
	case ScenarioTimeout:
		if _, ok := ctx.Deadline(); !ok {
			return resp, context.DeadlineExceeded
		}
		<-ctx.Done()
		return resp, ctx.Err()
	default:
		return resp, fmt.Errorf("email mock unknown scenario: %s", scenario)
	}
}

// Sent returns a copy of the payloads accepted so far.
func (p *MockProvider) Sent() []Payload {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Payload(nil), p.sent...)
}
