package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/pixauto-notifier/internal/config"
	"github.com/example/pixauto-notifier/internal/logger"
)

const defaultMaxBodyBytes = 16 * 1024

// HTTPClient abstracts the http.Client Do method for easier testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPOption customises the behaviour of the HTTP gateway provider.
type HTTPOption func(*HTTPProvider)

// WithHTTPClient overrides the HTTP client used to talk to the gateway.
func WithHTTPClient(client HTTPClient) HTTPOption {
	return func(p *HTTPProvider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithHTTPClock overrides the clock used for timestamps.
func WithHTTPClock(now func() time.Time) HTTPOption {
	return func(p *HTTPProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// WithHTTPBodyLimit adjusts how many bytes are retained from the response body.
func WithHTTPBodyLimit(limit int64) HTTPOption {
	return func(p *HTTPProvider) {
		if limit > 0 {
			p.maxBodyBytes = limit
		}
	}
}

// HTTPProvider posts templated messages to an SMS gateway as form data:
// To, From, Template and one Param.<name> field per template parameter.
type HTTPProvider struct {
	logger       zerolog.Logger
	endpoint     string
	apiKey       string
	defaultFrom  string
	httpClient   HTTPClient
	now          func() time.Time
	maxBodyBytes int64
}

// NewHTTPProvider constructs a gateway-backed SMS provider.
func NewHTTPProvider(cfg config.SMSGatewayConfig, timeout time.Duration, log zerolog.Logger, opts ...HTTPOption) (*HTTPProvider, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("sms http provider: base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("sms http provider: api key is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	p := &HTTPProvider{
		logger:       logger.Component(log, "sms_http_provider"),
		endpoint:     base + "/messages",
		apiKey:       strings.TrimSpace(cfg.APIKey),
		defaultFrom:  strings.TrimSpace(cfg.Sender),
		httpClient:   &http.Client{Timeout: timeout},
		now:          time.Now,
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

// Send delivers the payload through the gateway. Non-2xx responses are
// returned as a *StatusError alongside the raw response.
func (p *HTTPProvider) Send(ctx context.Context, payload *Payload) (*RawResponse, error) {
	if payload == nil {
		return nil, errors.New("sms http provider: payload is required")
	}
	if strings.TrimSpace(payload.To) == "" {
		return nil, errors.New("sms http provider: recipient is required")
	}

	from := strings.TrimSpace(payload.From)
	if from == "" {
		from = p.defaultFrom
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(p.form(payload, from).Encode()))
	if err != nil {
		return nil, fmt.Errorf("sms http provider: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if payload.MessageID != "" {
		req.Header.Set("Idempotency-Key", payload.MessageID)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sms http provider: http do: %w", err)
	}
	defer resp.Body.Close()

	body, err := p.readBody(resp.Body)
	if err != nil {
		return nil, err
	}

	parsed := parseGatewayBody(body)
	raw := &RawResponse{
		ID:        parsed.ID,
		Code:      resp.StatusCode,
		Status:    parsed.Status,
		Body:      body,
		Timestamp: p.now(),
	}
	if raw.Status == "" {
		raw.Status = http.StatusText(resp.StatusCode)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if raw.ID == "" {
			raw.ID = payload.MessageID
		}
		return raw, nil
	}

	message := parsed.Message
	if message == "" {
		message = strings.TrimSpace(body)
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return raw, &StatusError{Code: resp.StatusCode, Message: message}
}

func (p *HTTPProvider) form(payload *Payload, from string) url.Values {
	params := url.Values{}
	params.Set("To", payload.To)
	if from != "" {
		params.Set("From", from)
	}
	params.Set("Template", payload.TemplateCode)

	keys := make([]string, 0, len(payload.Params))
	for key := range payload.Params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := strings.TrimSpace(payload.Params[key])
		if strings.TrimSpace(key) == "" || value == "" {
			continue
		}
		params.Set("Param."+strings.TrimSpace(key), value)
	}
	if id := payload.Meta["message_id"]; id != "" {
		params.Set("Reference", id)
	}
	return params
}

func (p *HTTPProvider) readBody(rc io.ReadCloser) (string, error) {
	if rc == nil {
		return "", nil
	}
	data, err := io.ReadAll(io.LimitReader(rc, p.maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("sms http provider: read body: %w", err)
	}
	return string(data), nil
}

// StatusError reports a non-2xx gateway response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sms http provider: http %d: %s", e.Code, e.Message)
}

// StatusCode exposes the HTTP status for error classification.
func (e *StatusError) StatusCode() int { return e.Code }

type gatewayBody struct {
	ID      string
	Status  string
	Message string
}

func parseGatewayBody(body string) gatewayBody {
	if strings.TrimSpace(body) == "" {
		return gatewayBody{}
	}

	var generic map[string]any
	if err := json.Unmarshal([]byte(body), &generic); err != nil {
		return gatewayBody{}
	}

	result := gatewayBody{}
	switch v := generic["id"].(type) {
	case string:
		result.ID = v
	case float64:
		result.ID = strconv.FormatInt(int64(v), 10)
	}
	if v, ok := generic["status"].(string); ok {
		result.Status = v
	}
	if v, ok := generic["message"].(string); ok {
		result.Message = v
	}
	return result
}
