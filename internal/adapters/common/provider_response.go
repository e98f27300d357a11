package common

import (
	"unicode/utf8"

	"github.com/example/pixauto-notifier/internal/models"
)

// DefaultRawBodyLimit defines the maximum number of characters retained from a
// provider response body when attaching it to a ProviderResponse.
const DefaultRawBodyLimit = 1024

// Response statuses reported by adapters.
const (
	StatusOK          = "ok"
	StatusRejected    = "rejected"
	StatusRateLimited = "rate_limited"
	StatusUnknown     = "unknown"
)

// ProviderResponse captures normalized provider information exchanged between
// adapters and the dispatcher.
type ProviderResponse struct {
	MessageID string            `json:"message_id"`
	Status    string            `json:"status"`
	Code      *int              `json:"code,omitempty"`
	Message   string            `json:"message,omitempty"`
	Raw       string            `json:"raw,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// Result converts the response into the dispatch port's result value.
func (r *ProviderResponse) Result(channel models.Channel) *models.DispatchResult {
	if r == nil {
		return &models.DispatchResult{Channel: channel, Status: StatusUnknown}
	}
	return &models.DispatchResult{
		MessageID:  r.MessageID,
		Channel:    channel,
		ProviderID: r.Meta["provider_id"],
		Status:     r.Status,
	}
}

// TruncateRaw trims the supplied string to the specified rune limit. If limit
// is zero or negative it returns an empty string.
func TruncateRaw(raw string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(raw) <= limit {
		return raw
	}
	return string([]rune(raw)[:limit])
}

// OptionalInt returns nil for a zero code so it is omitted from responses.
func OptionalInt(code int) *int {
	if code == 0 {
		return nil
	}
	c := code
	return &c
}
