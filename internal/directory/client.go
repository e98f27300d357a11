// Package directory implements the customer directory ports over HTTP/JSON.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	common "github.com/example/pixauto-notifier/internal/adapters/common"
	"github.com/example/pixauto-notifier/internal/logger"
	"github.com/example/pixauto-notifier/internal/util"
)

const maxBodyBytes = 1 << 20

// HTTPClient abstracts the http.Client Do method for easier testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option customises a directory client.
type Option func(*client)

// WithHTTPClient overrides the HTTP client used for lookups.
func WithHTTPClient(c HTTPClient) Option {
	return func(cl *client) {
		if c != nil {
			cl.http = c
		}
	}
}

// client holds the plumbing shared by the three directory clients.
type client struct {
	name    string
	baseURL string
	http    HTTPClient
	logger  zerolog.Logger
}

func newClient(name, baseURL string, timeout time.Duration, log zerolog.Logger, opts []Option) (*client, error) {
	base, err := util.ValidateHTTPURL(baseURL)
	if err != nil {
		return nil, fmt.Errorf("directory %s: %w", name, err)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	c := &client{
		name:    name,
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.Component(log, "directory_client").With().Str("directory", name).Logger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// getJSON decodes the response for path into out. A 404 reports found=false
// without error. Failures are classified with common.ErrTransient or
// common.ErrPermanent.
func (c *client) getJSON(ctx context.Context, path string, query url.Values, out any) (bool, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, common.WrapPermanent(fmt.Errorf("directory %s: new request: %w", c.name, err))
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return false, common.ClassifyTransport(fmt.Errorf("directory %s: %w", c.name, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return false, common.WrapTransient(fmt.Errorf("directory %s: read body: %w", c.name, err))
	}

	c.logger.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("directory lookup")

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return false, common.ClassifyStatus(resp.StatusCode, &StatusError{
			Directory: c.name,
			Code:      resp.StatusCode,
			Body:      common.TruncateRaw(strings.TrimSpace(string(body)), 256),
		})
	case len(strings.TrimSpace(string(body))) == 0:
		return false, nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return false, common.WrapPermanent(fmt.Errorf("directory %s: decode: %w", c.name, err))
	}
	return true, nil
}

// StatusError reports a non-2xx directory response.
type StatusError struct {
	Directory string
	Code      int
	Body      string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("directory %s: http %d", e.Directory, e.Code)
	}
	return fmt.Sprintf("directory %s: http %d: %s", e.Directory, e.Code, e.Body)
}

// StatusCode exposes the HTTP status for error classification.
func (e *StatusError) StatusCode() int { return e.Code }

// AsStatusError unwraps a directory StatusError, if any.
func AsStatusError(err error) (*StatusError, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr, true
	}
	return nil, false
}
