package common

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrTransient and ErrPermanent classify failures of outbound calls, whether to
// a delivery provider or a customer directory.
var (
	ErrTransient = errors.New("transient error")
	ErrPermanent = errors.New("permanent error")
)

// WrapTransient annotates an error so callers can detect transient failures.
func WrapTransient(err error) error {
	if err == nil {
		return ErrTransient
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// WrapPermanent annotates an error as permanent.
func WrapPermanent(err error) error {
	if err == nil {
		return ErrPermanent
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// IsTransient reports whether err was classified as transient.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsPermanent reports whether err was classified as permanent.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}

// ClassifyStatus wraps err according to an HTTP status code: throttling and
// server errors are transient, any other 4xx is permanent. Codes outside those
// ranges fall back to ClassifyTransport.
func ClassifyStatus(code int, err error) error {
	switch {
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout:
		return WrapTransient(err)
	case code >= http.StatusInternalServerError:
		return WrapTransient(err)
	case code >= http.StatusBadRequest:
		return WrapPermanent(err)
	default:
		return ClassifyTransport(err)
	}
}

// ClassifyTransport classifies errors raised before any response was read.
// Timeouts and network failures are transient; cancellation is permanent.
func ClassifyTransport(err error) error {
	if err == nil {
		return nil
	}
	if IsTransient(err) || IsPermanent(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return WrapTransient(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return WrapTransient(err)
	}
	if errors.Is(err, context.Canceled) {
		return WrapPermanent(err)
	}
	return WrapTransient(err)
}
