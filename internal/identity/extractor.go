// Package identity rebuilds the paying customer from the payment record stored
// for a transaction identifier.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/example/pixauto-notifier/internal/logger"
	"github.com/example/pixauto-notifier/internal/models"
)

// PaymentInfoPort loads stored payment records. Implementations should wrap
// ErrPaymentInfoNotFound when the identifier is unknown.
type PaymentInfoPort interface {
	FindByIdentifier(ctx context.Context, identifier string) (*models.PaymentRecord, error)
}

// Extractor turns stored payment payloads into customer identities.
type Extractor struct {
	payments PaymentInfoPort
	logger   zerolog.Logger
}

// NewExtractor constructs an Extractor backed by the supplied port.
func NewExtractor(payments PaymentInfoPort, log zerolog.Logger) (*Extractor, error) {
	if payments == nil {
		return nil, errors.New("identity: payment info port is required")
	}
	return &Extractor{
		payments: payments,
		logger:   logger.Component(log, "identity_extractor"),
	}, nil
}

// Extract fetches the payment record for identifier and parses the first
// payment entry. A blank identifier yields (nil, nil).
func (e *Extractor) Extract(ctx context.Context, identifier string) (*models.CustomerIdentity, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, nil
	}

	record, err := e.payments.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrPaymentInfoNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("identity: fetch payment info: %w", err)
	}
	if record == nil || len(record.Payments) == 0 {
		return nil, fmt.Errorf("%w: identifier %s has no payments", ErrPaymentInfoNotFound, identifier)
	}

	entry := record.Payments[0]
	if len(entry.Payload) > 0 {
		for _, parser := range payloadParsers {
			identity, ok := parser.parse(entry.Payload)
			if !ok {
				continue
			}
			e.logger.Debug().
				Str("identifier", identifier).
				Str("payload_shape", parser.name).
				Bool("complete", identity.Complete()).
				Msg("identity extracted")
			return identity, nil
		}
	}

	return nil, fmt.Errorf("%w: payment %s of identifier %s", ErrPaymentInfoMalformed, entry.ID, identifier)
}
