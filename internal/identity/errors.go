package identity

import "errors"

var (
	// ErrPaymentInfoNotFound is returned when the identifier has no stored
	// record or the record carries no payment entries.
	ErrPaymentInfoNotFound = errors.New("payment info not found")
	// ErrPaymentInfoMalformed is returned when the stored payload matches
	// none of the known shapes.
	ErrPaymentInfoMalformed = errors.New("payment info malformed")
)
