package util

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrInvalidEmail is returned when an email address cannot be parsed.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrInvalidPhone is returned when a value cannot be used as an MSISDN.
	ErrInvalidPhone = errors.New("invalid msisdn")
	// ErrInvalidDocument is returned for CPF/CNPJ values with the wrong length.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrInvalidURL indicates that a URL failed validation.
	ErrInvalidURL = errors.New("invalid url")
	// ErrInvalidTemplateID indicates a template identifier is malformed.
	ErrInvalidTemplateID = errors.New("invalid template id")
)

const (
	cpfLength       = 11
	cnpjLength      = 14
	brazilDialCode  = "55"
	msisdnMaxDigits = 15
)

var templateIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,64}$`)

// NormalizeEmail validates and normalizes an email address. The returned value
// is lowercased and stripped of surrounding whitespace.
func NormalizeEmail(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("%w: value is empty", ErrInvalidEmail)
	}

	addr, err := mail.ParseAddress(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEmail, err)
	}

	if addr.Name != "" || addr.Address != trimmed {
		return "", fmt.Errorf("%w: must be a bare address", ErrInvalidEmail)
	}

	return strings.ToLower(addr.Address), nil
}

// NormalizeMSISDN strips formatting from a phone number and returns it in
// international digit form. Brazilian national numbers (area code plus 8 or 9
// digits) receive the 55 country prefix.
func NormalizeMSISDN(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("%w: value is empty", ErrInvalidPhone)
	}

	digits := DigitsOnly(trimmed)
	if len(digits) < 10 || len(digits) > msisdnMaxDigits || digits[0] == '0' {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, trimmed)
	}
	if len(digits) == 10 || len(digits) == 11 {
		digits = brazilDialCode + digits
	}

	return digits, nil
}

// DigitsOnly drops every non-digit rune from value.
func DigitsOnly(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if unicode.IsDigit(r) && r < utf8.RuneSelf {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeCPF returns the 11 digits of a CPF, ignoring punctuation.
func NormalizeCPF(value string) (string, error) {
	return normalizeDocument(value, cpfLength, "cpf")
}

// NormalizeCNPJ returns the 14 digits of a CNPJ, ignoring punctuation.
func NormalizeCNPJ(value string) (string, error) {
	return normalizeDocument(value, cnpjLength, "cnpj")
}

func normalizeDocument(value string, length int, kind string) (string, error) {
	digits := DigitsOnly(value)
	if digits == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrInvalidDocument, kind)
	}
	if len(digits) != length {
		return "", fmt.Errorf("%w: %s must have %d digits, got %d", ErrInvalidDocument, kind, length, len(digits))
	}
	return digits, nil
}

// MaskDocument hides all but the last two digits of a document so it can be
// logged.
func MaskDocument(value string) string {
	digits := DigitsOnly(value)
	if len(digits) <= 2 {
		return strings.Repeat("*", len(digits))
	}
	return strings.Repeat("*", len(digits)-2) + digits[len(digits)-2:]
}

// ValidateHTTPURL ensures the provided string is a valid HTTP or HTTPS URL.
func ValidateHTTPURL(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("%w: value is empty", ErrInvalidURL)
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: host is required", ErrInvalidURL)
	}

	return strings.TrimRight(trimmed, "/"), nil
}

// ValidateTemplateID enforces the pattern accepted by the messaging platform
// for template codes.
func ValidateTemplateID(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("%w: value is empty", ErrInvalidTemplateID)
	}
	if !templateIDPattern.MatchString(trimmed) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTemplateID, trimmed)
	}
	return trimmed, nil
}
