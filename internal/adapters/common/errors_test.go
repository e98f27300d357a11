package common

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestWrapTransient(t *testing.T) {
	base := errors.New("temporary failure")
	wrapped := WrapTransient(base)

	if !errors.Is(wrapped, ErrTransient) {
		t.Fatalf("expected wrapped error to be transient: %v", wrapped)
	}

	if !strings.Contains(wrapped.Error(), base.Error()) {
		t.Fatalf("expected wrapped error message to include original message")
	}
}

func TestWrapPermanent(t *testing.T) {
	base := errors.New("invalid recipient")
	wrapped := WrapPermanent(base)

	if !IsPermanent(wrapped) {
		t.Fatalf("expected wrapped error to be permanent: %v", wrapped)
	}
	if IsTransient(wrapped) {
		t.Fatalf("permanent error must not be transient")
	}
}

func TestWrapNil(t *testing.T) {
	if !errors.Is(WrapTransient(nil), ErrTransient) {
		t.Fatalf("expected nil transient wrap to fall back to ErrTransient")
	}
	if !errors.Is(WrapPermanent(nil), ErrPermanent) {
		t.Fatalf("expected nil permanent wrap to fall back to ErrPermanent")
	}
}

func TestClassifyStatus(t *testing.T) {
	base := errors.New("boom")
	cases := []struct {
		code      int
		transient bool
	}{
		{429, true},
		{408, true},
		{500, true},
		{503, true},
		{400, false},
		{401, false},
		{422, false},
		{0, true},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.code), func(t *testing.T) {
			err := ClassifyStatus(tc.code, base)
			if IsTransient(err) != tc.transient {
				t.Fatalf("code %d: transient=%v, got %v", tc.code, tc.transient, err)
			}
			if IsPermanent(err) == tc.transient {
				t.Fatalf("code %d: error must carry exactly one class", tc.code)
			}
		})
	}
}

func TestClassifyTransport(t *testing.T) {
	if ClassifyTransport(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
	if !IsPermanent(ClassifyTransport(context.Canceled)) {
		t.Fatalf("expected cancellation to be permanent")
	}
	if !IsTransient(ClassifyTransport(fmt.Errorf("dial: %w", context.DeadlineExceeded))) {
		t.Fatalf("expected deadline to be transient")
	}
	already := WrapPermanent(errors.New("bad"))
	if ClassifyTransport(already) != already {
		t.Fatalf("expected classified error to pass through")
	}
}
