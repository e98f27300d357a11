package sms_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	smsprovider "github.com/example/pixauto-notifier/internal/providers/sms"
)

func TestMockProviderSuccess(t *testing.T) {
	fixed := time.Date(2025, time.January, 1, 10, 0, 0, 0, time.UTC)
	provider := smsprovider.NewMockProvider(zerolog.Nop(), smsprovider.WithClock(func() time.Time { return fixed }))

	payload := &smsprovider.Payload{
		MessageID:    "msg-1",
		To:           "5511992212346",
		TemplateCode: "PIXAUTO_PAGAMENTO",
		Params:       map[string]string{"customer_name": "João Silva"},
	}

	resp, err := provider.Send(context.Background(), payload)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if resp.Code != 200 || resp.Status != "accepted" || resp.ID != "msg-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Timestamp != fixed {
		t.Fatalf("expected fixed timestamp, got %v", resp.Timestamp)
	}
	sent := provider.Sent()
	if len(sent) != 1 || sent[0].TemplateCode != "PIXAUTO_PAGAMENTO" {
		t.Fatalf("expected recorded payload, got %+v", sent)
	}
}

func TestMockProviderScenarios(t *testing.T) {
	provider := smsprovider.NewMockProvider(zerolog.Nop())

	for _, tc := range []struct {
		scenario string
		code     int
	}{
		{"transient", 429},
		{"permanent", 400},
	} {
		payload := &smsprovider.Payload{To: "5511992212346", Meta: map[string]string{"scenario": tc.scenario}}
		resp, err := provider.Send(context.Background(), payload)
		if err == nil {
			t.Fatalf("%s: expected error", tc.scenario)
		}
		if resp == nil || resp.Code != tc.code {
			t.Fatalf("%s: unexpected response %+v", tc.scenario, resp)
		}
	}
	if len(provider.Sent()) != 0 {
		t.Fatalf("failed sends must not be recorded")
	}
}

func TestMockProviderTimeoutHonoursContext(t *testing.T) {
	provider := smsprovider.NewMockProvider(zerolog.Nop(), smsprovider.WithScenario(smsprovider.ScenarioTimeout))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := provider.Send(ctx, &smsprovider.Payload{To: "5511992212346"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestMockProviderValidatesPayload(t *testing.T) {
	provider := smsprovider.NewMockProvider(zerolog.Nop())
	if _, err := provider.Send(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil payload")
	}
	if _, err := provider.Send(context.Background(), &smsprovider.Payload{}); err == nil {
		t.Fatalf("expected error without recipient")
	}
}
