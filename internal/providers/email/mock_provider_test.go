package email_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	emailprovider "github.com/example/pixauto-notifier/internal/providers/email"
)

func TestMockProviderAcceptsAndRecords(t *testing.T) {
	fixed := time.Date(2025, time.January, 1, 10, 0, 0, 0, time.UTC)
	provider := emailprovider.NewMockProvider(zerolog.Nop(), emailprovider.WithClock(func() time.Time { return fixed }))

	resp, err := provider.Send(context.Background(), &emailprovider.Payload{MessageID: "msg-1", To: "joao@x.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Code != 250 || resp.ID != "msg-1" || !resp.Timestamp.Equal(fixed) {
		t.Fatalf("unexpected response %+v", resp)
	}
	if sent := provider.Sent(); len(sent) != 1 || sent[0].To != "joao@x.com" {
		t.Fatalf("expected recorded payload, got %+v", sent)
	}
}

func TestMockProviderScenarioHeader(t *testing.T) {
	provider := emailprovider.NewMockProvider(zerolog.Nop())

	cases := map[string]int{"transient": 421, "permanent": 550}
	for scenario, code := range cases {
		payload := &emailprovider.Payload{
			To:      "joao@x.com",
			Headers: map[string]string{"x-mock-provider-scenario": scenario},
		}
		resp, err := provider.Send(context.Background(), payload)
		if err == nil {
			t.Fatalf("%s: expected error", scenario)
		}
		if resp.Code != code {
			t.Fatalf("%s: expected code %d, got %d", scenario, code, resp.Code)
		}
	}
	if len(provider.Sent()) != 0 {
		t.Fatalf("failed sends must not be recorded")
	}
}

func TestMockProviderGeneratesID(t *testing.T) {
	provider := emailprovider.NewMockProvider(zerolog.Nop())
	resp, err := provider.Send(context.Background(), &emailprovider.Payload{To: "joao@x.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ID == "" {
		t.Fatalf("expected generated id")
	}
}
