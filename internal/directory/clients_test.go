package directory

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	common "github.com/example/pixauto-notifier/internal/adapters/common"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClientRejectsInvalidURL(t *testing.T) {
	if _, err := NewBillingClient("ftp://billing", time.Second, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for non-http url")
	}
	if _, err := NewSubscriberClient("", time.Second, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestBillingClientGetBillingDetails(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/billing-accounts/146164452" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"mobileBan":"146164452","email":"joao@x.com","name":"JOAO SILVA","document":"12345678901"}`)
	})

	client, err := NewBillingClient(srv.URL+"/", time.Second, zerolog.New(io.Discard))
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	details, err := client.GetBillingDetails(context.Background(), "146164452")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if details == nil || details.Email != "joao@x.com" || details.Name != "JOAO SILVA" {
		t.Fatalf("unexpected details %+v", details)
	}
}

func TestBillingClientNotFound(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	client, err := NewBillingClient(srv.URL, time.Second, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	details, err := client.GetBillingDetails(context.Background(), "999")
	if err != nil || details != nil {
		t.Fatalf("expected nil details and no error, got %+v, %v", details, err)
	}
}

func TestSubscriberClientFind(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/subscribers" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("document") != "12345678901" || r.URL.Query().Get("status") != "ACTIVE" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = io.WriteString(w, `[{"msisdn":"11992212346","name":"João Silva","status":"ACTIVE","account":{"mobileBan":"146164452"}}]`)
	})

	client, err := NewSubscriberClient(srv.URL, time.Second, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	subs, err := client.Find(context.Background(), "12345678901", "ACTIVE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(subs) != 1 || subs[0].MSISDN != "11992212346" || subs[0].Account.MobileBan != "146164452" {
		t.Fatalf("unexpected subscribers %+v", subs)
	}
}

func TestContractClientFind(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/contracts/CT-9/subscribers" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `[{"contractNumber":"CT-9","name":"João Silva","status":"ACTIVE","msisdn":"11922220000","email":"casa@x.com"}]`)
	})

	client, err := NewContractClient(srv.URL, time.Second, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	contracts, err := client.Find(context.Background(), "CT-9", "ACTIVE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contracts) != 1 || contracts[0].Email != "casa@x.com" {
		t.Fatalf("unexpected contracts %+v", contracts)
	}

	none, err := client.Find(context.Background(), " ", "ACTIVE")
	if err != nil || none != nil {
		t.Fatalf("expected no lookup for blank contract number")
	}
}

func TestClientErrorClassification(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		body      string
		transient bool
	}{
		{"server error", http.StatusServiceUnavailable, "down", true},
		{"throttled", http.StatusTooManyRequests, "", true},
		{"bad request", http.StatusBadRequest, "bad document", false},
		{"garbage body", http.StatusOK, "{not json", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			client, err := NewSubscriberClient(srv.URL, time.Second, zerolog.Nop())
			if err != nil {
				t.Fatalf("unexpected constructor error: %v", err)
			}

			_, err = client.Find(context.Background(), "12345678901", "ACTIVE")
			if err == nil {
				t.Fatalf("expected error")
			}
			if common.IsTransient(err) != tc.transient || common.IsPermanent(err) == tc.transient {
				t.Fatalf("expected transient=%v, got %v", tc.transient, err)
			}
			if tc.status != http.StatusOK {
				statusErr, ok := AsStatusError(err)
				if !ok || statusErr.StatusCode() != tc.status {
					t.Fatalf("expected status error %d, got %v", tc.status, err)
				}
			}
		})
	}
}

func TestClientTimeoutIsTransient(t *testing.T) {
	release := make(chan struct{})
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	client, err := NewBillingClient(srv.URL, 20*time.Millisecond, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	_, err = client.GetBillingDetails(context.Background(), "146164452")
	if !common.IsTransient(err) {
		t.Fatalf("expected transient timeout error, got %v", err)
	}
}
