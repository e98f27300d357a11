package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/example/pixauto-notifier/internal/metrics"
	"github.com/example/pixauto-notifier/internal/server"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	srv := server.New(prometheus.NewRegistry(), zerolog.New(io.Discard))

	rec := get(t, srv.Handler(), "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestReadyzReportsEveryCheck(t *testing.T) {
	consumerReady := false
	srv := server.New(prometheus.NewRegistry(), zerolog.New(io.Discard),
		server.Check{Name: "consumer", Probe: server.ReadyFunc(func() bool { return consumerReady })},
		server.Check{Name: "payment_store", Probe: func(context.Context) error { return nil }},
	)

	rec := get(t, srv.Handler(), "/readyz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while consumer is not ready, got %d", rec.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "not_ready" || body.Checks["consumer"] != "not ready" || body.Checks["payment_store"] != "ok" {
		t.Fatalf("unexpected readiness body %+v", body)
	}

	consumerReady = true
	if rec := get(t, srv.Handler(), "/readyz"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 once ready, got %d", rec.Code)
	}
}

func TestReadyzFailingProbe(t *testing.T) {
	srv := server.New(prometheus.NewRegistry(), zerolog.New(io.Discard),
		server.Check{Name: "payment_store", Probe: func(context.Context) error { return errors.New("connection refused") }},
	)
	rec := get(t, srv.Handler(), "/readyz")
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "connection refused") {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestMetricsServesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		t.Fatalf("register metrics: %v", err)
	}
	metrics.ProcessTotal.WithLabelValues(metrics.OutcomeDispatched).Inc()

	srv := server.New(reg, zerolog.New(io.Discard))
	rec := get(t, srv.Handler(), "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `pixauto_process_total{outcome="dispatched"}`) {
		t.Fatalf("expected process counter in output, got %s", rec.Body.String())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	srv := server.New(prometheus.NewRegistry(), zerolog.New(io.Discard))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, "127.0.0.1:0") }()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
}
