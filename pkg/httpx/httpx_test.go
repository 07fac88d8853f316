package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func fastConfig(retries int) Config {
	return Config{
		Timeout:        2 * time.Second,
		MaxRetries:     retries,
		BackoffInitial: time.Millisecond,
		BackoffMax:     2 * time.Millisecond,
	}
}

// flakyEmployees fails the first `failures` requests with status, then
// answers with an empty employee list.
func flakyEmployees(failures int32, status int) (*httptest.Server, *atomic.Int32) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= failures {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"error":"storage unavailable"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[]`)
	}))
	return srv, &hits
}

func TestNormalizeConfigDefaults(t *testing.T) {
	var cfg Config
	normalizeConfig(&cfg)

	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", cfg.Timeout)
	}
	if cfg.BackoffInitial != time.Second || cfg.BackoffMax != 30*time.Second {
		t.Errorf("backoff = %v..%v, want 1s..30s", cfg.BackoffInitial, cfg.BackoffMax)
	}
	if cfg.UserAgent != DefaultUserAgent {
		t.Errorf("UserAgent = %q, want %q", cfg.UserAgent, DefaultUserAgent)
	}
	if len(cfg.RetryStatus) != 101 || cfg.RetryStatus[0] != http.StatusTooManyRequests {
		t.Errorf("RetryStatus = %d codes starting %v, want 429 plus 5xx", len(cfg.RetryStatus), cfg.RetryStatus[:1])
	}

	neg := Config{MaxRetries: -3, RetryOn: func(int, error) bool { return false }}
	normalizeConfig(&neg)
	if neg.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want 0", neg.MaxRetries)
	}
	if len(neg.RetryStatus) != 0 {
		t.Errorf("RetryStatus should stay empty with RetryOn set, got %v", neg.RetryStatus)
	}
}

func TestNewWithHTTP(t *testing.T) {
	hc := &http.Client{Timeout: time.Second}
	c, ok := NewWithHTTP(hc, Config{}).(*realClient)
	if !ok || c.http != hc {
		t.Fatal("expected the supplied http.Client to be used")
	}
	if _, ok := NewWithHTTP(nil, Config{}).(*realClient); !ok {
		t.Fatal("expected a default client for nil")
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		params  map[string]string
		want    string
		wantErr bool
	}{
		{name: "collection", raw: "http://localhost:3000/employees", want: "http://localhost:3000/employees"},
		{name: "record", raw: "http://localhost:3000/employees/7", want: "http://localhost:3000/employees/7"},
		{name: "params", raw: "http://localhost:3000/employees", params: map[string]string{"company": "ACME Ltd"}, want: "http://localhost:3000/employees?company=ACME+Ltd"},
		{name: "params merge with query", raw: "http://h/employees?page=2", params: map[string]string{"size": "10"}, want: "http://h/employees?page=2&size=10"},
		{name: "no scheme", raw: "localhost:3000/employees", wantErr: true},
		{name: "relative", raw: "/employees", wantErr: true},
		{name: "unparsable", raw: "http://[::1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildURL(tt.raw, tt.params)
			if (err != nil) != tt.wantErr {
				t.Fatalf("buildURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("buildURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDoRejectsBadURL(t *testing.T) {
	c := New(fastConfig(0))

	if _, err := c.Do(context.Background(), Request{}); !errors.Is(err, ErrEmptyURL) {
		t.Errorf("empty URL: got %v, want ErrEmptyURL", err)
	}
	if _, err := c.Do(context.Background(), Request{URL: "employees"}); !errors.Is(err, ErrInvalidURL) {
		t.Errorf("relative URL: got %v, want ErrInvalidURL", err)
	}
}

func TestDoRetries(t *testing.T) {
	tests := []struct {
		name       string
		failures   int32
		status     int
		retries    int
		wantHits   int32
		wantStatus int
	}{
		{name: "no retry returns the failure", failures: 1, status: http.StatusInternalServerError, retries: 0, wantHits: 1, wantStatus: http.StatusInternalServerError},
		{name: "recovers within budget", failures: 2, status: http.StatusServiceUnavailable, retries: 2, wantHits: 3, wantStatus: http.StatusOK},
		{name: "budget exhausted returns last response", failures: 5, status: http.StatusBadGateway, retries: 2, wantHits: 3, wantStatus: http.StatusBadGateway},
		{name: "client errors are final", failures: 1, status: http.StatusNotFound, retries: 3, wantHits: 1, wantStatus: http.StatusNotFound},
		{name: "throttling is retried", failures: 1, status: http.StatusTooManyRequests, retries: 1, wantHits: 2, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, hits := flakyEmployees(tt.failures, tt.status)
			defer srv.Close()

			resp, err := New(fastConfig(tt.retries)).DoGET(context.Background(), srv.URL+"/employees", nil, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.Status, tt.wantStatus)
			}
			if got := hits.Load(); got != tt.wantHits {
				t.Errorf("hits = %d, want %d", got, tt.wantHits)
			}
		})
	}
}

func TestDoCustomRetryPolicy(t *testing.T) {
	srv, hits := flakyEmployees(1, http.StatusConflict)
	defer srv.Close()

	cfg := fastConfig(1)
	cfg.RetryOn = func(status int, err error) bool { return status == http.StatusConflict }

	resp, err := New(cfg).DoGET(context.Background(), srv.URL, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != http.StatusOK || hits.Load() != 2 {
		t.Errorf("status %d after %d hits, want 200 after 2", resp.Status, hits.Load())
	}
}

func TestDoTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(fastConfig(0)).DoGET(context.Background(), url+"/employees", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "httpx: request failed") {
		t.Fatalf("expected request failure, got %v", err)
	}
}

func TestDoResendsBodyOnRetry(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if len(bodies) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(b)
	}))
	defer srv.Close()

	req, err := NewJSONRequest(http.MethodPost, srv.URL+"/employees", map[string]string{"id": "7", "name": "Alice"})
	if err != nil {
		t.Fatal(err)
	}
	resp, err := New(fastConfig(1)).Do(context.Background(), req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	want := `{"id":"7","name":"Alice"}`
	if len(bodies) != 2 || bodies[0] != want || bodies[1] != want {
		t.Errorf("bodies = %q, want the payload twice", bodies)
	}
	if resp.Status != http.StatusCreated || string(resp.Body) != want {
		t.Errorf("response = %d %q", resp.Status, resp.Body)
	}
}

func TestDoHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	cfg := fastConfig(0)
	cfg.BaseHeaders = map[string]string{"X-Tenant": "hr", "Accept": "text/plain"}
	c := New(cfg)

	if _, err := c.DoGET(context.Background(), srv.URL, nil, nil); err != nil {
		t.Fatal(err)
	}
	if got.Get("User-Agent") != DefaultUserAgent {
		t.Errorf("User-Agent = %q", got.Get("User-Agent"))
	}
	if got.Get("Accept") != "application/json" {
		t.Errorf("Accept = %q, want the JSON default over base headers", got.Get("Accept"))
	}
	if got.Get("X-Tenant") != "hr" {
		t.Errorf("X-Tenant = %q", got.Get("X-Tenant"))
	}

	if _, err := c.DoGET(context.Background(), srv.URL, nil, map[string]string{"user-agent": "staffctl-test", "X-Tenant": "ops"}); err != nil {
		t.Fatal(err)
	}
	if got.Get("User-Agent") != "staffctl-test" || got.Get("X-Tenant") != "ops" {
		t.Errorf("caller headers should win, got UA %q tenant %q", got.Get("User-Agent"), got.Get("X-Tenant"))
	}
}

func TestDoContextCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := New(fastConfig(3)).DoGET(ctx, srv.URL, nil, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
}

func TestSleepBackoff(t *testing.T) {
	c := New(fastConfig(0)).(*realClient)
	if d := c.backoff(10); d != c.cfg.BackoffMax {
		t.Errorf("backoff(10) = %v, want cap %v", d, c.cfg.BackoffMax)
	}
	if err := c.sleepBackoff(context.Background(), 0); err != nil {
		t.Errorf("sleepBackoff() = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow := New(Config{BackoffInitial: time.Hour, BackoffMax: time.Hour}).(*realClient)
	if err := slow.sleepBackoff(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("sleepBackoff() on cancelled ctx = %v", err)
	}
}

func TestNewJSONRequest(t *testing.T) {
	req, err := NewJSONRequest(http.MethodPut, "http://localhost:3000/employees/7", struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}{ID: "7", Name: "Alice"})
	if err != nil {
		t.Fatalf("NewJSONRequest() error = %v", err)
	}
	if req.Method != http.MethodPut || req.Headers["Content-Type"] != "application/json" {
		t.Errorf("unexpected request %+v", req)
	}
	if string(req.Body) != `{"id":"7","name":"Alice"}` {
		t.Errorf("body = %q", req.Body)
	}

	if _, err := NewJSONRequest(http.MethodPost, "http://localhost", func() {}); !errors.Is(err, ErrEncodeBody) {
		t.Errorf("err = %v, want ErrEncodeBody", err)
	}
}

func TestResponseHelpers(t *testing.T) {
	tests := []struct {
		name        string
		resp        Response
		wantSuccess bool
		wantName    string
		wantErr     bool
	}{
		{name: "ok", resp: Response{Status: 200, Body: []byte(`{"name":"Alice"}`)}, wantSuccess: true, wantName: "Alice"},
		{name: "no content", resp: Response{Status: 204}, wantSuccess: true},
		{name: "whitespace body", resp: Response{Status: 200, Body: []byte(" \n")}, wantSuccess: true},
		{name: "not found", resp: Response{Status: 404, Body: []byte(`{}`)}},
		{name: "html error page", resp: Response{Status: 502, Body: []byte("<html>")}, wantErr: true},
		{name: "redirect", resp: Response{Status: 302}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp.IsSuccess(); got != tt.wantSuccess {
				t.Errorf("IsSuccess() = %v, want %v", got, tt.wantSuccess)
			}
			var out struct {
				Name string `json:"name"`
			}
			err := tt.resp.DecodeJSON(&out)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if out.Name != tt.wantName {
				t.Errorf("name = %q, want %q", out.Name, tt.wantName)
			}
		})
	}
}

func TestDoPropagatesTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	traceID, _ := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	spanID, _ := trace.SpanIDFromHex("b7ad6b7169203331")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Traceparent")
	}))
	defer srv.Close()

	if _, err := New(fastConfig(0)).DoGET(ctx, srv.URL+"/employees/7", nil, nil); err != nil {
		t.Fatal(err)
	}
	if want := "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01"; got != want {
		t.Errorf("traceparent = %q, want %q", got, want)
	}
}
