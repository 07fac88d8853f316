package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

var (
	ErrEmptyURL         = errors.New("httpx: empty URL")
	ErrInvalidURL       = errors.New("httpx: invalid URL")
	ErrMaxRetries       = errors.New("httpx: max retries reached")
	ErrNonRetryableResp = errors.New("httpx: non-retryable response")
	ErrEncodeBody       = errors.New("httpx: encode body")
)

const DefaultUserAgent = "staffdesk/1.0"

type Config struct {
	Timeout        time.Duration
	MaxRetries     int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	UserAgent      string
	BaseHeaders    map[string]string
	RetryStatus    []int
	RetryOn        func(status int, err error) bool
}

// Request describes one call. Body is kept as bytes so that every retry
// sends the full payload.
type Request struct {
	Method  string
	URL     string
	Params  map[string]string
	Headers map[string]string
	Body    []byte
}

// NewJSONRequest encodes v as the JSON body of a request.
func NewJSONRequest(method, rawURL string, v any) (Request, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrEncodeBody, err)
	}
	return Request{
		Method: method,
		URL:    rawURL,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: body,
	}, nil
}

type Response struct {
	Status  int
	Body    []byte
	Headers http.Header
	URL     string
}

// IsSuccess reports a 2xx status.
func (r Response) IsSuccess() bool {
	return r.Status >= 200 && r.Status < 300
}

// DecodeJSON unmarshals the response body into v. An empty body leaves v
// untouched.
func (r Response) DecodeJSON(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

type Client interface {
	Do(ctx context.Context, req Request) (Response, error)
	DoGET(ctx context.Context, rawURL string, params, headers map[string]string) (Response, error)
}

type realClient struct {
	http *http.Client
	cfg  Config
}

func New(cfg Config) Client {
	normalizeConfig(&cfg)

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &realClient{
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: tr,
		},
		cfg: cfg,
	}
}

func NewWithHTTP(hc *http.Client, cfg Config) Client {
	normalizeConfig(&cfg)
	if hc == nil {
		return New(cfg)
	}
	return &realClient{http: hc, cfg: cfg}
}

func (c *realClient) DoGET(ctx context.Context, rawURL string, params, headers map[string]string) (Response, error) {
	return c.Do(ctx, Request{
		Method:  http.MethodGet,
		URL:     rawURL,
		Params:  params,
		Headers: headers,
	})
}

func (c *realClient) Do(ctx context.Context, r Request) (Response, error) {
	if r.URL == "" {
		return Response{}, ErrEmptyURL
	}
	if r.Method == "" {
		r.Method = http.MethodGet
	}

	u, err := buildURL(r.URL, r.Params)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		var body io.Reader
		if r.Body != nil {
			body = bytes.NewReader(r.Body)
		}
		req, err := http.NewRequestWithContext(ctx, r.Method, u, body)
		if err != nil {
			return Response{}, fmt.Errorf("httpx: build request: %w", err)
		}

		c.setRequestHeaders(ctx, req, r.Headers)

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return Response{}, ctx.Err()
			}
			if c.shouldRetry(0, err) && attempt < c.cfg.MaxRetries {
				lastErr = err
				if err := c.sleepBackoff(ctx, attempt); err != nil {
					return Response{}, err
				}
				continue
			}
			return Response{}, fmt.Errorf("httpx: request failed: %w", err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		res := Response{
			Status:  resp.StatusCode,
			Body:    respBody,
			Headers: resp.Header.Clone(),
			URL:     u,
		}

		if readErr != nil {
			if c.shouldRetry(resp.StatusCode, readErr) && attempt < c.cfg.MaxRetries {
				lastErr = readErr
				if err := c.sleepBackoff(ctx, attempt); err != nil {
					return Response{}, err
				}
				continue
			}
			return res, fmt.Errorf("httpx: read body: %w", readErr)
		}

		if c.shouldRetry(resp.StatusCode, nil) && attempt < c.cfg.MaxRetries {
			lastErr = fmt.Errorf("httpx: retryable status %d", resp.StatusCode)
			if err := c.sleepBackoff(ctx, attempt); err != nil {
				return Response{}, err
			}
			continue
		}

		// Out of retries, the last response goes back to the caller as is.
		return res, nil
	}

	return Response{}, fmt.Errorf("%w: %v", ErrMaxRetries, lastErr)
}

// setRequestHeaders applies base headers, defaults, caller headers and the
// trace context of ctx, in that order of precedence (last wins).
func (c *realClient) setRequestHeaders(ctx context.Context, req *http.Request, customHeaders map[string]string) {
	for k, v := range c.cfg.BaseHeaders {
		req.Header.Set(k, v)
	}

	if _, ok := headerLookup(customHeaders, "User-Agent"); !ok {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	if _, ok := headerLookup(customHeaders, "Accept"); !ok {
		req.Header.Set("Accept", "application/json")
	}

	for k, v := range customHeaders {
		req.Header.Set(k, v)
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
}

func (c *realClient) shouldRetry(status int, err error) bool {
	if c.cfg.RetryOn != nil {
		return c.cfg.RetryOn(status, err)
	}
	if err != nil {
		return true
	}
	for _, s := range c.cfg.RetryStatus {
		if status == s {
			return true
		}
	}
	return false
}

func (c *realClient) backoff(attempt int) time.Duration {
	backoff := float64(c.cfg.BackoffInitial) * math.Pow(2, float64(attempt))
	backoff += float64(time.Duration(rand.Intn(250)) * time.Millisecond)
	delay := time.Duration(backoff)
	if delay > c.cfg.BackoffMax {
		delay = c.cfg.BackoffMax
	}
	return delay
}

func (c *realClient) sleepBackoff(ctx context.Context, attempt int) error {
	t := time.NewTimer(c.backoff(attempt))
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func normalizeConfig(cfg *Config) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = time.Second
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if len(cfg.RetryStatus) == 0 && cfg.RetryOn == nil {
		cfg.RetryStatus = []int{http.StatusTooManyRequests}
		for code := 500; code <= 599; code++ {
			cfg.RetryStatus = append(cfg.RetryStatus, code)
		}
	}
}

func buildURL(raw string, params map[string]string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("missing scheme or host in %q", raw)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func headerLookup(h map[string]string, key string) (string, bool) {
	for k, v := range h {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}
