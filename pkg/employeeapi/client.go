// Package employeeapi is the REST client for the /employees resource.
package employeeapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/quiby-ai/staffdesk/pkg/employee"
	"github.com/quiby-ai/staffdesk/pkg/httpx"
	"github.com/quiby-ai/staffdesk/pkg/obs"
)

const (
	DefaultBaseURL = "http://localhost:3000"
	resourcePath   = "/employees"
	tracerName     = "github.com/quiby-ai/staffdesk/employeeapi"

	OpList   = "list"
	OpGet    = "get"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

type Config struct {
	BaseURL string       `mapstructure:"base_url"`
	HTTP    httpx.Config `mapstructure:"-"`
}

// DefaultConfig targets a local json-server style backend with retries off.
// A failed call is reported once; the user repeats the action to retry.
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		HTTP: httpx.Config{
			Timeout:    10 * time.Second,
			MaxRetries: 0,
		},
	}
}

type Option func(*Client)

// WithHTTPClient replaces the transport.
func WithHTTPClient(hc httpx.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithIDFunc sets the generator for ids of new records. A generator that
// returns "" leaves the id for the backend to assign.
func WithIDFunc(fn func() string) Option {
	return func(c *Client) { c.newID = fn }
}

type Client struct {
	base     string
	http     httpx.Client
	newID    func() string
	tracer   trace.Tracer
	calls    metric.Int64Counter
	duration metric.Float64Histogram
}

func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", httpx.ErrInvalidURL, cfg.BaseURL)
	}

	c := &Client{
		base:   strings.TrimRight(cfg.BaseURL, "/") + resourcePath,
		newID:  uuid.NewString,
		tracer: obs.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpx.New(cfg.HTTP)
	}
	if c.newID == nil {
		c.newID = func() string { return "" }
	}

	if c.calls, err = obs.Counter("staffdesk_api_calls_total", "Calls to the employees resource by operation and outcome"); err != nil {
		return nil, err
	}
	if c.duration, err = obs.Histogram("staffdesk_api_call_duration_ms", "Latency of calls to the employees resource"); err != nil {
		return nil, err
	}
	return c, nil
}

// List fetches every record.
func (c *Client) List(ctx context.Context) ([]employee.Employee, error) {
	var out []employee.Employee
	err := c.call(ctx, OpList, "", func(ctx context.Context) error {
		resp, err := c.http.DoGET(ctx, c.base, nil, nil)
		if err != nil {
			return transportError(OpList, err)
		}
		if !resp.IsSuccess() {
			return backendError(OpList, resp.Status, resp.Body)
		}
		if err := resp.DecodeJSON(&out); err != nil {
			return transportError(OpList, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []employee.Employee{}
	}
	return out, nil
}

// Get fetches one record. An empty id yields a blank record without a call.
func (c *Client) Get(ctx context.Context, id string) (employee.Employee, error) {
	if id == "" {
		return employee.Empty(), nil
	}
	var out employee.Employee
	err := c.call(ctx, OpGet, id, func(ctx context.Context) error {
		resp, err := c.http.DoGET(ctx, c.recordURL(id), nil, nil)
		if err != nil {
			return transportError(OpGet, err)
		}
		if !resp.IsSuccess() {
			return backendError(OpGet, resp.Status, resp.Body)
		}
		if err := resp.DecodeJSON(&out); err != nil {
			return transportError(OpGet, err)
		}
		return nil
	})
	return out, err
}

// Create posts a new record. A record still carrying the unsaved sentinel
// (or no id) gets a fresh id first and is validated before it is sent. The backend's copy is returned when it
// sends one.
func (c *Client) Create(ctx context.Context, e employee.Employee) (employee.Employee, error) {
	if e.ID == "" || e.IsNew() {
		e.ID = c.newID()
	}
	out := e
	err := c.call(ctx, OpCreate, e.ID, func(ctx context.Context) error {
		if err := e.Validate(); err != nil {
			return invalidError(OpCreate, err)
		}
		resp, err := c.send(ctx, http.MethodPost, c.base, e)
		if err != nil {
			return transportError(OpCreate, err)
		}
		if !resp.IsSuccess() {
			return backendError(OpCreate, resp.Status, resp.Body)
		}
		if err := resp.DecodeJSON(&out); err != nil {
			return transportError(OpCreate, err)
		}
		return nil
	})
	if err != nil {
		return employee.Employee{}, err
	}
	return out, nil
}

// Update validates and puts the record. It returns the submitted record,
// not the backend's copy.
func (c *Client) Update(ctx context.Context, e employee.Employee) (employee.Employee, error) {
	err := c.call(ctx, OpUpdate, e.ID, func(ctx context.Context) error {
		if err := e.Validate(); err != nil {
			return invalidError(OpUpdate, err)
		}
		resp, err := c.send(ctx, http.MethodPut, c.recordURL(e.ID), e)
		if err != nil {
			return transportError(OpUpdate, err)
		}
		if !resp.IsSuccess() {
			return backendError(OpUpdate, resp.Status, resp.Body)
		}
		return nil
	})
	if err != nil {
		return employee.Employee{}, err
	}
	return e, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.call(ctx, OpDelete, id, func(ctx context.Context) error {
		resp, err := c.http.Do(ctx, httpx.Request{
			Method:  http.MethodDelete,
			URL:     c.recordURL(id),
			Headers: map[string]string{"Content-Type": "application/json"},
		})
		if err != nil {
			return transportError(OpDelete, err)
		}
		if !resp.IsSuccess() {
			return backendError(OpDelete, resp.Status, resp.Body)
		}
		return nil
	})
}

func (c *Client) send(ctx context.Context, method, rawURL string, e employee.Employee) (httpx.Response, error) {
	req, err := httpx.NewJSONRequest(method, rawURL, e)
	if err != nil {
		return httpx.Response{}, err
	}
	return c.http.Do(ctx, req)
}

func (c *Client) recordURL(id string) string {
	return c.base + "/" + url.PathEscape(id)
}

// call runs fn inside a span and records its outcome.
func (c *Client) call(ctx context.Context, op, id string, fn func(context.Context) error) error {
	ctx, span := c.tracer.Start(ctx, "employees."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("employee.operation", op),
			attribute.String("employee.id", id),
		),
	)
	ctx = obs.WithOperation(obs.WithRecord(ctx, id), op)
	elapsed := obs.StartTimer()

	err := fn(ctx)

	latency := elapsed()
	outcome := obs.StatusOK
	if err != nil {
		outcome = obs.StatusError
		kind := obs.ErrKindNetwork
		var apiErr *Error
		if errors.As(err, &apiErr) {
			switch {
			case apiErr.Kind == KindInvalid:
				kind = obs.ErrKindValidation
			case apiErr.Kind == KindBackend && apiErr.Status == http.StatusNotFound:
				kind = obs.ErrKindNotFound
			case apiErr.Kind == KindBackend:
				kind = obs.ErrKindHTTP
			}
		}
		obs.Error(ctx, "employees call failed", err, "error_kind", kind)
	} else {
		obs.EventWithLatency(ctx, "employees."+op, outcome, latency)
	}

	attrs := metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	)
	c.calls.Add(ctx, 1, attrs)
	c.duration.Record(ctx, float64(latency.Microseconds())/1000, attrs)
	obs.EndSpan(span, err)
	return err
}
