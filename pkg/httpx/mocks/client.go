// Package mocks provides testify mocks for httpx.
package mocks

import (
	"context"

	"github.com/quiby-ai/staffdesk/pkg/httpx"
	"github.com/stretchr/testify/mock"
)

// Client is a mock implementation of httpx.Client.
type Client struct {
	mock.Mock
}

var _ httpx.Client = (*Client)(nil)

func (m *Client) Do(ctx context.Context, req httpx.Request) (httpx.Response, error) {
	args := m.Called(ctx, req)

	var resp httpx.Response
	if fn, ok := args.Get(0).(func(context.Context, httpx.Request) httpx.Response); ok {
		resp = fn(ctx, req)
	} else {
		resp = args.Get(0).(httpx.Response)
	}

	var err error
	if fn, ok := args.Get(1).(func(context.Context, httpx.Request) error); ok {
		err = fn(ctx, req)
	} else {
		err = args.Error(1)
	}
	return resp, err
}

func (m *Client) DoGET(ctx context.Context, rawURL string, params, headers map[string]string) (httpx.Response, error) {
	args := m.Called(ctx, rawURL, params, headers)
	return args.Get(0).(httpx.Response), args.Error(1)
}

// NewClient creates a Client mock whose expectations are asserted when the
// test ends.
func NewClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *Client {
	m := &Client{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
