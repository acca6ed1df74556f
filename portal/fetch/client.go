// Package fetch issues single requests to the gateway's proxy endpoints and
// unwraps the {code, data} envelope. It never retries; retry policy belongs
// to the caller.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Cogwheel-Validator/soroswap-portal/models"
)

// maxBodySize caps how much of a response body is read
const maxBodySize = 8 << 20

// Request describes one call to a proxy endpoint. Identifying parameters
// travel as headers; Query is kept for endpoints that take a query string.
type Request struct {
	Path   string
	Header map[string]string
	Query  url.Values
}

// Client talks to a single gateway base URL
type Client struct {
	baseURL    string
	origin     string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithOrigin sets the Origin header sent with every request. The gateway
// rejects requests whose origin is not on its allow-list.
func WithOrigin(origin string) Option {
	return func(cl *Client) { cl.origin = origin }
}

// NewClient creates a client for the gateway at baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do issues exactly one GET for req and decodes the envelope's data into out.
// A status outside 2xx yields a *models.Error of kind fetch (rate_limited for
// 429) carrying the status and the envelope code and message when present.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	u := c.baseURL + "/" + strings.TrimPrefix(req.Path, "/")
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.WrapError(models.KindFetch, "failed to build request", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.origin != "" {
		httpReq.Header.Set("Origin", c.origin)
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return models.WrapError(models.KindFetch, fmt.Sprintf("request to %s failed", req.Path), err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return models.WrapError(models.KindFetch, "failed to read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env models.Envelope
		// a non-JSON error body still produces a FetchError, just without code
		_ = json.Unmarshal(body, &env)
		return models.NewFetchError(resp.StatusCode, env.Code, env.Message)
	}

	var env models.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return models.WrapError(models.KindParse, "failed to parse response envelope", err)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return models.WrapError(models.KindParse, fmt.Sprintf("failed to parse %s data", req.Path), err)
	}
	return nil
}

// Get is Do with a typed result
func Get[T any](ctx context.Context, c *Client, path string, header map[string]string) (T, error) {
	var out T
	err := c.Do(ctx, Request{Path: path, Header: header}, &out)
	return out, err
}
