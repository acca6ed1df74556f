// Package upstream holds the outbound clients of the gateway: the Soroswap
// aggregator API, the Defindex vault API and the public token list.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Cogwheel-Validator/soroswap-portal/models"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "upstream").Logger()
}

// SetLogger allows setting a custom logger
func SetLogger(l zerolog.Logger) {
	log = l
}

const maxBodySize = 16 << 20

// newHTTPClient returns a client whose requests are traced as client spans
// of the incoming request and carry its trace context upstream. Without a
// tracer provider installed the spans are no-ops.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// getJSON performs one GET and decodes the body into out. Any status outside
// 2xx becomes a *models.Error carrying the status and the upstream message.
func getJSON(ctx context.Context, client *http.Client, name, fullURL, apiKey string, out any) error {
	start := time.Now()
	err := doGetJSON(ctx, client, fullURL, apiKey, out)
	RequestLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())
	RequestsTotal.WithLabelValues(name, resultLabel(err)).Inc()
	return err
}

func doGetJSON(ctx context.Context, client *http.Client, fullURL, apiKey string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return models.WrapError(models.KindUpstream, "upstream request failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return models.WrapError(models.KindUpstream, "failed to read upstream response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return models.WrapError(models.KindParse, "failed to parse upstream response", err)
	}
	return nil
}

// statusError maps an upstream status to an error kind, keeping the
// upstream's own message when the body carries one
func statusError(status int, body []byte) *models.Error {
	kind := models.KindUpstream
	switch status {
	case http.StatusTooManyRequests:
		kind = models.KindRateLimited
	case http.StatusNotFound:
		kind = models.KindNotFound
	}
	return &models.Error{Kind: kind, Message: upstreamMessage(status, body), Status: status}
}

func upstreamMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		switch e := payload.Error.(type) {
		case string:
			if e != "" {
				return e
			}
		case map[string]any:
			if m, ok := e["message"].(string); ok && m != "" {
				return m
			}
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 256 {
		return text
	}
	return fmt.Sprintf("upstream returned %d %s", status, http.StatusText(status))
}

// retriable reports whether another endpoint may succeed where this one failed
func retriable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	status := models.StatusOf(err)
	if status == 0 {
		return models.IsKind(err, models.KindUpstream)
	}
	return status >= 500
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if k := models.KindOf(err); k != "" {
		return string(k)
	}
	return "error"
}
