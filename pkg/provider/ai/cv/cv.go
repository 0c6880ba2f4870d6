// Package cv implements the computer-vision adapter that turns a batch of
// sign-language video frames into gloss tokens (or, for some backends,
// directly into text).
package cv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/dnscache"

	"github.com/tafahom/tafahom-stream/internal/observe"
	"github.com/tafahom/tafahom-stream/internal/resilience"
	"github.com/tafahom/tafahom-stream/pkg/provider/ai"
)

const signToGlossEndpoint = "/v1/sign-to-gloss"

// Result is the tagged union returned by SignToGloss: a backend may answer
// with gloss tokens, raw text, or (rarely) both.
type Result struct {
	Gloss []string
	Text  string
}

// ToGloss normalizes a Result into a gloss token slice. When the backend
// returned only Text, the whitespace-split words are used as a best-effort
// token list.
func (r Result) ToGloss() []string {
	if len(r.Gloss) > 0 {
		return r.Gloss
	}
	if r.Text == "" {
		return nil
	}
	return splitWords(r.Text)
}

func splitWords(s string) []string {
	var out []string
	start := -1
	for i, r := range s {
		if r == ' ' || r == '\t' || r == '\n' {
			if start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}

// signToGlossRequest is the JSON body sent to the CV service.
type signToGlossRequest struct {
	// Frames is a batch of base64-encoded video frames in dispatch order.
	Frames []string `json:"frames"`
}

// signToGlossResponse is the JSON body returned by the CV service.
type signToGlossResponse struct {
	Gloss []string `json:"gloss,omitempty"`
	Text  string   `json:"text,omitempty"`
}

// Client calls a sign-to-gloss CV service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *resilience.CircuitBreaker
	ins     ai.Instrumentation
}

// Option configures a Client.
type Option func(*Client)

// WithMetrics attaches the application's metrics recorder, so every call is
// timed on [observe.Metrics.CVDuration] and counted in the shared provider
// request/error counters. A nil Metrics (the default) disables recording.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Client) {
		if m != nil {
			c.ins = ai.NewInstrumentation(m, "cv", m.CVDuration)
		}
	}
}

// New creates a Client targeting baseURL (e.g. "http://cv.internal:9000").
// timeout bounds every HTTP call; resolver, when non-nil, caches DNS lookups
// for the service host.
func New(baseURL string, timeout time.Duration, resolver *dnscache.Resolver, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    ai.NewHTTPClient(timeout, resolver),
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "cv"}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SignToGloss sends a batch of base64-encoded frames to the CV service and
// returns the recognized gloss tokens (or raw text, backend-dependent).
func (c *Client) SignToGloss(ctx context.Context, frames []string) (Result, error) {
	start := time.Now()
	var result Result
	err := c.breaker.Execute(func() error {
		r, err := c.doSignToGloss(ctx, frames)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	c.ins.Record(ctx, start, err)
	return result, err
}

func (c *Client) doSignToGloss(ctx context.Context, frames []string) (Result, error) {
	body, err := json.Marshal(signToGlossRequest{Frames: frames})
	if err != nil {
		return Result{}, fmt.Errorf("cv: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+signToGlossEndpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("cv: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("cv: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, ai.ParseAPIError(resp)
	}

	var out signToGlossResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ai.ErrInvalidJSON, err)
	}
	return Result{Gloss: out.Gloss, Text: out.Text}, nil
}
