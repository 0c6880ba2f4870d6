// Package texttogloss implements the adapter that converts Arabic text into
// gloss tokens for the sign video assembler.
package texttogloss

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

const textToGlossEndpoint = "/v1/text-to-gloss"

// Result mirrors cv.Result's tagged-union shape: a backend may return gloss
// tokens, raw text, or both.
type Result struct {
	Gloss []string
	Text  string
}

// ToGloss normalizes Result into a gloss token slice, falling back to
// whitespace-splitting Text when Gloss is empty.
func (r Result) ToGloss() []string {
	if len(r.Gloss) > 0 {
		return r.Gloss
	}
	if r.Text == "" {
		return nil
	}
	var out []string
	start := -1
	for i, c := range r.Text {
		if c == ' ' || c == '\t' || c == '\n' {
			if start >= 0 {
				out = append(out, r.Text[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, r.Text[start:])
	}
	return out
}

type textToGlossRequest struct {
	Text string `json:"text"`
}

type textToGlossResponse struct {
	Gloss []string `json:"gloss,omitempty"`
	Text  string   `json:"text,omitempty"`
}

// Client calls a text-to-gloss service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *resilience.CircuitBreaker
	ins     ai.Instrumentation
}

// Option configures a Client.
type Option func(*Client)

// WithMetrics attaches the application's metrics recorder. A nil Metrics (the
// default) disables recording.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Client) {
		if m != nil {
			c.ins = ai.NewInstrumentation(m, "text_to_gloss", m.TextToGlossDuration)
		}
	}
}

// New creates a Client targeting baseURL. timeout bounds every HTTP call;
// resolver, when non-nil, caches DNS lookups for the service host.
func New(baseURL string, timeout time.Duration, resolver *dnscache.Resolver, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    ai.NewHTTPClient(timeout, resolver),
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "text_to_gloss"}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// TextToGloss resolves text into gloss tokens.
func (c *Client) TextToGloss(ctx context.Context, text string) (Result, error) {
	start := time.Now()
	var result Result
	err := c.breaker.Execute(func() error {
		r, err := c.doTextToGloss(ctx, text)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	c.ins.Record(ctx, start, err)
	return result, err
}

func (c *Client) doTextToGloss(ctx context.Context, text string) (Result, error) {
	body, err := json.Marshal(textToGlossRequest{Text: text})
	if err != nil {
		return Result{}, fmt.Errorf("texttogloss: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+textToGlossEndpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("texttogloss: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("texttogloss: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, ai.ParseAPIError(resp)
	}

	var out textToGlossResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ai.ErrInvalidJSON, err)
	}
	return Result{Gloss: out.Gloss, Text: out.Text}, nil
}
