// Package glosstotext implements the adapter that turns a resolved gloss
// token sequence into natural-language text.
package glosstotext

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/dnscache"

	"github.com/tafahom/tafahom-stream/internal/observe"
	"github.com/tafahom/tafahom-stream/internal/resilience"
	"github.com/tafahom/tafahom-stream/pkg/provider/ai"
)

const glossToTextEndpoint = "/v1/gloss-to-text"

type glossToTextRequest struct {
	Gloss []string `json:"gloss"`
}

type glossToTextResponse struct {
	Text string `json:"text"`
}

// Client calls a gloss-to-text NLP service over HTTP.
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
			c.ins = ai.NewInstrumentation(m, "gloss_to_text", m.GlossToTextDuration)
		}
	}
}

// New creates a Client targeting baseURL. timeout bounds every HTTP call;
// resolver, when non-nil, caches DNS lookups for the service host.
func New(baseURL string, timeout time.Duration, resolver *dnscache.Resolver, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    ai.NewHTTPClient(timeout, resolver),
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "gloss_to_text"}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GlossToText resolves an ordered gloss token sequence into text.
func (c *Client) GlossToText(ctx context.Context, gloss []string) (string, error) {
	start := time.Now()
	var text string
	err := c.breaker.Execute(func() error {
		t, err := c.doGlossToText(ctx, gloss)
		if err != nil {
			return err
		}
		text = t
		return nil
	})
	c.ins.Record(ctx, start, err)
	return text, err
}

func (c *Client) doGlossToText(ctx context.Context, gloss []string) (string, error) {
	body, err := json.Marshal(glossToTextRequest{Gloss: gloss})
	if err != nil {
		return "", fmt.Errorf("glosstotext: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+glossToTextEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("glosstotext: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("glosstotext: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", ai.ParseAPIError(resp)
	}

	var out glossToTextResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ai.ErrInvalidJSON, err)
	}
	return strings.TrimSpace(out.Text), nil
}
