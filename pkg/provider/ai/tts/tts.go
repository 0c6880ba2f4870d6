// Package tts implements the adapter that synthesizes speech audio from text.
// Unlike the other four AI adapters, the response body is raw audio bytes,
// not JSON.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/dnscache"

	"github.com/tafahom/tafahom-stream/internal/observe"
	"github.com/tafahom/tafahom-stream/internal/resilience"
	"github.com/tafahom/tafahom-stream/pkg/provider/ai"
)

const textToSpeechEndpoint = "/v1/text-to-speech"

type textToSpeechRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

// Client calls a text-to-speech service over HTTP.
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
			c.ins = ai.NewInstrumentation(m, "tts", m.TTSDuration)
		}
	}
}

// New creates a Client targeting baseURL. timeout bounds every HTTP call;
// resolver, when non-nil, caches DNS lookups for the service host.
func New(baseURL string, timeout time.Duration, resolver *dnscache.Resolver, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    ai.NewHTTPClient(timeout, resolver),
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "tts"}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// TextToSpeech synthesizes text into raw audio bytes. voice may be empty to
// use the service's default voice.
func (c *Client) TextToSpeech(ctx context.Context, text, voice string) ([]byte, error) {
	start := time.Now()
	var audio []byte
	err := c.breaker.Execute(func() error {
		a, err := c.doTextToSpeech(ctx, text, voice)
		if err != nil {
			return err
		}
		audio = a
		return nil
	})
	c.ins.Record(ctx, start, err)
	return audio, err
}

func (c *Client) doTextToSpeech(ctx context.Context, text, voice string) ([]byte, error) {
	body, err := json.Marshal(textToSpeechRequest{Text: text, Voice: voice})
	if err != nil {
		return nil, fmt.Errorf("tts: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+textToSpeechEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tts: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/*")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ai.ParseAPIError(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tts: read response body: %w", err)
	}
	return audio, nil
}
