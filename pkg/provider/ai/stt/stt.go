// Package stt implements the adapter that transcribes a finalized WAV clip
// into text via a multipart/form-data upload, grounded on the teacher's
// whisper.cpp inference client shape.
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/dnscache"

	"github.com/tafahom/tafahom-stream/internal/observe"
	"github.com/tafahom/tafahom-stream/internal/resilience"
	"github.com/tafahom/tafahom-stream/pkg/provider/ai"
)

const speechToTextEndpoint = "/v1/speech-to-text"

type speechToTextResponse struct {
	Text string `json:"text"`
}

// Client calls a speech-to-text service over HTTP using a multipart upload.
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
			c.ins = ai.NewInstrumentation(m, "stt", m.STTDuration)
		}
	}
}

// New creates a Client targeting baseURL. timeout bounds every HTTP call;
// resolver, when non-nil, caches DNS lookups for the service host.
func New(baseURL string, timeout time.Duration, resolver *dnscache.Resolver, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    ai.NewHTTPClient(timeout, resolver),
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "stt"}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SpeechToText uploads wav as a "file" form field, along with the optional
// language and task hints, and returns the transcribed text.
func (c *Client) SpeechToText(ctx context.Context, wav io.Reader, language, task string) (string, error) {
	start := time.Now()
	var text string
	err := c.breaker.Execute(func() error {
		t, err := c.doSpeechToText(ctx, wav, language, task)
		if err != nil {
			return err
		}
		text = t
		return nil
	})
	c.ins.Record(ctx, start, err)
	return text, err
}

func (c *Client) doSpeechToText(ctx context.Context, wav io.Reader, language, task string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("stt: create form file: %w", err)
	}
	if _, err := io.Copy(fw, wav); err != nil {
		return "", fmt.Errorf("stt: write wav data: %w", err)
	}
	if language != "" {
		if err := mw.WriteField("language", language); err != nil {
			return "", fmt.Errorf("stt: write language field: %w", err)
		}
	}
	if task != "" {
		if err := mw.WriteField("task", task); err != nil {
			return "", fmt.Errorf("stt: write task field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("stt: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+speechToTextEndpoint, &body)
	if err != nil {
		return "", fmt.Errorf("stt: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("stt: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", ai.ParseAPIError(resp)
	}

	var out speechToTextResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ai.ErrInvalidJSON, err)
	}
	return out.Text, nil
}
