// Package ai holds types shared by the five AI service adapters in its
// subpackages (cv, texttogloss, glosstotext, stt, tts): a structured HTTP
// error and a DNS-caching transport builder.
package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/dnscache"
)

// ErrInvalidJSON is returned when a 2xx response body cannot be decoded as
// the expected JSON shape.
var ErrInvalidJSON = errors.New("ai: invalid json response")

// APIError represents a non-2xx HTTP response from an AI service. Status 5xx
// is always a hard failure; status 4xx carries the parsed body so callers may
// decide whether to treat it as a user-facing error or a hard failure.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ai: unexpected status %d: %s", e.Status, e.Body)
}

// ParseAPIError reads and truncates the response body and builds an
// [APIError]. The caller remains responsible for closing resp.Body.
func ParseAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{Status: resp.StatusCode, Body: string(body)}
}

// NewHTTPClient builds an *http.Client tuned for many short-lived requests to
// a fixed set of AI service hosts, with DNS answers cached by resolver so
// repeated calls don't pay a lookup on every request.
func NewHTTPClient(timeout time.Duration, resolver *dnscache.Resolver) *http.Client {
	t := &http.Transport{
		MaxIdleConnsPerHost: 50,
		MaxConnsPerHost:     100,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	if resolver != nil {
		t.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			ips, err := resolver.LookupHost(ctx, host)
			if err != nil {
				return nil, err
			}
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(ips[0], port))
		}
	}
	return &http.Client{Transport: t, Timeout: timeout}
}
