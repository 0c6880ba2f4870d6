package tts_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tafahom/tafahom-stream/pkg/provider/ai/tts"
)

func TestTextToSpeech_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text-to-speech", r.URL.Path)
		var body struct {
			Text  string `json:"text"`
			Voice string `json:"voice,omitempty"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body.Text)
		assert.Equal(t, "ar-default", body.Voice)

		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte{0x52, 0x49, 0x46, 0x46})
	}))
	defer srv.Close()

	c := tts.New(srv.URL, time.Second, nil)
	audio, err := c.TextToSpeech(context.Background(), "hello", "ar-default")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x52, 0x49, 0x46, 0x46}, audio)
}

func TestTextToSpeech_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := tts.New(srv.URL, time.Second, nil)
	_, err := c.TextToSpeech(context.Background(), "hello", "")
	require.Error(t, err)
}
