package glosstotext_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tafahom/tafahom-stream/pkg/provider/ai/glosstotext"
)

func TestGlossToText_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/gloss-to-text", r.URL.Path)
		var body struct {
			Gloss []string `json:"gloss"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"HELLO", "WORLD"}, body.Gloss)
		_ = json.NewEncoder(w).Encode(map[string]any{"text": "  hello world  "})
	}))
	defer srv.Close()

	c := glosstotext.New(srv.URL, time.Second, nil)
	text, err := c.GlossToText(context.Background(), []string{"HELLO", "WORLD"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestGlossToText_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := glosstotext.New(srv.URL, time.Second, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.GlossToText(ctx, []string{"HELLO"})
	require.Error(t, err)
}
