package cv_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tafahom/tafahom-stream/pkg/provider/ai"
	"github.com/tafahom/tafahom-stream/pkg/provider/ai/cv"
)

func TestSignToGloss_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/sign-to-gloss", r.URL.Path)
		var body struct {
			Frames []string `json:"frames"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"ZnJhbWUx"}, body.Frames)
		_ = json.NewEncoder(w).Encode(map[string]any{"gloss": []string{"HELLO"}})
	}))
	defer srv.Close()

	c := cv.New(srv.URL, time.Second, nil)
	result, err := c.SignToGloss(context.Background(), []string{"ZnJhbWUx"})
	require.NoError(t, err)
	assert.Equal(t, []string{"HELLO"}, result.ToGloss())
}

func TestSignToGloss_TextFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"text": "hello world"})
	}))
	defer srv.Close()

	c := cv.New(srv.URL, time.Second, nil)
	result, err := c.SignToGloss(context.Background(), []string{"frame"})
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "world"}, result.ToGloss())
}

func TestSignToGloss_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := cv.New(srv.URL, time.Second, nil)
	_, err := c.SignToGloss(context.Background(), []string{"frame"})
	require.Error(t, err)
	var apiErr *ai.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
}

func TestSignToGloss_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := cv.New(srv.URL, time.Second, nil)
	_, err := c.SignToGloss(context.Background(), []string{"frame"})
	require.ErrorIs(t, err, ai.ErrInvalidJSON)
}

func TestResult_ToGloss_Empty(t *testing.T) {
	var r cv.Result
	assert.Nil(t, r.ToGloss())
}
