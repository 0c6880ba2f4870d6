// Package mock provides test doubles for the AI adapter interfaces consumed
// by internal/pipeline.Orchestrator, mirroring the teacher's per-provider
// mock convention (e.g. pkg/provider/stt/mock).
package mock

import (
	"context"
	"io"
	"sync"

	"github.com/tafahom/tafahom-stream/pkg/provider/ai/cv"
	"github.com/tafahom/tafahom-stream/pkg/provider/ai/texttogloss"
)

// CVClient is a mock implementation of pipeline.CVClient.
type CVClient struct {
	mu     sync.Mutex
	Result cv.Result
	Err    error
	Calls  [][]string
}

func (m *CVClient) SignToGloss(_ context.Context, frames []string) (cv.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]string, len(frames))
	copy(cp, frames)
	m.Calls = append(m.Calls, cp)
	return m.Result, m.Err
}

// TextToGlossClient is a mock implementation of pipeline.TextToGlossClient.
type TextToGlossClient struct {
	mu     sync.Mutex
	Result texttogloss.Result
	Err    error
	Calls  []string
}

func (m *TextToGlossClient) TextToGloss(_ context.Context, text string) (texttogloss.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, text)
	return m.Result, m.Err
}

// GlossToTextClient is a mock implementation of pipeline.GlossToTextClient.
type GlossToTextClient struct {
	mu     sync.Mutex
	Text   string
	Err    error
	Calls  [][]string
}

func (m *GlossToTextClient) GlossToText(_ context.Context, gloss []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]string, len(gloss))
	copy(cp, gloss)
	m.Calls = append(m.Calls, cp)
	return m.Text, m.Err
}

// STTClient is a mock implementation of pipeline.STTClient.
type STTClient struct {
	mu        sync.Mutex
	Text      string
	Err       error
	CallCount int
}

func (m *STTClient) SpeechToText(_ context.Context, wav io.Reader, _, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, _ = io.Copy(io.Discard, wav)
	m.CallCount++
	return m.Text, m.Err
}

// TTSClient is a mock implementation of pipeline.TTSClient.
type TTSClient struct {
	mu    sync.Mutex
	Audio []byte
	Err   error
	Calls []string
}

func (m *TTSClient) TextToSpeech(_ context.Context, text, _ string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, text)
	return m.Audio, m.Err
}

// GlossResolver is a mock implementation of pipeline.GlossResolver. Drop, when
// set, lists tokens that resolve with ok=false. Known, when set, lists the
// only tokens considered mapped to a clip; any token not in Known resolves
// with ok=false, mirroring glossmap.Map.Resolve's guarantee that every
// accepted token is a key of its clip table. A nil Known passes through any
// token not listed in Drop.
type GlossResolver struct {
	Drop  map[string]bool
	Known map[string]bool
}

func (m *GlossResolver) Resolve(token string) (string, bool) {
	if m.Drop != nil && m.Drop[token] {
		return "", false
	}
	if m.Known != nil && !m.Known[token] {
		return "", false
	}
	return token, true
}
