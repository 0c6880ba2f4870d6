// Package mock provides test doubles for internal/session's dependency
// interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/tafahom/tafahom-stream/internal/pipeline"
	"github.com/tafahom/tafahom-stream/internal/session"
	"github.com/tafahom/tafahom-stream/internal/translation"
	"github.com/tafahom/tafahom-stream/internal/wallet"
)

// Pipeline is a mock implementation of session.TranslationPipeline.
type Pipeline struct {
	mu     sync.Mutex
	Result pipeline.SignToTextResult
	Err    error
	Calls  [][]string
}

func (m *Pipeline) SignToText(_ context.Context, frames []string) (pipeline.SignToTextResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]string, len(frames))
	copy(cp, frames)
	m.Calls = append(m.Calls, cp)
	return m.Result, m.Err
}

// TTS is a mock implementation of session.TTSClient.
type TTS struct {
	mu    sync.Mutex
	Audio []byte
	Err   error
	Calls []string
}

func (m *TTS) TextToSpeech(_ context.Context, text, _ string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, text)
	return m.Audio, m.Err
}

// Wallet is an in-memory mock implementation of wallet.Store.
type Wallet struct {
	mu        sync.Mutex
	Remain    int
	ConsumeErr error
	Consumed  int
}

func (m *Wallet) Remaining(context.Context, string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Remain, nil
}

func (m *Wallet) CanConsume(_ context.Context, _ string, n int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Remain >= n, nil
}

func (m *Wallet) Consume(_ context.Context, _ string, n int, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ConsumeErr != nil {
		return m.ConsumeErr
	}
	if m.Remain < n {
		return wallet.ErrInsufficientCredits
	}
	m.Remain -= n
	m.Consumed += n
	return nil
}

func (m *Wallet) Reward(_ context.Context, _ string, n int, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Remain += n
	return nil
}

func (m *Wallet) GetOrProvision(context.Context, string) (*wallet.Wallet, error) {
	return &wallet.Wallet{}, nil
}

// Translation is an in-memory mock implementation of translation.Store.
type Translation struct {
	mu         sync.Mutex
	nextID     int64
	Records    map[int64]*translation.Record
	CreateErr  error
	CompleteErr error
}

func (m *Translation) Create(_ context.Context, rec *translation.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.nextID++
	rec.ID = m.nextID
	rec.Status = translation.StatusProcessing
	if m.Records == nil {
		m.Records = make(map[int64]*translation.Record)
	}
	cp := *rec
	m.Records[rec.ID] = &cp
	return nil
}

func (m *Translation) Complete(_ context.Context, id int64, outputText, outputMediaURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CompleteErr != nil {
		return m.CompleteErr
	}
	if rec, ok := m.Records[id]; ok {
		rec.Status = translation.StatusCompleted
		rec.OutputText = outputText
		rec.OutputMediaURL = outputMediaURL
	}
	return nil
}

func (m *Translation) Fail(_ context.Context, id int64, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.Records[id]; ok {
		rec.Status = translation.StatusFailed
		rec.ErrorMessage = errMsg
	}
	return nil
}

func (m *Translation) Get(_ context.Context, id int64) (*translation.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Records[id], nil
}

// Emitter records every emitted message and close call.
type Emitter struct {
	mu       sync.Mutex
	Messages []session.OutboundMessage
	Closed   bool
	CloseCode int
	CloseReason string
}

func (m *Emitter) Emit(msg session.OutboundMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, msg)
}

func (m *Emitter) Close(code int, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	m.CloseCode = code
	m.CloseReason = reason
}

func (m *Emitter) Snapshot() []session.OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]session.OutboundMessage, len(m.Messages))
	copy(out, m.Messages)
	return out
}
