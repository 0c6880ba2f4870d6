// Package session implements the per-connection state machine, frame
// buffer, and batch dispatch loop at the heart of the streaming translation
// backend: one Session per accepted WebSocket connection, created only after
// the transport has authenticated the caller.
package session

import (
	"context"
	"encoding/base64"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tafahom/tafahom-stream/internal/config"
	"github.com/tafahom/tafahom-stream/internal/pipeline"
	"github.com/tafahom/tafahom-stream/internal/translation"
	"github.com/tafahom/tafahom-stream/internal/wallet"
)

// TranslationPipeline is the subset of pipeline.Orchestrator the batch loop
// depends on.
type TranslationPipeline interface {
	SignToText(ctx context.Context, frames []string) (pipeline.SignToTextResult, error)
}

// TTSClient is the subset of pkg/provider/ai/tts.Client used to synthesize
// final voice output at StopTranslation.
type TTSClient interface {
	TextToSpeech(ctx context.Context, text, voice string) ([]byte, error)
}

// Emitter sends server-to-client messages and closes the underlying
// transport. Implemented by internal/transport's WebSocket connection
// wrapper.
type Emitter interface {
	Emit(msg OutboundMessage)
	Close(code int, reason string)
}

// Session is the per-connection state machine. All exported methods are
// safe for concurrent use: the transport's read loop and the batch loop both
// call into a Session for the same connection.
type Session struct {
	ID     string
	UserID string

	mu            sync.Mutex
	state         State
	outputMode    OutputMode
	requestCount  int
	lastHeartbeat time.Time
	lastBatch     time.Time
	connStart     time.Time
	translationID int64
	partials      []string

	Buffer *FrameBuffer

	pipeline    TranslationPipeline
	tts         TTSClient
	wallet      wallet.Store
	translation translation.Store
	emitter     Emitter
	cfg         config.StreamConfig
	logger      *slog.Logger
}

// Config bundles a Session's dependencies.
type Config struct {
	UserID      string
	Pipeline    TranslationPipeline
	TTS         TTSClient
	Wallet      wallet.Store
	Translation translation.Store
	Emitter     Emitter
	Stream      config.StreamConfig
	Logger      *slog.Logger
}

// New constructs a Session in StateIdle. It is only ever called after the
// transport has authenticated the connecting principal.
func New(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := time.Now()
	id := uuid.NewString()
	return &Session{
		ID:            id,
		UserID:        cfg.UserID,
		state:         StateIdle,
		connStart:     now,
		lastHeartbeat: now,
		lastBatch:     now,
		Buffer:        NewFrameBuffer(cfg.Stream.MaxBufferSize),
		pipeline:      cfg.Pipeline,
		tts:           cfg.TTS,
		wallet:        cfg.Wallet,
		translation:   cfg.Translation,
		emitter:       cfg.Emitter,
		cfg:           cfg.Stream,
		logger:        logger.With("session_id", id),
	}
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Heartbeat records a liveness ping.
func (s *Session) Heartbeat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastHeartbeat = time.Now()
}

// OnFrame appends an inbound binary frame to the buffer. Frames received
// while not Running are discarded.
func (s *Session) OnFrame(data []byte) {
	s.mu.Lock()
	running := s.state == StateRunning
	s.mu.Unlock()
	if !running {
		return
	}
	s.Buffer.Push(data)
}

// StartTranslation transitions Idle → Running, consuming one credit and
// opening a new TranslationRecord.
func (s *Session) StartTranslation(ctx context.Context, outputType string) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state == StateRunning {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	if s.requestCount >= s.cfg.MaxRequestsPerSession {
		s.mu.Unlock()
		return ErrQuotaExceeded
	}
	s.mu.Unlock()

	ok, err := s.wallet.CanConsume(ctx, s.UserID, 1)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInsufficientCredits
	}
	if err := s.wallet.Consume(ctx, s.UserID, 1, "session_start"); err != nil {
		return err
	}

	rec := &translation.Record{
		UserID:         s.UserID,
		Direction:      translation.DirectionFromSign,
		OutputType:     outputType,
		SourceLanguage: "ase",
		Mode:           translation.ModeStreaming,
	}
	if err := s.translation.Create(ctx, rec); err != nil {
		s.logger.Warn("start translation: record create failed", "err", err)
	}

	s.mu.Lock()
	s.state = StateRunning
	s.outputMode = OutputMode(outputType)
	s.translationID = rec.ID
	s.partials = nil
	s.requestCount++
	s.lastBatch = time.Now()
	s.mu.Unlock()

	s.Buffer.Clear()
	s.emitter.Emit(statusProcessing(rec.ID))
	return nil
}

// StopTranslation transitions Running → Idle, finalizing the active
// translation: joining partials, marking the record completed, and
// synthesizing final audio if the output mode is voice.
func (s *Session) StopTranslation(ctx context.Context, reason string) error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return ErrNotRunning
	}
	translationID := s.translationID
	outputMode := s.outputMode
	text := strings.TrimSpace(strings.Join(s.partials, " "))
	s.state = StateIdle
	s.partials = nil
	s.mu.Unlock()

	s.Buffer.Clear()
	s.finalize(ctx, translationID, outputMode, text)
	s.emitter.Emit(statusStopped())
	return nil
}

// Close transitions any state to Closed. If a translation was Running it is
// finalized first. Safe to call more than once.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	wasRunning := s.state == StateRunning
	translationID := s.translationID
	outputMode := s.outputMode
	text := strings.TrimSpace(strings.Join(s.partials, " "))
	s.state = StateClosed
	s.mu.Unlock()

	if wasRunning {
		s.finalize(ctx, translationID, outputMode, text)
	}
}

func (s *Session) finalize(ctx context.Context, translationID int64, outputMode OutputMode, text string) {
	if err := s.translation.Complete(ctx, translationID, text, ""); err != nil {
		s.logger.Warn("finalize: translation record complete failed", "translation_id", translationID, "err", err)
	}
	if outputMode != OutputVoice || text == "" {
		return
	}

	audio, err := s.tts.TextToSpeech(ctx, text, "")
	if err != nil {
		s.logger.Warn("finalize: tts failed", "translation_id", translationID, "err", err)
		return
	}
	s.emitter.Emit(finalResult(text, encodeAudio(audio)))
}

func encodeAudio(audio []byte) string {
	return base64.StdEncoding.EncodeToString(audio)
}

// appendPartial records one batch's transcribed text.
func (s *Session) appendPartial(text string) {
	s.mu.Lock()
	s.partials = append(s.partials, text)
	s.mu.Unlock()
}
