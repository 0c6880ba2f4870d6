// Package transport implements the WebSocket connection lifecycle (C5):
// authentication, per-second message rate limiting, absolute connection
// lifetime, binary frame and JSON control-message dispatch, and close-code
// mapping for the streaming translation endpoint.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/tafahom/tafahom-stream/internal/auth"
	"github.com/tafahom/tafahom-stream/internal/config"
	"github.com/tafahom/tafahom-stream/internal/observe"
	"github.com/tafahom/tafahom-stream/internal/session"
	"github.com/tafahom/tafahom-stream/internal/translation"
	"github.com/tafahom/tafahom-stream/internal/wallet"
)

// StreamPath is the WebSocket route this server mounts (spec.md §6.1).
const StreamPath = "/ws/translation/stream/"

// Server accepts and drives WebSocket translation-streaming connections. One
// Server is shared by every connection; it holds no per-connection state
// itself.
type Server struct {
	verifier    *auth.Verifier
	pipeline    session.TranslationPipeline
	tts         session.TTSClient
	wallet      wallet.Store
	translation translation.Store
	stream      config.StreamConfig
	metrics     *observe.Metrics
	logger      *slog.Logger
}

// Config bundles a Server's dependencies.
type Config struct {
	Verifier    *auth.Verifier
	Pipeline    session.TranslationPipeline
	TTS         session.TTSClient
	Wallet      wallet.Store
	Translation translation.Store
	Stream      config.StreamConfig
	Metrics     *observe.Metrics
	Logger      *slog.Logger
}

// New constructs a Server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		verifier:    cfg.Verifier,
		pipeline:    cfg.Pipeline,
		tts:         cfg.TTS,
		wallet:      cfg.Wallet,
		translation: cfg.Translation,
		stream:      cfg.Stream,
		metrics:     cfg.Metrics,
		logger:      logger,
	}
}

// Register mounts the streaming endpoint on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+StreamPath, s.handleStream)
}

// handleStream authenticates the connecting principal and, on success,
// upgrades to a WebSocket and drives the connection until it closes.
//
// When the token arrives via the Authorization header, auth runs before the
// WebSocket handshake is accepted, so an unauthenticated caller never
// completes the upgrade. A query-only token requires accepting the socket
// first (the HTTP response line has already been committed by the time a
// query parameter is inspected in some proxies); in that case the transport
// accepts and then immediately closes with 4001, which is observably
// equivalent to a pre-accept rejection.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if auth.HasHeaderToken(r) {
		if _, err := s.verifier.VerifyRequest(r); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", "err", err)
		return
	}

	principal, err := s.verifier.VerifyRequest(r)
	if err != nil {
		conn.Close(websocket.StatusCode(session.CloseUnauthenticated), "unauthorized")
		return
	}

	s.serve(conn, principal.UserID)
}

// serve owns one accepted connection end to end: session construction, the
// read loop, the batch loop goroutine, and teardown.
func (s *Server) serve(conn *websocket.Conn, userID string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	emitter := newWSEmitter(conn, s.logger, s.metrics)

	sess := session.New(session.Config{
		UserID:      userID,
		Pipeline:    s.pipeline,
		TTS:         s.tts,
		Wallet:      s.wallet,
		Translation: s.translation,
		Emitter:     emitter,
		Stream:      s.stream,
		Logger:      s.logger,
	})

	if s.metrics != nil {
		s.metrics.ActiveSessions.Add(ctx, 1)
		defer s.metrics.ActiveSessions.Add(ctx, -1)
	}

	go sess.RunBatchLoop(ctx)
	defer sess.Close(context.Background())

	lim := newRateLimiter(s.stream.WSMaxMessagesPerSecond)
	connStart := time.Now()

	for {
		if emitter.closed() {
			return
		}
		if time.Since(connStart) > s.stream.WSMaxConnectionTime() {
			emitter.Close(session.CloseConnectionLifetime, "connection lifetime exceeded")
			return
		}

		msgType, data, err := conn.Read(ctx)
		if err != nil {
			if s.metrics != nil {
				s.metrics.RecordSessionClosed(context.Background(), "read_error")
			}
			return
		}

		if lim.exceeded(time.Now()) {
			emitter.Close(session.CloseMessageRateExceeded, "message rate exceeded")
			return
		}

		switch msgType {
		case websocket.MessageBinary:
			sess.OnFrame(data)
		case websocket.MessageText:
			s.dispatchControl(ctx, sess, emitter, data)
		}
	}
}

// controlMessage is the client-to-server JSON control message shape
// (spec.md §6.1): a liveness ping, or a start/stop action.
type controlMessage struct {
	Type       string `json:"type"`
	Action     string `json:"action"`
	OutputType string `json:"output_type"`
}

func (s *Server) dispatchControl(ctx context.Context, sess *session.Session, emitter *wsEmitter, data []byte) {
	var msg controlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		emitter.Emit(session.OutboundMessage{Type: "error", Message: "Invalid JSON"})
		return
	}

	switch {
	case msg.Type == "ping":
		sess.Heartbeat()
		emitter.Emit(session.OutboundMessage{Type: "pong"})

	case msg.Action == "start":
		err := sess.StartTranslation(ctx, msg.OutputType)
		switch {
		case err == nil, errors.Is(err, session.ErrAlreadyRunning):
			// idempotent no-op per the error taxonomy
		case errors.Is(err, session.ErrQuotaExceeded):
			emitter.Close(session.CloseQuotaExceeded, "session request quota exceeded")
		case errors.Is(err, session.ErrInsufficientCredits):
			emitter.Emit(session.OutboundMessage{Type: "error", Message: "Not enough credits"})
		default:
			s.logger.Warn("start translation failed", "err", err)
			emitter.Emit(session.OutboundMessage{Type: "error", Message: "AI service temporary error"})
		}

	case msg.Action == "stop":
		if err := sess.StopTranslation(ctx, "client"); err != nil && !errors.Is(err, session.ErrNotRunning) {
			s.logger.Warn("stop translation failed", "err", err)
		}

	default:
		emitter.Emit(session.OutboundMessage{Type: "error", Message: "Unknown action"})
	}
}

// rateLimiter enforces a sliding 1-second window on inbound message counts.
type rateLimiter struct {
	max   int
	times []time.Time
}

func newRateLimiter(max int) *rateLimiter {
	return &rateLimiter{max: max}
}

// exceeded records now and reports whether the 1-second window now holds
// more than max timestamps.
func (l *rateLimiter) exceeded(now time.Time) bool {
	l.times = append(l.times, now)
	cutoff := now.Add(-time.Second)
	i := 0
	for i < len(l.times) && l.times[i].Before(cutoff) {
		i++
	}
	l.times = l.times[i:]
	return len(l.times) > l.max
}
