package session

import (
	"context"
	"encoding/base64"
	"errors"
	"time"
)

// tickInterval is the batch loop's poll period, exactly as specified.
const tickInterval = 100 * time.Millisecond

// RunBatchLoop drives one connection's periodic batch dispatch until ctx is
// canceled or a liveness/lifetime budget is exceeded. It is intended to run
// in its own goroutine, one per Running-capable connection, started right
// after the Session is constructed. A panic inside the loop is recovered:
// the client gets an error message and the connection is closed with
// [CloseInternalFatal].
func (s *Session) RunBatchLoop(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("batch loop crashed", "panic", r)
			s.emitter.Emit(errorMessage("Internal server error"))
			s.emitter.Close(CloseInternalFatal, "internal error")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.tick(ctx) {
				return
			}
		}
	}
}

// tick runs one iteration of the batch loop's pseudocode. It returns false
// when the loop should exit (the connection is being closed).
func (s *Session) tick(ctx context.Context) bool {
	s.mu.Lock()
	connStart := s.connStart
	lastHeartbeat := s.lastHeartbeat
	lastBatch := s.lastBatch
	state := s.state
	s.mu.Unlock()

	now := time.Now()
	if now.Sub(connStart) > s.cfg.WSMaxConnectionTime() {
		s.emitter.Close(CloseConnectionLifetime, "connection lifetime exceeded")
		return false
	}
	if now.Sub(lastHeartbeat) > s.cfg.HeartbeatTimeout() {
		s.emitter.Close(CloseHeartbeatTimeout, "heartbeat timeout")
		return false
	}
	if state == StateClosed {
		return false
	}
	if state != StateRunning {
		return true
	}
	if now.Sub(lastBatch) < s.cfg.SendInterval() {
		return true
	}

	frames := s.Buffer.TakeTail(s.cfg.MaxBatchFrames)
	if len(frames) == 0 {
		return true
	}
	if len(frames) > s.cfg.MaxFramesPerRequest {
		s.emitter.Emit(errorMessage("Too many frames"))
		return true
	}

	s.mu.Lock()
	s.lastBatch = now
	s.mu.Unlock()
	s.dispatchBatch(ctx, frames)
	return true
}

// dispatchBatch base64-encodes frames and runs them through the sign-to-text
// pipeline, appending the result to the session's partial-text accumulator.
func (s *Session) dispatchBatch(ctx context.Context, frames [][]byte) {
	dctx, cancel := context.WithTimeout(ctx, s.cfg.PipelineTimeout())
	defer cancel()

	encoded := make([]string, len(frames))
	for i, f := range frames {
		encoded[i] = base64.StdEncoding.EncodeToString(f)
	}

	result, err := s.pipeline.SignToText(dctx, encoded)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.emitter.Emit(warningMessage("translation batch timed out"))
			return
		}
		s.logger.Warn("batch dispatch failed", "err", err)
		s.emitter.Emit(errorMessage("AI service temporary error"))
		return
	}

	s.appendPartial(result.Text)
	s.emitter.Emit(partialResult(result.Text))
}
