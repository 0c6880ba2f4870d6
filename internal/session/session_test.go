package session_test

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tafahom/tafahom-stream/internal/config"
	"github.com/tafahom/tafahom-stream/internal/pipeline"
	"github.com/tafahom/tafahom-stream/internal/session"
	"github.com/tafahom/tafahom-stream/internal/session/mock"
)

func newTestSession(t *testing.T, remainingCredits int) (*session.Session, *mock.Emitter, *mock.Wallet, *mock.Translation, *mock.Pipeline, *mock.TTS) {
	t.Helper()
	w := &mock.Wallet{Remain: remainingCredits}
	tr := &mock.Translation{}
	p := &mock.Pipeline{Result: pipeline.SignToTextResult{Text: "hello"}}
	tts := &mock.TTS{Audio: []byte{0xAA}}
	em := &mock.Emitter{}

	stream := config.DefaultStreamConfig()
	stream.MaxRequestsPerSession = 5

	s := session.New(session.Config{
		UserID:      "user-1",
		Pipeline:    p,
		TTS:         tts,
		Wallet:      w,
		Translation: tr,
		Emitter:     em,
		Stream:      stream,
	})
	return s, em, w, tr, p, tts
}

func TestStartTranslation_HappyPath(t *testing.T) {
	s, em, w, tr, _, _ := newTestSession(t, 10)

	err := s.StartTranslation(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, session.StateRunning, s.State())
	assert.Equal(t, 1, w.Consumed)
	assert.Len(t, tr.Records, 1)

	msgs := em.Snapshot()
	require.Len(t, msgs, 1)
	assert.Equal(t, "status", msgs[0].Type)
	assert.Equal(t, "processing", msgs[0].Status)
}

func TestStartTranslation_InsufficientCredits(t *testing.T) {
	s, em, _, tr, _, _ := newTestSession(t, 0)

	err := s.StartTranslation(context.Background(), "text")
	require.ErrorIs(t, err, session.ErrInsufficientCredits)
	assert.Equal(t, session.StateIdle, s.State())
	assert.Empty(t, tr.Records)
	assert.Empty(t, em.Snapshot())
}

func TestStartTranslation_AlreadyRunning(t *testing.T) {
	s, _, _, _, _, _ := newTestSession(t, 10)
	require.NoError(t, s.StartTranslation(context.Background(), "text"))

	err := s.StartTranslation(context.Background(), "text")
	require.ErrorIs(t, err, session.ErrAlreadyRunning)
}

func TestStartTranslation_QuotaExceeded(t *testing.T) {
	s, _, _, _, _, _ := newTestSession(t, 100)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.StartTranslation(context.Background(), "text"))
		require.NoError(t, s.StopTranslation(context.Background(), "client"))
	}
	err := s.StartTranslation(context.Background(), "text")
	require.ErrorIs(t, err, session.ErrQuotaExceeded)
}

func TestStopTranslation_TextMode_NoFinalResult(t *testing.T) {
	s, em, _, tr, _, _ := newTestSession(t, 10)
	require.NoError(t, s.StartTranslation(context.Background(), "text"))

	err := s.StopTranslation(context.Background(), "client")
	require.NoError(t, err)
	assert.Equal(t, session.StateIdle, s.State())

	var rec *struct{}
	_ = rec
	for _, r := range tr.Records {
		assert.Equal(t, "completed", string(r.Status))
	}

	msgs := em.Snapshot()
	require.Len(t, msgs, 2) // status/processing, status/stopped
	assert.Equal(t, "stopped", msgs[1].Status)
}

func TestStopTranslation_VoiceMode_EmitsFinalResult(t *testing.T) {
	p := &mock.Pipeline{Result: pipeline.SignToTextResult{Text: "hello"}}
	tts := &mock.TTS{Audio: []byte{0xAA}}
	em := &mock.Emitter{}
	stream := config.DefaultStreamConfig()
	stream.SendIntervalSeconds = 1
	s := session.New(session.Config{
		UserID:      "user-1",
		Pipeline:    p,
		TTS:         tts,
		Wallet:      &mock.Wallet{Remain: 10},
		Translation: &mock.Translation{},
		Emitter:     em,
		Stream:      stream,
	})
	require.NoError(t, s.StartTranslation(context.Background(), "voice"))

	s.OnFrame([]byte("frame"))
	ok := s.Buffer.Len()
	assert.Equal(t, 1, ok)

	// Let the batch loop dispatch the buffered frame once the send interval
	// has elapsed, so the session holds partial text ("hello") to finalize.
	ctx, cancel := context.WithCancel(context.Background())
	go s.RunBatchLoop(ctx)
	require.Eventually(t, func() bool {
		for _, m := range em.Snapshot() {
			if m.Type == "partial_result" {
				return true
			}
		}
		return false
	}, 3*time.Second, 20*time.Millisecond)
	cancel()

	require.NoError(t, s.StopTranslation(context.Background(), "client"))

	msgs := em.Snapshot()
	require.GreaterOrEqual(t, len(msgs), 4) // processing, partial_result, final_result, stopped
	final := msgs[len(msgs)-2]
	assert.Equal(t, "final_result", final.Type)
	assert.Equal(t, "hello", final.Text)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{0xAA}), final.Audio)
	assert.Equal(t, "stopped", msgs[len(msgs)-1].Status)
	assert.Equal(t, []string{"hello"}, tts.Calls)
}

func TestOnFrame_DiscardedWhenNotRunning(t *testing.T) {
	s, _, _, _, _, _ := newTestSession(t, 10)
	s.OnFrame([]byte("frame"))
	assert.Equal(t, 0, s.Buffer.Len())
}

func TestClose_FinalizesRunningTranslation(t *testing.T) {
	s, _, _, tr, _, _ := newTestSession(t, 10)
	require.NoError(t, s.StartTranslation(context.Background(), "text"))

	s.Close(context.Background())
	assert.Equal(t, session.StateClosed, s.State())
	for _, r := range tr.Records {
		assert.Equal(t, "completed", string(r.Status))
	}
}

func TestClose_Idempotent(t *testing.T) {
	s, _, _, _, _, _ := newTestSession(t, 10)
	s.Close(context.Background())
	s.Close(context.Background())
	assert.Equal(t, session.StateClosed, s.State())
}
