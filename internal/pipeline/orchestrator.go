// Package pipeline composes the five AI client adapters (pkg/provider/ai/...)
// into the four directional translation pipelines: sign→text, sign→voice,
// text→sign, and voice→sign.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SignToTextResult is the output of the SignToText pipeline.
type SignToTextResult struct {
	Text string
}

// SignToVoiceResult is the output of the SignToVoice pipeline.
type SignToVoiceResult struct {
	Text  string
	Audio []byte
}

// TextToSignResult is the output of the TextToSign and VoiceToSign pipelines:
// the resolved, synonym-folded gloss token sequence ready for video assembly.
type TextToSignResult struct {
	Gloss []string
}

// Orchestrator wires the five AI adapters and the gloss dictionary into the
// four directional pipelines. It is stateless and safe for concurrent use
// from many sessions.
type Orchestrator struct {
	cv          CVClient
	textToGloss TextToGlossClient
	glossToText GlossToTextClient
	stt         STTClient
	tts         TTSClient
	gloss       GlossResolver

	logger *slog.Logger
}

// New constructs an Orchestrator from the five adapter clients and the gloss
// dictionary. A nil logger falls back to slog.Default().
func New(cv CVClient, textToGloss TextToGlossClient, glossToText GlossToTextClient, stt STTClient, tts TTSClient, gloss GlossResolver, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cv:          cv,
		textToGloss: textToGloss,
		glossToText: glossToText,
		stt:         stt,
		tts:         tts,
		gloss:       gloss,
		logger:      logger,
	}
}

// SignToText runs CV → GlossToText. frames are base64-encoded video frames
// in dispatch order.
func (o *Orchestrator) SignToText(ctx context.Context, frames []string) (SignToTextResult, error) {
	const name = "sign_to_text"
	if len(frames) == 0 {
		return SignToTextResult{}, fail(name, ErrEmptyInput)
	}
	reqID := uuid.NewString()
	log := o.logger.With("request_id", reqID, "pipeline", name)

	gloss, err := o.stageSignToGloss(ctx, log, frames)
	if err != nil {
		return SignToTextResult{}, fail(name, err)
	}

	text, err := o.stageGlossToText(ctx, log, gloss)
	if err != nil {
		return SignToTextResult{}, fail(name, err)
	}

	return SignToTextResult{Text: text}, nil
}

// SignToVoice runs SignToText, then synthesizes the resulting text to audio.
func (o *Orchestrator) SignToVoice(ctx context.Context, frames []string, voice string) (SignToVoiceResult, error) {
	const name = "sign_to_voice"
	res, err := o.SignToText(ctx, frames)
	if err != nil {
		return SignToVoiceResult{}, retag(err, name)
	}

	reqID := uuid.NewString()
	log := o.logger.With("request_id", reqID, "pipeline", name)
	audio, err := o.stageTextToSpeech(ctx, log, res.Text, voice)
	if err != nil {
		return SignToVoiceResult{}, fail(name, err)
	}

	return SignToVoiceResult{Text: res.Text, Audio: audio}, nil
}

// TextToSign runs TextToGloss, then resolves every token through
// NormalizeArabic and the gloss/synonym dictionary, dropping tokens the
// synonym table maps to null. It fails if every token is dropped.
func (o *Orchestrator) TextToSign(ctx context.Context, text string) (TextToSignResult, error) {
	const name = "text_to_sign"
	text = strings.TrimSpace(text)
	if text == "" {
		return TextToSignResult{}, fail(name, ErrEmptyInput)
	}
	reqID := uuid.NewString()
	log := o.logger.With("request_id", reqID, "pipeline", name)

	rawGloss, err := o.stageTextToGloss(ctx, log, text)
	if err != nil {
		return TextToSignResult{}, fail(name, err)
	}

	resolved := o.resolveGloss(rawGloss)
	if len(resolved) == 0 {
		return TextToSignResult{}, fail(name, ErrGlossResolutionEmpty)
	}

	return TextToSignResult{Gloss: resolved}, nil
}

// VoiceToSign ensures wav looks like a WAV container, transcribes it via
// STT, then runs the result through TextToSign.
func (o *Orchestrator) VoiceToSign(ctx context.Context, wav io.Reader, language string) (TextToSignResult, error) {
	const name = "voice_to_sign"

	buf, err := ensureWAV(wav)
	if err != nil {
		return TextToSignResult{}, fail(name, err)
	}

	reqID := uuid.NewString()
	log := o.logger.With("request_id", reqID, "pipeline", name)

	text, err := o.stageSpeechToText(ctx, log, buf, language)
	if err != nil {
		return TextToSignResult{}, fail(name, err)
	}

	res, err := o.TextToSign(ctx, text)
	if err != nil {
		return TextToSignResult{}, retag(err, name)
	}
	return res, nil
}

// ─── stages ─────────────────────────────────────────────────────────────────

func (o *Orchestrator) stageSignToGloss(ctx context.Context, log *slog.Logger, frames []string) ([]string, error) {
	start := time.Now()
	log.Debug("stage start", "stage", "cv.sign_to_gloss", "frame_count", len(frames))
	result, err := o.cv.SignToGloss(ctx, frames)
	elapsed := time.Since(start)
	if err != nil {
		log.Warn("stage failed", "stage", "cv.sign_to_gloss", "elapsed_ms", elapsed.Milliseconds(), "err", err)
		return nil, err
	}
	gloss := result.ToGloss()
	log.Debug("stage finish", "stage", "cv.sign_to_gloss", "elapsed_ms", elapsed.Milliseconds(), "gloss_count", len(gloss))
	if len(gloss) == 0 {
		return nil, fmt.Errorf("cv returned no gloss tokens")
	}
	return gloss, nil
}

func (o *Orchestrator) stageGlossToText(ctx context.Context, log *slog.Logger, gloss []string) (string, error) {
	start := time.Now()
	log.Debug("stage start", "stage", "nlp.gloss_to_text", "gloss_count", len(gloss))
	text, err := o.glossToText.GlossToText(ctx, gloss)
	elapsed := time.Since(start)
	if err != nil {
		log.Warn("stage failed", "stage", "nlp.gloss_to_text", "elapsed_ms", elapsed.Milliseconds(), "err", err)
		return "", err
	}
	text = strings.TrimSpace(text)
	log.Debug("stage finish", "stage", "nlp.gloss_to_text", "elapsed_ms", elapsed.Milliseconds())
	if text == "" {
		return "", fmt.Errorf("gloss_to_text returned empty text")
	}
	return text, nil
}

func (o *Orchestrator) stageTextToSpeech(ctx context.Context, log *slog.Logger, text, voice string) ([]byte, error) {
	start := time.Now()
	log.Debug("stage start", "stage", "tts.text_to_speech")
	audio, err := o.tts.TextToSpeech(ctx, text, voice)
	elapsed := time.Since(start)
	if err != nil {
		log.Warn("stage failed", "stage", "tts.text_to_speech", "elapsed_ms", elapsed.Milliseconds(), "err", err)
		return nil, err
	}
	log.Debug("stage finish", "stage", "tts.text_to_speech", "elapsed_ms", elapsed.Milliseconds(), "audio_bytes", len(audio))
	if len(audio) == 0 {
		return nil, fmt.Errorf("tts returned no audio bytes")
	}
	return audio, nil
}

func (o *Orchestrator) stageTextToGloss(ctx context.Context, log *slog.Logger, text string) ([]string, error) {
	start := time.Now()
	log.Debug("stage start", "stage", "nlp.text_to_gloss")
	result, err := o.textToGloss.TextToGloss(ctx, text)
	elapsed := time.Since(start)
	if err != nil {
		log.Warn("stage failed", "stage", "nlp.text_to_gloss", "elapsed_ms", elapsed.Milliseconds(), "err", err)
		return nil, err
	}
	gloss := result.ToGloss()
	log.Debug("stage finish", "stage", "nlp.text_to_gloss", "elapsed_ms", elapsed.Milliseconds(), "gloss_count", len(gloss))
	if len(gloss) == 0 {
		return nil, fmt.Errorf("text_to_gloss returned no gloss tokens")
	}
	return gloss, nil
}

func (o *Orchestrator) stageSpeechToText(ctx context.Context, log *slog.Logger, wav io.Reader, language string) (string, error) {
	start := time.Now()
	log.Debug("stage start", "stage", "stt.speech_to_text")
	text, err := o.stt.SpeechToText(ctx, wav, language, "transcribe")
	elapsed := time.Since(start)
	if err != nil {
		log.Warn("stage failed", "stage", "stt.speech_to_text", "elapsed_ms", elapsed.Milliseconds(), "err", err)
		return "", err
	}
	text = strings.TrimSpace(text)
	log.Debug("stage finish", "stage", "stt.speech_to_text", "elapsed_ms", elapsed.Milliseconds())
	if text == "" {
		return "", fmt.Errorf("stt returned empty text")
	}
	return text, nil
}

// resolveGloss normalizes and resolves every token in raw through the gloss
// dictionary, in order, dropping any token the synonym table maps to null.
func (o *Orchestrator) resolveGloss(raw []string) []string {
	resolved := make([]string, 0, len(raw))
	for _, token := range raw {
		normalized := NormalizeArabic(token)
		if normalized == "" {
			continue
		}
		canonical, ok := o.gloss.Resolve(normalized)
		if !ok {
			continue
		}
		resolved = append(resolved, canonical)
	}
	return resolved
}

// riffMagic is the four-byte RIFF container header every valid WAV file
// begins with.
var riffMagic = []byte("RIFF")

// ensureWAV buffers wav fully and verifies it begins with a RIFF header.
// The buffered bytes are returned so the caller can still stream them to the
// STT adapter.
func ensureWAV(wav io.Reader) (*bytes.Reader, error) {
	data, err := io.ReadAll(wav)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(data) < 12 || !bytes.Equal(data[:4], riffMagic) {
		return nil, fmt.Errorf("input is not a valid WAV container")
	}
	return bytes.NewReader(data), nil
}

// retag rewraps a *Failure produced by an inner pipeline call (e.g. TextToSign
// called from VoiceToSign) under the outer pipeline's name, preserving the
// original cause.
func retag(err error, pipeline string) error {
	var f *Failure
	if errors.As(err, &f) {
		return fail(pipeline, f.Cause)
	}
	return fail(pipeline, err)
}
