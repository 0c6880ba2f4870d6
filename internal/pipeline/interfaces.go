package pipeline

import (
	"context"
	"io"

	"github.com/tafahom/tafahom-stream/pkg/provider/ai/cv"
	"github.com/tafahom/tafahom-stream/pkg/provider/ai/texttogloss"
)

// CVClient is the subset of pkg/provider/ai/cv.Client the orchestrator
// depends on.
type CVClient interface {
	SignToGloss(ctx context.Context, frames []string) (cv.Result, error)
}

// TextToGlossClient is the subset of pkg/provider/ai/texttogloss.Client the
// orchestrator depends on.
type TextToGlossClient interface {
	TextToGloss(ctx context.Context, text string) (texttogloss.Result, error)
}

// GlossToTextClient is the subset of pkg/provider/ai/glosstotext.Client the
// orchestrator depends on.
type GlossToTextClient interface {
	GlossToText(ctx context.Context, gloss []string) (string, error)
}

// STTClient is the subset of pkg/provider/ai/stt.Client the orchestrator
// depends on.
type STTClient interface {
	SpeechToText(ctx context.Context, wav io.Reader, language, task string) (string, error)
}

// TTSClient is the subset of pkg/provider/ai/tts.Client the orchestrator
// depends on.
type TTSClient interface {
	TextToSpeech(ctx context.Context, text, voice string) ([]byte, error)
}

// GlossResolver resolves a single (already Arabic-normalized) token through
// the gloss/synonym dictionary. It is satisfied by *internal/glossmap.Map.
type GlossResolver interface {
	Resolve(token string) (canonical string, ok bool)
}
