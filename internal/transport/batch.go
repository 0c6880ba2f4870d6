package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/tafahom/tafahom-stream/internal/pipeline"
	"github.com/tafahom/tafahom-stream/internal/translation"
	"github.com/tafahom/tafahom-stream/internal/videoassembler"
	"github.com/tafahom/tafahom-stream/internal/wallet"
)

// TextToSignPath and VoiceToSignPath are the one-shot (non-streaming) batch
// translation endpoints: text or recorded speech in, a rendered sign video
// URL out.
const (
	TextToSignPath  = "/api/v1/translate/text-to-sign"
	VoiceToSignPath = "/api/v1/translate/voice-to-sign"

	// batchCreditCost is the credit charge for one batch translation request,
	// matching the streaming session's per-start cost.
	batchCreditCost = 1

	// maxVoiceUploadBytes bounds a voice-to-sign multipart upload.
	maxVoiceUploadBytes = 25 << 20 // 25MiB
)

// BatchOrchestrator is the subset of *pipeline.Orchestrator the batch
// endpoints call.
type BatchOrchestrator interface {
	TextToSign(ctx context.Context, text string) (pipeline.TextToSignResult, error)
	VoiceToSign(ctx context.Context, wav io.Reader, language string) (pipeline.TextToSignResult, error)
}

// RegisterBatch mounts the one-shot text/voice-to-sign HTTP endpoints on mux.
// assembler renders the resolved gloss sequence into a video URL (C6);
// orchestrator resolves gloss tokens from text or voice input (C2).
func (s *Server) RegisterBatch(mux *http.ServeMux, orchestrator BatchOrchestrator, assembler *videoassembler.Assembler) {
	mux.HandleFunc("POST "+TextToSignPath, s.handleTextToSign(orchestrator, assembler))
	mux.HandleFunc("POST "+VoiceToSignPath, s.handleVoiceToSign(orchestrator, assembler))
}

type textToSignRequest struct {
	Text string `json:"text"`
}

type batchTranslationResponse struct {
	Gloss    []string `json:"gloss"`
	VideoURL string   `json:"video_url"`
}

func (s *Server) handleTextToSign(orchestrator BatchOrchestrator, assembler *videoassembler.Assembler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := s.verifier.VerifyRequest(r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req textToSignRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		rec := &translation.Record{
			UserID:     principal.UserID,
			Direction:  translation.DirectionToSign,
			InputType:  "text",
			OutputType: "video",
			InputText:  req.Text,
			Mode:       translation.ModeBatch,
		}

		s.runBatchToSign(w, r, rec, func(ctx context.Context) (pipeline.TextToSignResult, error) {
			return orchestrator.TextToSign(ctx, req.Text)
		}, assembler)
	}
}

func (s *Server) handleVoiceToSign(orchestrator BatchOrchestrator, assembler *videoassembler.Assembler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := s.verifier.VerifyRequest(r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxVoiceUploadBytes)
		if err := r.ParseMultipartForm(maxVoiceUploadBytes); err != nil {
			http.Error(w, "audio payload too large or malformed", http.StatusBadRequest)
			return
		}
		file, _, err := r.FormFile("audio")
		if err != nil {
			http.Error(w, "missing \"audio\" form file", http.StatusBadRequest)
			return
		}
		defer file.Close()
		language := r.FormValue("language")

		rec := &translation.Record{
			UserID:         principal.UserID,
			Direction:      translation.DirectionToSign,
			InputType:      "voice",
			OutputType:     "video",
			SourceLanguage: language,
			Mode:           translation.ModeBatch,
		}

		s.runBatchToSign(w, r, rec, func(ctx context.Context) (pipeline.TextToSignResult, error) {
			return orchestrator.VoiceToSign(ctx, file, language)
		}, assembler)
	}
}

// runBatchToSign charges the wallet, runs fn to resolve gloss tokens, renders
// them via assembler, persists the translation record, and writes the JSON
// response. It is shared by the text and voice entry points, which differ
// only in how they produce the gloss-resolving call and the persisted input.
func (s *Server) runBatchToSign(w http.ResponseWriter, r *http.Request, rec *translation.Record,
	fn func(ctx context.Context) (pipeline.TextToSignResult, error), assembler *videoassembler.Assembler) {
	ctx := r.Context()

	if err := s.wallet.Consume(ctx, rec.UserID, batchCreditCost, "batch_"+rec.InputType+"_to_sign"); err != nil {
		if errors.Is(err, wallet.ErrInsufficientCredits) {
			http.Error(w, "insufficient credits", http.StatusPaymentRequired)
			return
		}
		s.logger.Warn("batch translation: wallet consume failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if err := s.translation.Create(ctx, rec); err != nil {
		s.logger.Warn("batch translation: record create failed", "err", err)
	}

	result, err := fn(ctx)
	if err != nil {
		s.failBatch(ctx, rec, err)
		var f *pipeline.Failure
		if errors.As(err, &f) {
			http.Error(w, "translation failed: "+f.Cause.Error(), http.StatusBadGateway)
			return
		}
		http.Error(w, "translation failed", http.StatusBadGateway)
		return
	}

	videoURL, err := assembler.Generate(ctx, result.Gloss)
	if err != nil {
		s.failBatch(ctx, rec, err)
		http.Error(w, "video assembly failed", http.StatusBadGateway)
		return
	}

	if rec.ID != 0 {
		if err := s.translation.Complete(ctx, rec.ID, "", videoURL); err != nil {
			s.logger.Warn("batch translation: record complete failed", "err", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(batchTranslationResponse{Gloss: result.Gloss, VideoURL: videoURL})
}

func (s *Server) failBatch(ctx context.Context, rec *translation.Record, err error) {
	if rec.ID == 0 {
		return
	}
	if ferr := s.translation.Fail(ctx, rec.ID, err.Error()); ferr != nil {
		s.logger.Warn("batch translation: record fail-transition failed", "err", ferr)
	}
}
