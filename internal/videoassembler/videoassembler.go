// Package videoassembler concatenates per-token sign-language clips into a
// single MP4 for a resolved gloss token sequence, behind a content-addressed
// cache on disk.
package videoassembler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tafahom/tafahom-stream/internal/observe"
)

// ErrUnmappedToken is returned when a gloss token has no clip filename in the
// GlossMap.
var ErrUnmappedToken = errors.New("videoassembler: unmapped gloss token")

// ErrAssemblyFailed wraps a transient failure of the external concat tool.
// Callers may retry.
var ErrAssemblyFailed = errors.New("videoassembler: assembly failed")

// ClipResolver looks up the clip filename for a canonical gloss token. It is
// satisfied by *internal/glossmap.Map.
type ClipResolver interface {
	ClipFilename(token string) (string, bool)
}

// Assembler renders gloss token sequences into concatenated MP4 clips under a
// content-addressed cache directory.
type Assembler struct {
	clipDir      string
	outputDir    string
	publicPrefix string
	gloss        ClipResolver
	runner       commandRunner
	metrics      *observe.Metrics

	group singleflight.Group
}

// commandRunner abstracts process execution so tests can stub out ffmpeg.
type commandRunner func(ctx context.Context, manifest, output string) error

// Option configures an Assembler.
type Option func(*Assembler)

// WithPublicPrefix sets the URL prefix prepended to a cache-relative path
// when building the returned URL (default "/media/generated").
func WithPublicPrefix(prefix string) Option {
	return func(a *Assembler) { a.publicPrefix = prefix }
}

// WithCommandRunner overrides the external concat invocation. Used in tests
// to avoid shelling out to a real ffmpeg binary.
func WithCommandRunner(r commandRunner) Option {
	return func(a *Assembler) { a.runner = r }
}

// WithMetrics attaches the application's metrics recorder. A nil Metrics
// (the default) disables recording.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *Assembler) { a.metrics = m }
}

// New creates an Assembler. clipDir holds the per-token source clips named in
// gloss's clip filenames; outputDir is the content-addressed cache directory
// ("generated/" per spec.md §4.6), created if it does not exist.
func New(clipDir, outputDir string, gloss ClipResolver, opts ...Option) (*Assembler, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("videoassembler: create output dir %q: %w", outputDir, err)
	}
	a := &Assembler{
		clipDir:      clipDir,
		outputDir:    outputDir,
		publicPrefix: "/media/generated",
		gloss:        gloss,
	}
	a.runner = a.runFFmpeg
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// Fingerprint computes the content fingerprint for tokens: a pure function of
// the ordered token sequence (spec.md's cache invariant). Truncated to the
// first 16 hex characters of a SHA-256 digest.
func Fingerprint(tokens []string) string {
	sum := sha256.Sum256([]byte(strings.Join(tokens, "_")))
	return hex.EncodeToString(sum[:])[:16]
}

// Generate renders tokens into a single MP4 and returns its public URL. If a
// clip for the identical token sequence was already rendered, the cached
// file's URL is returned without re-invoking the concat tool (idempotent,
// property 6 in spec.md §8). Concurrent calls for the same token sequence are
// de-duplicated via singleflight so the concat tool is invoked at most once.
func (a *Assembler) Generate(ctx context.Context, tokens []string) (string, error) {
	if len(tokens) == 0 {
		return "", fmt.Errorf("videoassembler: %w", ErrEmptyTokens)
	}

	clipPaths, err := a.resolveClips(tokens)
	if err != nil {
		return "", err
	}

	fingerprint := Fingerprint(tokens)
	outputPath := filepath.Join(a.outputDir, fingerprint+".mp4")

	url, err, _ := a.group.Do(fingerprint, func() (any, error) {
		return a.generateOnce(ctx, clipPaths, outputPath, fingerprint)
	})
	if err != nil {
		return "", err
	}
	return url.(string), nil
}

// ErrEmptyTokens is returned when Generate is called with no resolved gloss
// tokens.
var ErrEmptyTokens = errors.New("no gloss tokens to render")

func (a *Assembler) generateOnce(ctx context.Context, clipPaths []string, outputPath, fingerprint string) (string, error) {
	if _, err := os.Stat(outputPath); err == nil {
		if a.metrics != nil {
			a.metrics.RecordVideoCacheHit(ctx)
		}
		return a.publicURL(fingerprint), nil
	}

	manifest, err := a.writeManifest(clipPaths)
	if err != nil {
		return "", err
	}
	defer os.Remove(manifest)

	start := time.Now()
	err = a.runner(ctx, manifest, outputPath)
	if a.metrics != nil {
		a.metrics.RecordVideoAssembly(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAssemblyFailed, err)
	}
	return a.publicURL(fingerprint), nil
}

func (a *Assembler) resolveClips(tokens []string) ([]string, error) {
	paths := make([]string, 0, len(tokens))
	for _, token := range tokens {
		filename, ok := a.gloss.ClipFilename(token)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnmappedToken, token)
		}
		paths = append(paths, filepath.Join(a.clipDir, filename))
	}
	return paths, nil
}

// writeManifest writes an ffmpeg concat-demuxer manifest listing clipPaths in
// order and returns its path.
func (a *Assembler) writeManifest(clipPaths []string) (string, error) {
	f, err := os.CreateTemp("", "tafahom-concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("videoassembler: create manifest: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, p := range clipPaths {
		fmt.Fprintf(&b, "file '%s'\n", escapeSingleQuotes(p))
	}
	if _, err := f.WriteString(b.String()); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("videoassembler: write manifest: %w", err)
	}
	return f.Name(), nil
}

func escapeSingleQuotes(s string) string {
	return strings.ReplaceAll(s, "'", `'\''`)
}

// runFFmpeg shells out to ffmpeg to concatenate clipPaths (via manifest) into
// a single mono, 30fps, 720x1280, H.264 yuv420p, faststart MP4.
func (a *Assembler) runFFmpeg(ctx context.Context, manifest, output string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifest,
		"-vf", "scale=720:1280,fps=30",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		output,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (a *Assembler) publicURL(fingerprint string) string {
	return a.publicPrefix + "/" + fingerprint + ".mp4"
}
