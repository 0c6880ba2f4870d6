// Package glossmap loads the static canonical-gloss-token → clip-filename
// dictionary and the synonym-folding table used by the text→sign pipeline
// (internal/pipeline) and the sign video assembler (internal/videoassembler).
//
// A Map is loaded once at start-up and never mutated afterward; it is safe
// for concurrent read access from many sessions.
package glossmap

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// file is the on-disk YAML shape for a gloss map.
//
//	clips:
//	  HELLO: hello.mp4
//	  FIRE: fire.mp4
//	synonyms:
//	  حرائق: FIRE   # folds to the canonical token (a key of clips)
//	  لا: null      # drop this token entirely
type file struct {
	Clips    map[string]string `yaml:"clips"`
	Synonyms map[string]*string `yaml:"synonyms"`
}

// Map is the immutable gloss dictionary plus synonym table.
type Map struct {
	clips    map[string]string
	synonyms map[string]*string
}

// Load reads and parses a gloss map YAML file from disk.
func Load(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("glossmap: open %q: %w", path, err)
	}
	defer f.Close()

	m, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("glossmap: parse %q: %w", path, err)
	}
	return m, nil
}

// LoadFromReader parses a gloss map YAML document from r.
func LoadFromReader(r io.Reader) (*Map, error) {
	var raw file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("glossmap: decode yaml: %w", err)
	}
	if raw.Clips == nil {
		raw.Clips = map[string]string{}
	}
	if raw.Synonyms == nil {
		raw.Synonyms = map[string]*string{}
	}
	return &Map{clips: raw.Clips, synonyms: raw.Synonyms}, nil
}

// New builds a Map directly from in-memory tables. Useful in tests.
func New(clips map[string]string, synonyms map[string]*string) *Map {
	if clips == nil {
		clips = map[string]string{}
	}
	if synonyms == nil {
		synonyms = map[string]*string{}
	}
	return &Map{clips: clips, synonyms: synonyms}
}

// Resolve folds token through the synonym table and verifies the result names
// a known clip. If token has no synonym entry it is assumed already canonical;
// a synonym entry mapping to nil means the token should be dropped (ok=false).
// Either way, the resolved token must be a key of Clips or ok is false, so
// every token Resolve accepts is guaranteed mapped to a clip.
func (m *Map) Resolve(token string) (canonical string, ok bool) {
	canon, present := m.synonyms[token]
	if !present {
		if _, known := m.clips[token]; !known {
			return "", false
		}
		return token, true
	}
	if canon == nil {
		return "", false
	}
	if _, known := m.clips[*canon]; !known {
		return "", false
	}
	return *canon, true
}

// ClipFilename returns the clip filename for a canonical gloss token.
func (m *Map) ClipFilename(token string) (string, bool) {
	name, ok := m.clips[token]
	return name, ok
}

// Len returns the number of canonical tokens with a known clip.
func (m *Map) Len() int {
	return len(m.clips)
}
