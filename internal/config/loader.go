package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// validLogLevels lists the accepted values for server.log_level.
var validLogLevels = []string{"debug", "info", "warn", "error"}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults for unset
// stream budgets, and validates the result. Useful in tests where configs
// are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyStreamDefaults(&cfg.Stream)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyStreamDefaults fills zero-valued stream budget fields with the
// defaults from spec.md §6.2, so a YAML document only needs to override the
// values it cares about.
func applyStreamDefaults(s *StreamConfig) {
	d := DefaultStreamConfig()
	if s.SendIntervalSeconds == 0 {
		s.SendIntervalSeconds = d.SendIntervalSeconds
	}
	if s.MaxBufferSize == 0 {
		s.MaxBufferSize = d.MaxBufferSize
	}
	if s.MaxBatchFrames == 0 {
		s.MaxBatchFrames = d.MaxBatchFrames
	}
	if s.MaxFramesPerRequest == 0 {
		s.MaxFramesPerRequest = d.MaxFramesPerRequest
	}
	if s.MaxRequestsPerSession == 0 {
		s.MaxRequestsPerSession = d.MaxRequestsPerSession
	}
	if s.PipelineTimeoutSeconds == 0 {
		s.PipelineTimeoutSeconds = d.PipelineTimeoutSeconds
	}
	if s.HeartbeatTimeoutSeconds == 0 {
		s.HeartbeatTimeoutSeconds = d.HeartbeatTimeoutSeconds
	}
	if s.WSMaxMessagesPerSecond == 0 {
		s.WSMaxMessagesPerSecond = d.WSMaxMessagesPerSecond
	}
	if s.WSMaxConnectionTimeSeconds == 0 {
		s.WSMaxConnectionTimeSeconds = d.WSMaxConnectionTimeSeconds
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !slices.Contains(validLogLevels, cfg.Server.LogLevel) {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: %v", cfg.Server.LogLevel, validLogLevels))
	}

	if cfg.AI.TimeoutSeconds < 0 {
		errs = append(errs, errors.New("ai.timeout_seconds must not be negative"))
	}

	s := cfg.Stream
	if s.SendIntervalSeconds <= 0 {
		errs = append(errs, errors.New("stream.send_interval_seconds must be positive"))
	}
	if s.MaxBufferSize <= 0 {
		errs = append(errs, errors.New("stream.max_buffer_size must be positive"))
	}
	if s.MaxBatchFrames <= 0 {
		errs = append(errs, errors.New("stream.max_batch_frames must be positive"))
	}
	if s.MaxBatchFrames > s.MaxBufferSize {
		errs = append(errs, errors.New("stream.max_batch_frames must not exceed stream.max_buffer_size"))
	}
	if s.MaxFramesPerRequest <= 0 {
		errs = append(errs, errors.New("stream.max_frames_per_request must be positive"))
	}
	if s.MaxRequestsPerSession <= 0 {
		errs = append(errs, errors.New("stream.max_requests_per_session must be positive"))
	}
	if s.PipelineTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("stream.pipeline_timeout_seconds must be positive"))
	}
	if s.HeartbeatTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("stream.heartbeat_timeout_seconds must be positive"))
	}
	if s.WSMaxMessagesPerSecond <= 0 {
		errs = append(errs, errors.New("stream.ws_max_messages_per_second must be positive"))
	}
	if s.WSMaxConnectionTimeSeconds <= 0 {
		errs = append(errs, errors.New("stream.ws_max_connection_time_seconds must be positive"))
	}

	if cfg.Auth.Secret == "" {
		errs = append(errs, errors.New("auth.secret is required"))
	}

	return errors.Join(errs...)
}
