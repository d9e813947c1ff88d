package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/meetscribe/pkg/stt/whisper"
)

// Defaults applied by [Validate] for fields left zero.
const (
	DefaultListenAddr  = ":8080"
	DefaultModelSize   = "base"
	DefaultLanguage    = "en"
	DefaultTickMs      = 500
	DefaultMinWindowMs = 1000
	DefaultMaxWindowMs = 10_000
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
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

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fills defaults for zero fields and checks that cfg contains a
// coherent set of values. It returns a joined error listing all validation
// failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// STT
	if cfg.STT.ModelSize == "" {
		cfg.STT.ModelSize = DefaultModelSize
	}
	if !whisper.ModelSize(cfg.STT.ModelSize).IsValid() {
		errs = append(errs, fmt.Errorf("stt.model_size %q is invalid; valid values: tiny, base, small", cfg.STT.ModelSize))
	}
	if cfg.STT.Language == "" {
		cfg.STT.Language = DefaultLanguage
	}
	if cfg.STT.TickMs == 0 {
		cfg.STT.TickMs = DefaultTickMs
	}
	if cfg.STT.TickMs < 0 {
		errs = append(errs, fmt.Errorf("stt.tick_ms must be positive, got %d", cfg.STT.TickMs))
	}
	if cfg.STT.MinWindowMs == 0 {
		cfg.STT.MinWindowMs = DefaultMinWindowMs
	}
	if cfg.STT.MaxWindowMs == 0 {
		cfg.STT.MaxWindowMs = DefaultMaxWindowMs
	}
	if cfg.STT.MinWindowMs < 0 || cfg.STT.MaxWindowMs < 0 {
		errs = append(errs, errors.New("stt window durations must be positive"))
	} else if cfg.STT.MinWindowMs > cfg.STT.MaxWindowMs {
		errs = append(errs, fmt.Errorf("stt.min_window_ms (%d) must not exceed stt.max_window_ms (%d)", cfg.STT.MinWindowMs, cfg.STT.MaxWindowMs))
	}

	// Diarization
	if cfg.Diarization.MaxSpeakers < 0 {
		errs = append(errs, fmt.Errorf("diarization.max_speakers must not be negative, got %d", cfg.Diarization.MaxSpeakers))
	}
	if cfg.Diarization.VoiceActivityThreshold < 0 {
		errs = append(errs, fmt.Errorf("diarization.voice_activity_threshold must not be negative, got %g", cfg.Diarization.VoiceActivityThreshold))
	}
	if cfg.Diarization.SpeakerSwitchSeconds < 0 {
		errs = append(errs, fmt.Errorf("diarization.speaker_switch_seconds must not be negative, got %g", cfg.Diarization.SpeakerSwitchSeconds))
	}

	return errors.Join(errs...)
}
