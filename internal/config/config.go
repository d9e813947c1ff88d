// Package config provides the configuration schema and loader for the
// meetscribe server.
package config

import (
	"time"

	"github.com/MrWong99/meetscribe/pkg/diarize"
)

// LogLevel controls log verbosity for the meetscribe server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for meetscribe.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	STT         STTConfig         `yaml:"stt"`
	Diarization DiarizationConfig `yaml:"diarization"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP/websocket server listens on
	// (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// STTConfig holds transcription settings.
type STTConfig struct {
	// ModelDir is the directory holding whisper model files. Empty selects
	// the per-user default directory.
	ModelDir string `yaml:"model_dir"`

	// ModelSize selects the whisper model file: tiny, base, or small.
	// Defaults to "base".
	ModelSize string `yaml:"model_size"`

	// Language is the BCP-47 language code for recognition. Defaults to "en".
	Language string `yaml:"language"`

	// TickMs is the transcription scheduler period in milliseconds.
	// Defaults to 500.
	TickMs int `yaml:"tick_ms"`

	// MinWindowMs is the minimum drained audio duration worth decoding;
	// shorter windows are skipped. Defaults to 1000.
	MinWindowMs int `yaml:"min_window_ms"`

	// MaxWindowMs is the maximum audio duration drained per tick.
	// Defaults to 10000.
	MaxWindowMs int `yaml:"max_window_ms"`
}

// DiarizationConfig holds speaker-attribution settings.
type DiarizationConfig struct {
	// Enabled routes transcription through the diarization engine so that
	// emitted utterances carry speaker attribution.
	Enabled bool `yaml:"enabled"`

	// MaxSpeakers caps the per-session speaker roster. Defaults to 10.
	MaxSpeakers int `yaml:"max_speakers"`

	// VoiceActivityThreshold is the mean squared energy below which a window
	// counts as silence. Defaults to the diarize package default.
	VoiceActivityThreshold float64 `yaml:"voice_activity_threshold"`

	// SpeakerSwitchSeconds is the turn length after which the next utterance
	// is attributed to a new speaker. Defaults to 5.
	SpeakerSwitchSeconds float64 `yaml:"speaker_switch_seconds"`
}

// DiarizeConfig converts the YAML section into the diarize package's Config,
// applying defaults for zero fields.
func (d DiarizationConfig) DiarizeConfig() diarize.Config {
	return diarize.Config{
		MaxSpeakers:            d.MaxSpeakers,
		VoiceActivityThreshold: d.VoiceActivityThreshold,
		SpeakerSwitchInterval:  time.Duration(d.SpeakerSwitchSeconds * float64(time.Second)),
	}
}
