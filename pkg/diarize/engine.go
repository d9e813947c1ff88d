// Package diarize attributes transcribed utterances to inferred speaker
// turns.
//
// The engine is deliberately lightweight: speaker turns are inferred from
// elapsed wall-clock time between utterances, not from acoustic embeddings or
// clustering. A turn that has been running longer than the switch threshold
// is assumed to have passed to a new speaker (until the roster cap is
// reached). This gives "good enough" attribution for live meeting notes and
// keeps the hot path model-free; it also means a misattributed utterance is
// never corrected retroactively — that is the documented accuracy ceiling of
// this heuristic, not a bug.
//
// Silence is kept out of the roster by an energy gate: windows whose mean
// squared energy falls below the voice-activity threshold produce no
// utterance and leave speaker state untouched.
package diarize

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/MrWong99/meetscribe/pkg/audio"
)

// Transcriber converts one audio window to text. stt.Engine satisfies this.
type Transcriber interface {
	Transcribe(samples []float32) (string, error)
}

// Defaults for [Config] fields left zero.
const (
	DefaultMaxSpeakers = 10

	// DefaultVoiceActivityThreshold is the mean squared energy (float
	// samples in [-1, 1]) below which a window is treated as silence.
	DefaultVoiceActivityThreshold = 1e-4

	// DefaultSpeakerSwitchInterval is how long a turn may run before the
	// next voiced utterance is attributed to a new speaker.
	DefaultSpeakerSwitchInterval = 5 * time.Second

	// attributionConfidence is the fixed confidence placeholder attached to
	// every utterance. The turn-taking heuristic has no per-utterance score
	// to report.
	attributionConfidence = 0.8
)

// Config holds the tuning parameters for an [Engine]. Zero values select the
// package defaults.
type Config struct {
	// MaxSpeakers caps the roster size. Once reached, every further
	// utterance is attributed to the current speaker.
	MaxSpeakers int

	// VoiceActivityThreshold is the mean squared energy below which a window
	// counts as silence.
	VoiceActivityThreshold float64

	// SpeakerSwitchInterval is the elapsed time since the last speaker
	// change after which a new speaker is assumed.
	SpeakerSwitchInterval time.Duration
}

// Option is a functional option for configuring an [Engine].
type Option func(*Engine)

// WithClock replaces the engine's time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine is the per-session diarization state machine. All methods are safe
// for concurrent use.
type Engine struct {
	trans Transcriber
	cfg   Config
	now   func() time.Time

	mu         sync.Mutex
	start      time.Time
	speakers   []Speaker
	current    int // roster index of the current speaker, -1 before first detection
	lastChange time.Duration
}

// New creates a diarization engine that transcribes voiced windows through
// trans. The session clock starts immediately.
func New(trans Transcriber, cfg Config, opts ...Option) *Engine {
	if cfg.MaxSpeakers <= 0 {
		cfg.MaxSpeakers = DefaultMaxSpeakers
	}
	if cfg.VoiceActivityThreshold <= 0 {
		cfg.VoiceActivityThreshold = DefaultVoiceActivityThreshold
	}
	if cfg.SpeakerSwitchInterval <= 0 {
		cfg.SpeakerSwitchInterval = DefaultSpeakerSwitchInterval
	}

	e := &Engine{
		trans:   trans,
		cfg:     cfg,
		now:     time.Now,
		current: -1,
	}
	for _, o := range opts {
		o(e)
	}
	e.start = e.now()
	return e
}

// ProcessAudio transcribes one window of mono float samples and returns the
// resulting speaker-attributed utterances (at most one per call).
//
// Windows below the voice-activity threshold — and windows whose
// transcription comes back empty — yield an empty result and mutate no
// speaker state. sampleRate must be [audio.TargetSampleRate].
func (e *Engine) ProcessAudio(samples []float32, sampleRate int) ([]AttributedText, error) {
	if sampleRate != audio.TargetSampleRate {
		return nil, fmt.Errorf("diarize: unsupported sample rate %d, expected %d", sampleRate, audio.TargetSampleRate)
	}
	if audio.MeanSquareEnergy(samples) < e.cfg.VoiceActivityThreshold {
		return nil, nil
	}

	text, err := e.trans.Transcribe(samples)
	if err != nil {
		return nil, fmt.Errorf("diarize: transcribe window: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	elapsed := e.now().Sub(e.start)
	speaker := e.assignSpeaker(elapsed)

	speaker.Characteristics = mergeTags(speaker.Characteristics, deriveCharacteristics(text))
	speaker.LastActive = elapsed
	speaker.MessageCount++

	return []AttributedText{{
		Speaker:    snapshot(*speaker),
		Text:       text,
		Timestamp:  elapsed,
		Confidence: attributionConfidence,
		IsQuestion: IsQuestion(text),
	}}, nil
}

// assignSpeaker applies the turn-taking heuristic and returns the speaker the
// current utterance belongs to, minting a new roster entry when the turn has
// rolled over. Must be called with e.mu held.
func (e *Engine) assignSpeaker(elapsed time.Duration) *Speaker {
	switched := elapsed-e.lastChange > e.cfg.SpeakerSwitchInterval &&
		len(e.speakers) < e.cfg.MaxSpeakers

	// The very first voiced utterance always creates a speaker.
	if e.current >= 0 && !switched {
		return &e.speakers[e.current]
	}

	label := fmt.Sprintf("Speaker %d", len(e.speakers)+1)
	e.speakers = append(e.speakers, Speaker{
		ID:            label,
		Label:         label,
		FirstDetected: elapsed,
		LastActive:    elapsed,
	})
	e.current = len(e.speakers) - 1
	e.lastChange = elapsed
	return &e.speakers[e.current]
}

// Speakers returns a snapshot of the session roster in detection order.
func (e *Engine) Speakers() []Speaker {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Speaker, len(e.speakers))
	for i, s := range e.speakers {
		out[i] = snapshot(s)
	}
	return out
}

// snapshot deep-copies a Speaker so callers cannot mutate roster state
// through the returned value.
func snapshot(s Speaker) Speaker {
	s.Characteristics = slices.Clone(s.Characteristics)
	return s
}

// questionOpeners are the interrogative words that mark a sentence as a
// question when it starts with one of them (case-insensitively) followed by
// a space.
var questionOpeners = []string{"how ", "what ", "why ", "when ", "where "}

// IsQuestion reports whether text reads as a question: it ends with '?' or
// opens with an interrogative word.
func IsQuestion(text string) bool {
	trimmed := strings.TrimSpace(text)
	if strings.HasSuffix(trimmed, "?") {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, opener := range questionOpeners {
		if strings.HasPrefix(lower, opener) {
			return true
		}
	}
	return false
}

// deriveCharacteristics extracts behavioural tags from one utterance.
func deriveCharacteristics(text string) []string {
	var tags []string
	lower := strings.ToLower(text)

	switch wordCount := len(strings.Fields(text)); {
	case wordCount < 10:
		tags = append(tags, "short_messages")
	case wordCount < 30:
		tags = append(tags, "medium_messages")
	default:
		tags = append(tags, "long_messages")
	}

	if strings.Contains(text, "?") {
		tags = append(tags, "asks_questions")
		switch {
		case strings.HasPrefix(lower, "how "):
			tags = append(tags, "how_questions")
		case strings.HasPrefix(lower, "what "):
			tags = append(tags, "what_questions")
		case strings.HasPrefix(lower, "why "):
			tags = append(tags, "why_questions")
		}
	}

	if strings.Contains(text, "!") {
		tags = append(tags, "expressive")
	}
	if strings.Contains(lower, "please") || strings.Contains(lower, "thank") {
		tags = append(tags, "polite")
	}

	return tags
}

// mergeTags unions next into existing and returns the sorted, deduplicated
// result.
func mergeTags(existing, next []string) []string {
	merged := append(existing, next...)
	slices.Sort(merged)
	return slices.Compact(merged)
}
