// Package stt defines the Engine interface for speech-to-text backends.
//
// An engine performs batch transcription of a single bounded audio window:
// the caller is responsible for segmenting the live stream into windows (the
// coordinator's timer-driven drain does this); the engine does not attempt to
// split multi-sentence audio internally.
//
// Implementations must be safe for concurrent use.
package stt

// Engine transcribes fixed-rate mono float PCM audio windows.
type Engine interface {
	// Transcribe converts one window of 16 kHz mono float32 samples to text.
	// Empty input returns "" without invoking the underlying model. A non-nil
	// error means this window could not be decoded; callers should treat that
	// as non-fatal and skip the window — the audio is already consumed and is
	// not replayed.
	Transcribe(samples []float32) (string, error)

	// Close releases the underlying model. Calling Close more than once is
	// safe and returns nil.
	Close() error
}
