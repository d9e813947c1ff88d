// Package emit defines the fire-and-forget event sink through which the
// pipeline publishes transcripts, speaker-attributed records, and status
// changes to outer surfaces (command shell, GUI, websocket clients).
//
// Emission is best-effort by contract: a failing sink must never stall or
// abort the pipeline. Callers log emit errors and move on.
package emit

import (
	"errors"
	"log/slog"
)

// Well-known event names published by the pipeline.
const (
	// EventTranscript carries a plain transcript string.
	EventTranscript = "native_transcript"

	// EventSpeakerTranscript carries a diarize.AttributedText record.
	EventSpeakerTranscript = "speaker_transcript"

	// EventStatus carries a coordinator status snapshot.
	EventStatus = "stt_status"
)

// Emitter publishes a named event with an arbitrary payload.
type Emitter interface {
	// Emit delivers one event. Implementations must not block indefinitely;
	// a returned error is informational only and never propagated as a
	// pipeline failure.
	Emit(event string, payload any) error
}

// Discard is an Emitter that drops every event. Useful as a default and in
// tests.
var Discard Emitter = discard{}

type discard struct{}

func (discard) Emit(string, any) error { return nil }

// Log is an Emitter that writes each event to the default slog logger at
// debug level. Handy for headless runs without a connected frontend.
type Log struct{}

func (Log) Emit(event string, payload any) error {
	slog.Debug("event", "name", event, "payload", payload)
	return nil
}

// Multi fans out each event to every sink in order. Errors are collected and
// joined; all sinks are attempted regardless of individual failures.
func Multi(sinks ...Emitter) Emitter {
	return multi(sinks)
}

type multi []Emitter

func (m multi) Emit(event string, payload any) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
