package diarize

import "time"

// Speaker is an inferred conversation participant. Speakers are created on
// first detection and only ever appended to the roster — a speaker is never
// deleted or reassigned during a session.
type Speaker struct {
	// ID uniquely identifies the speaker within the session.
	ID string `json:"id"`

	// Label is the display name ("Speaker 1", "Speaker 2", …).
	Label string `json:"label"`

	// Characteristics is a sorted, deduplicated set of behavioural tags
	// derived from the speaker's utterances (message length, question habits,
	// tone).
	Characteristics []string `json:"characteristics"`

	// FirstDetected and LastActive are durations since session start.
	FirstDetected time.Duration `json:"first_detected"`
	LastActive    time.Duration `json:"last_active"`

	// MessageCount is the number of utterances attributed to this speaker.
	MessageCount int `json:"message_count"`
}

// AttributedText is one transcribed utterance attributed to a speaker.
// Values are immutable once produced; Speaker is a snapshot taken at
// attribution time, not a live reference into the roster.
type AttributedText struct {
	Speaker    Speaker       `json:"speaker"`
	Text       string        `json:"text"`
	Timestamp  time.Duration `json:"timestamp"`
	Confidence float64       `json:"confidence"`
	IsQuestion bool          `json:"is_question"`
}
