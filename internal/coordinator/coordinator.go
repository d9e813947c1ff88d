// Package coordinator owns the transcription pipeline lifecycle: it wires
// microphone capture into the sample ring, drains the ring on a fixed tick,
// runs whisper (optionally through the diarizer), and publishes results to
// the configured event sink.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/meetscribe/internal/emit"
	"github.com/MrWong99/meetscribe/internal/observe"
	"github.com/MrWong99/meetscribe/pkg/audio"
	"github.com/MrWong99/meetscribe/pkg/diarize"
	"github.com/MrWong99/meetscribe/pkg/stt"
	"github.com/MrWong99/meetscribe/pkg/stt/whisper"
)

// Lifecycle errors surfaced synchronously from [Coordinator.Start].
var (
	// ErrAlreadyRunning guards against double starts.
	ErrAlreadyRunning = errors.New("coordinator: transcription already running")

	// ErrModelNotFound means the whisper model artifact is absent on disk.
	// Model acquisition is the caller's job; the coordinator fails fast.
	ErrModelNotFound = errors.New("coordinator: whisper model not found")
)

// Status is the read-only projection of the coordinator's lifecycle state.
type Status struct {
	ModelLoaded    bool `json:"model_loaded"`
	IsListening    bool `json:"is_listening"`
	ModelAvailable bool `json:"model_available"`
}

// CaptureSource is the audio input the coordinator opens per session.
// audio.Capture satisfies this; tests substitute fakes.
type CaptureSource interface {
	Start(p *audio.Producer) error
	Stop()
	Close() error
}

// Defaults for [Config] fields left zero.
const (
	DefaultTick      = 500 * time.Millisecond
	DefaultMinWindow = time.Second
	DefaultMaxWindow = 10 * time.Second
)

// Config holds the pipeline parameters.
type Config struct {
	// ModelDir and ModelSize locate the whisper model artifact.
	ModelDir  string
	ModelSize whisper.ModelSize

	// Language is the recognition language passed to whisper.
	Language string

	// Tick is the drain interval of the transcription loop.
	Tick time.Duration

	// MinWindow is the least audio worth decoding; ticks draining less skip
	// transcription (the drained samples are not replayed).
	MinWindow time.Duration

	// MaxWindow bounds how much audio one tick may drain.
	MaxWindow time.Duration

	// Diarize routes every window through the speaker-attribution engine
	// instead of emitting plain transcripts.
	Diarize bool

	// DiarizeConfig tunes the speaker-attribution engine when Diarize is set.
	DiarizeConfig diarize.Config
}

// Option is a functional option for configuring a [Coordinator].
type Option func(*Coordinator)

// WithEmitter sets the event sink results are published to. Defaults to
// [emit.Discard].
func WithEmitter(e emit.Emitter) Option {
	return func(c *Coordinator) { c.sink = e }
}

// WithMetrics sets the metrics instance. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithEngineFactory replaces how the transcription engine is constructed.
// Intended for tests.
func WithEngineFactory(fn func() (stt.Engine, error)) Option {
	return func(c *Coordinator) { c.newEngine = fn }
}

// WithCaptureFactory replaces how the capture source is constructed.
// Intended for tests.
func WithCaptureFactory(fn func() (CaptureSource, error)) Option {
	return func(c *Coordinator) { c.newCapture = fn }
}

// WithModelCheck replaces the model availability probe. Intended for tests.
func WithModelCheck(fn func() bool) Option {
	return func(c *Coordinator) { c.modelExists = fn }
}

// Coordinator drives the capture→ring→whisper→diarize→emit pipeline. The
// whisper engine is loaded lazily on first start and retained across
// sessions; capture source, ring, and diarizer are constructed fresh per
// session. All methods are safe for concurrent use.
type Coordinator struct {
	cfg     Config
	sink    emit.Emitter
	metrics *observe.Metrics

	newEngine   func() (stt.Engine, error)
	newCapture  func() (CaptureSource, error)
	modelExists func() bool

	mu        sync.Mutex
	engine    stt.Engine
	capture   CaptureSource
	diar      *diarize.Engine
	running   bool
	sessionID string
	stop      chan struct{}
	done      chan struct{}
}

// New creates a Coordinator for the given config. Zero durations select the
// package defaults.
func New(cfg Config, opts ...Option) *Coordinator {
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.MinWindow <= 0 {
		cfg.MinWindow = DefaultMinWindow
	}
	if cfg.MaxWindow <= 0 {
		cfg.MaxWindow = DefaultMaxWindow
	}

	c := &Coordinator{
		cfg:  cfg,
		sink: emit.Discard,
	}
	c.newEngine = func() (stt.Engine, error) {
		return whisper.New(whisper.ModelPath(cfg.ModelDir, cfg.ModelSize),
			whisper.WithLanguage(cfg.Language))
	}
	c.newCapture = func() (CaptureSource, error) {
		return audio.NewCapture(audio.WithDropHook(func(dropped int) {
			c.metrics.SamplesDropped.Add(context.Background(), int64(dropped))
		}))
	}
	c.modelExists = func() bool {
		return whisper.ModelExists(cfg.ModelDir, cfg.ModelSize)
	}

	for _, o := range opts {
		o(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c
}

// Start loads the model if needed, opens a fresh capture stream, and launches
// the transcription loop. Returns ErrAlreadyRunning when a session is active
// and ErrModelNotFound when the model artifact is missing. Device errors from
// the capture backend (including [audio.ErrNoInputDevice]) are surfaced
// as-is.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}

	if c.engine == nil {
		if !c.modelExists() {
			c.mu.Unlock()
			return fmt.Errorf("%w (size %q in %q)", ErrModelNotFound, c.cfg.ModelSize, c.cfg.ModelDir)
		}
		eng, err := c.newEngine()
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("coordinator: load model: %w", err)
		}
		c.engine = eng
	}

	capture, err := c.newCapture()
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("coordinator: open capture: %w", err)
	}

	producer, consumer := audio.NewRing(audio.RingCapacity)
	if err := capture.Start(producer); err != nil {
		_ = capture.Close()
		c.mu.Unlock()
		return err
	}

	if c.cfg.Diarize {
		c.diar = diarize.New(c.engine, c.cfg.DiarizeConfig)
	} else {
		c.diar = nil
	}

	c.capture = capture
	c.sessionID = uuid.NewString()
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	c.running = true

	engine, diar := c.engine, c.diar
	stop, done := c.stop, c.done
	sessionID := c.sessionID
	c.mu.Unlock()

	c.metrics.ActiveSessions.Add(ctx, 1)
	c.emitStatus()
	slog.Info("transcription started",
		"session_id", sessionID,
		"diarize", diar != nil,
		"tick", c.cfg.Tick,
	)

	go c.run(consumer, engine, diar, stop, done)
	return nil
}

// Stop signals the transcription loop to end, closes the capture stream, and
// waits for the in-flight tick to finish. Stopping an idle coordinator is a
// no-op.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	close(c.stop)
	c.capture.Stop()
	_ = c.capture.Close()
	c.capture = nil
	c.running = false
	done := c.done
	sessionID := c.sessionID
	c.mu.Unlock()

	// The loop may be mid-transcription; wait outside the lock. Cancellation
	// is bounded by one tick plus the in-flight decode.
	<-done

	c.metrics.ActiveSessions.Add(ctx, -1)
	c.emitStatus()
	slog.Info("transcription stopped", "session_id", sessionID)
	return nil
}

// Status reports the current lifecycle projection.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		ModelLoaded:    c.engine != nil,
		IsListening:    c.running,
		ModelAvailable: c.engine != nil || c.modelExists(),
	}
}

// Speakers returns the active session's speaker roster. Empty when no
// diarizing session is running.
func (c *Coordinator) Speakers() []diarize.Speaker {
	c.mu.Lock()
	diar := c.diar
	c.mu.Unlock()
	if diar == nil {
		return nil
	}
	return diar.Speakers()
}

// run is the transcription loop. It drains the ring once per tick until the
// stop channel closes.
func (c *Coordinator) run(consumer *audio.Consumer, engine stt.Engine, diar *diarize.Engine, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.cfg.Tick)
	defer ticker.Stop()

	// Roster size seen so far, for the speaker counter.
	seen := 0

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			seen = c.tick(consumer, engine, diar, seen)
		}
	}
}

// tick drains one window and pushes it through the pipeline. Errors are
// isolated to the window: the audio is gone either way and the loop goes on.
// Returns the updated roster size.
func (c *Coordinator) tick(consumer *audio.Consumer, engine stt.Engine, diar *diarize.Engine, seen int) int {
	ctx := context.Background()

	maxSamples := int(c.cfg.MaxWindow.Seconds() * audio.TargetSampleRate)
	minSamples := int(c.cfg.MinWindow.Seconds() * audio.TargetSampleRate)

	samples := consumer.Drain(maxSamples)
	if len(samples) < minSamples {
		c.metrics.RecordWindow(ctx, "skipped")
		return seen
	}

	start := time.Now()

	if diar != nil {
		records, err := diar.ProcessAudio(samples, audio.TargetSampleRate)
		c.metrics.TranscribeDuration.Record(ctx, time.Since(start).Seconds())
		if err != nil {
			c.metrics.RecordWindow(ctx, "error")
			slog.Error("diarized transcription failed", "error", err)
			return seen
		}
		c.metrics.RecordWindow(ctx, "ok")
		if n := len(diar.Speakers()); n > seen {
			c.metrics.SpeakersDetected.Add(ctx, int64(n-seen))
			seen = n
		}
		for _, rec := range records {
			c.emit(emit.EventSpeakerTranscript, rec)
		}
		return seen
	}

	text, err := engine.Transcribe(samples)
	c.metrics.TranscribeDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		c.metrics.RecordWindow(ctx, "error")
		slog.Error("transcription failed", "error", err)
		return seen
	}
	c.metrics.RecordWindow(ctx, "ok")
	if text != "" {
		c.emit(emit.EventTranscript, text)
	}
	return seen
}

// emit publishes one event. Sink failures are logged and counted, never
// propagated.
func (c *Coordinator) emit(event string, payload any) {
	if err := c.sink.Emit(event, payload); err != nil {
		c.metrics.RecordEmitError(context.Background(), event)
		slog.Warn("event emit failed", "event", event, "error", err)
	}
}

func (c *Coordinator) emitStatus() {
	c.emit(emit.EventStatus, c.Status())
}
