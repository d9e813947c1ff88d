// Package audio provides microphone capture and the bounded sample queue that
// bridges the hardware callback thread and the transcription loop.
//
// The two primary pieces are:
//
//   - [NewRing] — a single-producer/single-consumer float32 sample ring,
//     split once at construction into a [Producer] and a [Consumer].
//   - [Capture] — owns the default input device (via miniaudio), converts
//     whatever format the device delivers to mono 16 kHz float samples, and
//     pushes them into the ring from the OS audio callback.
//
// The callback never blocks and never returns errors to the device; problems
// on the hot path are reported out-of-band through slog and the optional drop
// hook.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// ErrNoInputDevice is returned by [Capture.Start] when the host has no usable
// audio input device.
var ErrNoInputDevice = errors.New("audio: no input device available")

// CaptureOption is a functional option for configuring a [Capture].
type CaptureOption func(*Capture)

// WithDropHook registers fn to be called (from the audio callback) with the
// number of samples dropped whenever the ring is full. fn must not block.
func WithDropHook(fn func(dropped int)) CaptureOption {
	return func(c *Capture) { c.onDrop = fn }
}

// Capture owns the system's default audio input device. It negotiates the
// device's native format, downmixes and rate-converts every delivered frame
// to mono [TargetSampleRate] samples, and pushes them into a ring producer.
//
// A Capture is not safe for concurrent use; the coordinator serialises
// Start/Stop under its own lifecycle lock.
type Capture struct {
	mctx    *malgo.AllocatedContext
	dev     *malgo.Device
	running atomic.Bool
	onDrop  func(int)
}

// NewCapture initialises the audio backend. The returned Capture holds OS
// resources; call Close when it is no longer needed.
func NewCapture(opts ...CaptureOption) (*Capture, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		slog.Debug("miniaudio", "message", message)
	})
	if err != nil {
		return nil, fmt.Errorf("audio: init context: %w", err)
	}
	c := &Capture{mctx: mctx}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Start binds to the default input device and begins pushing converted
// samples into p. It fails when no input device exists or the device cannot
// be opened. Start must not be called on a capture that is already running.
func (c *Capture) Start(p *Producer) error {
	if c.dev != nil {
		return errors.New("audio: capture already started")
	}

	infos, err := c.mctx.Devices(malgo.Capture)
	if err != nil {
		return fmt.Errorf("audio: enumerate input devices: %w", err)
	}
	if len(infos) == 0 {
		return ErrNoInputDevice
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatF32
	// Zero values keep the device's native channel count and sample rate; the
	// callback owns the conversion to mono 16 kHz.
	cfg.Capture.Channels = 0
	cfg.SampleRate = 0
	cfg.Alsa.NoMMap = 1

	c.running.Store(true)

	// State captured by the callback closure. The scratch buffer is reused
	// across callbacks; it only grows, and only the audio thread touches it.
	var (
		scratch  []float32
		channels int
		ratio    float64
	)

	dev, err := malgo.InitDevice(c.mctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			if !c.running.Load() {
				return
			}
			n := int(frameCount) * channels
			if cap(scratch) < n {
				scratch = make([]float32, n)
			}
			scratch = scratch[:n]
			for i := range n {
				scratch[i] = math.Float32frombits(binary.LittleEndian.Uint32(input[i*4:]))
			}
			_, dropped := DownmixResample(p, scratch, channels, ratio)
			if dropped > 0 && c.onDrop != nil {
				c.onDrop(dropped)
			}
		},
	})
	if err != nil {
		c.running.Store(false)
		return fmt.Errorf("audio: open input device: %w", err)
	}

	// Ratio is fixed for the lifetime of the stream.
	channels = int(dev.CaptureChannels())
	if channels <= 0 {
		channels = 1
	}
	nativeRate := int(dev.SampleRate())
	if nativeRate <= 0 {
		nativeRate = TargetSampleRate
	}
	ratio = float64(TargetSampleRate) / float64(nativeRate)

	if err := dev.Start(); err != nil {
		c.running.Store(false)
		dev.Uninit()
		return fmt.Errorf("audio: start input stream: %w", err)
	}
	c.dev = dev

	slog.Info("audio capture started",
		"native_rate", nativeRate,
		"channels", channels,
		"target_rate", TargetSampleRate,
	)
	return nil
}

// Stop tears down the input stream. It is idempotent; a stale hardware
// callback that fires after Stop observes the cleared running flag and
// no-ops.
func (c *Capture) Stop() {
	c.running.Store(false)
	if c.dev != nil {
		c.dev.Uninit()
		c.dev = nil
		slog.Info("audio capture stopped")
	}
}

// Close stops any active stream and releases the audio backend.
func (c *Capture) Close() error {
	c.Stop()
	if c.mctx != nil {
		if err := c.mctx.Uninit(); err != nil {
			return fmt.Errorf("audio: uninit context: %w", err)
		}
		c.mctx.Free()
		c.mctx = nil
	}
	return nil
}
