package audio

import "sync/atomic"

// TargetSampleRate is the fixed sample rate (Hz) of every sample entering the
// ring. The capture layer downmixes and rate-converts all device formats to
// this rate before pushing.
const TargetSampleRate = 16000

// RingSeconds is the ring capacity expressed in seconds of audio.
const RingSeconds = 30

// RingCapacity is the default ring capacity in samples.
const RingCapacity = TargetSampleRate * RingSeconds

// ring is a bounded single-producer/single-consumer queue of float32 PCM
// samples. Exactly one goroutine may push (the capture callback) and exactly
// one may drain (the transcription loop); under that discipline the atomic
// head/tail counters are the only synchronisation needed.
//
// Overflow is a normal condition: when the ring is full, Push drops the new
// sample rather than blocking the audio thread.
type ring struct {
	buf []float32

	// head is the next read position, written only by the consumer.
	// tail is the next write position, written only by the producer.
	// Both increase monotonically; buffer indices are taken modulo capacity.
	head atomic.Uint64
	tail atomic.Uint64
}

// Producer is the write half of a sample ring. It must be used by at most one
// goroutine at a time.
type Producer struct {
	r *ring
}

// Consumer is the read half of a sample ring. It must be used by at most one
// goroutine at a time.
type Consumer struct {
	r *ring
}

// NewRing creates a sample ring with the given capacity and splits it into
// its producer and consumer halves. The split happens exactly once; the ring
// itself is not reachable afterwards.
func NewRing(capacity int) (*Producer, *Consumer) {
	if capacity <= 0 {
		capacity = RingCapacity
	}
	r := &ring{buf: make([]float32, capacity)}
	return &Producer{r: r}, &Consumer{r: r}
}

// Push appends one sample to the ring. It returns false (and drops the
// sample) when the ring is full. Push never blocks and never allocates.
func (p *Producer) Push(sample float32) bool {
	r := p.r
	tail := r.tail.Load()
	if tail-r.head.Load() >= uint64(len(r.buf)) {
		return false
	}
	r.buf[tail%uint64(len(r.buf))] = sample
	r.tail.Store(tail + 1)
	return true
}

// Free reports how many samples can currently be pushed without dropping.
func (p *Producer) Free() int {
	r := p.r
	return len(r.buf) - int(r.tail.Load()-r.head.Load())
}

// Drain removes and returns up to max of the oldest buffered samples in FIFO
// order. It returns fewer when the ring holds less, and nil when it is empty.
func (c *Consumer) Drain(max int) []float32 {
	r := c.r
	head := r.head.Load()
	avail := int(r.tail.Load() - head)
	if avail == 0 || max <= 0 {
		return nil
	}
	n := min(avail, max)

	out := make([]float32, n)
	capacity := uint64(len(r.buf))
	start := head % capacity
	first := min(uint64(n), capacity-start)
	copy(out, r.buf[start:start+first])
	copy(out[first:], r.buf[:uint64(n)-first])

	r.head.Store(head + uint64(n))
	return out
}

// Len reports how many samples are currently buffered.
func (c *Consumer) Len() int {
	r := c.r
	return int(r.tail.Load() - r.head.Load())
}

// Clear discards every sample buffered at the time of the call. Samples
// pushed concurrently by the producer may survive.
func (c *Consumer) Clear() {
	c.r.head.Store(c.r.tail.Load())
}
