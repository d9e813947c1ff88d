package audio

// DownmixResample converts interleaved multi-channel float32 PCM to mono at
// the ring's target rate and pushes the result into p.
//
// Each output sample is taken from the nearest source frame (index mapping by
// the fixed ratio target_rate/native_rate, no interpolation filter) and the
// frame's channels are mixed by arithmetic mean. The nearest-index mapping
// trades some timing jitter for zero per-sample state; speech transcription
// tolerates that at this scale, so this is a documented quality trade-off
// rather than a defect.
//
// ratio is targetRate/nativeRate, computed once per stream start. Returns the
// number of samples pushed and the number dropped because the ring was full.
func DownmixResample(p *Producer, interleaved []float32, channels int, ratio float64) (pushed, dropped int) {
	if channels <= 0 || ratio <= 0 {
		return 0, 0
	}
	frames := len(interleaved) / channels
	outSamples := int(float64(frames) * ratio)

	for i := range outSamples {
		src := int(float64(i) / ratio)
		if src >= frames {
			src = frames - 1
		}

		var sum float32
		for ch := range channels {
			sum += interleaved[src*channels+ch]
		}
		sample := sum / float32(channels)

		if p.Push(sample) {
			pushed++
		} else {
			dropped++
		}
	}
	return pushed, dropped
}

// MeanSquareEnergy returns the mean of the squared sample values, the energy
// measure used for voice-activity gating. Returns 0 for empty input.
func MeanSquareEnergy(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return sum / float64(len(samples))
}
