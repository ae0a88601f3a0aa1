package media

import (
	"fmt"
	"math"
)

// Buffer is decoded interleaved float32 PCM at full scale 1.0
type Buffer struct {
	SampleRate int
	Channels   int
	Samples    []float32
}

// NewBuffer allocates a silent buffer holding the given number of frames
func NewBuffer(sampleRate, channels, frames int) *Buffer {
	return &Buffer{
		SampleRate: sampleRate,
		Channels:   channels,
		Samples:    make([]float32, frames*channels),
	}
}

// Frames returns the number of sample frames (one sample per channel)
func (b *Buffer) Frames() int {
	if b.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the buffer length in seconds
func (b *Buffer) Duration() float64 {
	if b.SampleRate == 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// FramesFor converts seconds to a whole number of frames at this rate
func (b *Buffer) FramesFor(seconds float64) int {
	return int(math.Round(seconds * float64(b.SampleRate)))
}

// Slice returns frames [from, to) sharing the underlying samples
func (b *Buffer) Slice(from, to int) *Buffer {
	n := b.Frames()
	if from < 0 {
		from = 0
	}
	if to > n {
		to = n
	}
	if from > to {
		from = to
	}
	return &Buffer{
		SampleRate: b.SampleRate,
		Channels:   b.Channels,
		Samples:    b.Samples[from*b.Channels : to*b.Channels],
	}
}

// Clone returns a deep copy
func (b *Buffer) Clone() *Buffer {
	samples := make([]float32, len(b.Samples))
	copy(samples, b.Samples)
	return &Buffer{SampleRate: b.SampleRate, Channels: b.Channels, Samples: samples}
}

// Concat joins buffers end to end. All inputs must share rate and channel layout.
func Concat(bufs ...*Buffer) (*Buffer, error) {
	if len(bufs) == 0 {
		return nil, fmt.Errorf("concat: no buffers")
	}
	first := bufs[0]
	total := 0
	for i, b := range bufs {
		if b.SampleRate != first.SampleRate || b.Channels != first.Channels {
			return nil, fmt.Errorf("concat: buffer %d is %dHz/%dch, want %dHz/%dch",
				i, b.SampleRate, b.Channels, first.SampleRate, first.Channels)
		}
		total += len(b.Samples)
	}
	out := &Buffer{
		SampleRate: first.SampleRate,
		Channels:   first.Channels,
		Samples:    make([]float32, 0, total),
	}
	for _, b := range bufs {
		out.Samples = append(out.Samples, b.Samples...)
	}
	return out, nil
}

// RMSdBFS returns the RMS loudness of the buffer relative to full scale.
// Silence reports -Inf.
func (b *Buffer) RMSdBFS() float64 {
	if len(b.Samples) == 0 {
		return math.Inf(-1)
	}
	var sum float64
	for _, s := range b.Samples {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(b.Samples)))
	if rms == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms)
}

// DBToGain converts a decibel offset to a linear amplitude factor
func DBToGain(db float64) float64 {
	return math.Pow(10, db/20)
}
