package effects

import (
	"sort"

	"narrated-video-pipeline/types"
)

// Blink is a short dark full-frame layer with symmetric fades. Times are seconds.
type Blink struct {
	Duration float64
	Fade     float64
	Opacity  float64
}

// OpacityAt returns the layer opacity dt seconds after the blink started
func (b Blink) OpacityAt(dt float64) float64 {
	if dt < 0 || dt >= b.Duration {
		return 0
	}
	if b.Fade <= 0 {
		return b.Opacity
	}
	if dt < b.Fade {
		return b.Opacity * dt / b.Fade
	}
	if remaining := b.Duration - dt; remaining < b.Fade {
		return b.Opacity * remaining / b.Fade
	}
	return b.Opacity
}

// BlinkTrack holds one blink per peak event
type BlinkTrack struct {
	blink  Blink
	starts []float64
}

// NewBlinkTrack creates a track with a blink starting exactly at each peak
func NewBlinkTrack(b Blink, peaks []types.PeakEvent) *BlinkTrack {
	starts := make([]float64, len(peaks))
	for i, p := range peaks {
		starts[i] = p.Time
	}
	sort.Float64s(starts)
	return &BlinkTrack{blink: b, starts: starts}
}

// Len returns the number of blinks
func (bt *BlinkTrack) Len() int {
	return len(bt.starts)
}

// Factor returns the brightness multiplier at time t. Overlapping blinks are
// stacked like layers drawn on top of each other, never merged.
func (bt *BlinkTrack) Factor(t float64) float64 {
	factor := 1.0
	i := sort.SearchFloat64s(bt.starts, t-bt.blink.Duration)
	for ; i < len(bt.starts) && bt.starts[i] <= t; i++ {
		factor *= 1 - bt.blink.OpacityAt(t-bt.starts[i])
	}
	return factor
}
