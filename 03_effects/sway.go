package effects

import (
	"math"

	"golang.org/x/image/math/f64"
)

// Sway is a slow periodic camera rock: rotation plus a vertical drift that
// leads the rotation by a quarter period
type Sway struct {
	MaxAngle float64 // degrees
	MaxShift float64 // pixels
	Period   float64 // seconds
}

// Transform is the sway pose for one frame
type Transform struct {
	AngleDeg float64
	OffsetY  float64
}

// At returns the pose at time t. It depends on t only.
func (s Sway) At(t float64) Transform {
	if s.Period <= 0 {
		return Transform{}
	}
	phase := 2 * math.Pi * t / s.Period
	return Transform{
		AngleDeg: s.MaxAngle * math.Sin(phase),
		OffsetY:  s.MaxShift * math.Sin(phase+math.Pi/2),
	}
}

// Matrix maps source pixels to destination pixels for a frame of the given
// size: counter-clockwise rotation about the centre, then the vertical offset.
// Horizontal position stays centred.
func (tr Transform) Matrix(width, height int) f64.Aff3 {
	rad := tr.AngleDeg * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	cx, cy := float64(width)/2, float64(height)/2
	return f64.Aff3{
		cos, sin, cx - cos*cx - sin*cy,
		-sin, cos, cy + sin*cx - cos*cy + tr.OffsetY,
	}
}
