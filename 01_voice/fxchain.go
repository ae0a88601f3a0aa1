package voice

import (
	"context"
	"fmt"
	"log"
	"math"
	"path/filepath"
	"strings"

	"narrated-video-pipeline/config"
	"narrated-video-pipeline/media"
)

// Effect is one stage of the narration effect stack, expressed as an ffmpeg audio filter
type Effect interface {
	Name() string
	Filter(sampleRate int) string
}

// Gain scales amplitude linearly (1.5 = +50%)
type Gain struct{ Factor float64 }

func (g Gain) Name() string { return "gain" }
func (g Gain) Filter(int) string {
	return fmt.Sprintf("volume=%.3f", g.Factor)
}

// BassBoost is a low-shelf boost in dB
type BassBoost struct{ GainDb float64 }

func (b BassBoost) Name() string { return "bass" }
func (b BassBoost) Filter(int) string {
	return fmt.Sprintf("bass=g=%.2f", b.GainDb)
}

// PitchShift moves pitch by a number of cents while keeping duration.
// Resampling shifts pitch and tempo together; atempo undoes the tempo change.
type PitchShift struct{ Cents float64 }

func (p PitchShift) Name() string { return "pitch" }
func (p PitchShift) Filter(sampleRate int) string {
	ratio := math.Pow(2, p.Cents/1200)
	return fmt.Sprintf("asetrate=%d,aresample=%d,atempo=%.6f",
		int(math.Round(float64(sampleRate)*ratio)), sampleRate, 1/ratio)
}

// Reverb approximates a small room with several short, decaying reflections
type Reverb struct{}

func (Reverb) Name() string { return "reverb" }
func (Reverb) Filter(int) string {
	return "aecho=0.8:0.88:40|60|80:0.3|0.25|0.2"
}

// Echo is a single audible repeat
type Echo struct {
	DelayMs int
	Decay   float64
}

func (e Echo) Name() string { return "echo" }
func (e Echo) Filter(int) string {
	return fmt.Sprintf("aecho=0.8:0.9:%d:%.2f", e.DelayMs, e.Decay)
}

// Tempo stretches duration without changing pitch (0.94 = ~6% slower)
type Tempo struct{ Factor float64 }

func (t Tempo) Name() string { return "tempo" }
func (t Tempo) Filter(int) string {
	return fmt.Sprintf("atempo=%.4f", t.Factor)
}

// FXChain applies the fixed effect stack followed by the tempo stage.
// Both passes are independent ffmpeg runs over files, so clips never share state.
type FXChain struct {
	Stack      []Effect
	Tempo      Effect
	SampleRate int
	ff         *media.FFmpeg
}

// DefaultChain builds gain, bass, pitch, reverb and echo, then tempo
func DefaultChain(ff *media.FFmpeg, cfg config.VoiceConfig, sampleRate int) *FXChain {
	return &FXChain{
		Stack: []Effect{
			Gain{Factor: 1.5},
			BassBoost{GainDb: 2},
			PitchShift{Cents: cfg.PitchCents},
			Reverb{},
			Echo{DelayMs: 250, Decay: 0.25},
		},
		Tempo:      Tempo{Factor: cfg.TempoFactor},
		SampleRate: sampleRate,
		ff:         ff,
	}
}

// StackFilter returns the comma-joined filter graph for the first pass
func (c *FXChain) StackFilter() string {
	parts := make([]string, 0, len(c.Stack))
	for _, e := range c.Stack {
		parts = append(parts, e.Filter(c.SampleRate))
	}
	return strings.Join(parts, ",")
}

// Apply runs both passes over the raw narration file and returns the finished file
func (c *FXChain) Apply(ctx context.Context, in, workDir string, index int) (string, error) {
	stacked := filepath.Join(workDir, fmt.Sprintf("fx_%03d.wav", index))
	if err := c.ff.Run(ctx,
		"-i", in,
		"-af", c.StackFilter(),
		"-ar", fmt.Sprintf("%d", c.SampleRate),
		stacked,
	); err != nil {
		return "", fmt.Errorf("effect stack: %w", err)
	}

	out := filepath.Join(workDir, fmt.Sprintf("voice_%03d.wav", index))
	if err := c.ff.Run(ctx,
		"-i", stacked,
		"-af", c.Tempo.Filter(c.SampleRate),
		"-ar", fmt.Sprintf("%d", c.SampleRate),
		out,
	); err != nil {
		return "", fmt.Errorf("%s stage: %w", c.Tempo.Name(), err)
	}

	log.Printf("[voice] Clip %d: effects applied → %s", index, filepath.Base(out))
	return out, nil
}
