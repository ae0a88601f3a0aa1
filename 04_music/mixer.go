package music

import (
	"context"
	"fmt"
	"log"

	"narrated-video-pipeline/config"
	"narrated-video-pipeline/media"
)

// Mixer lays an attenuated, looped background track under the narration
type Mixer struct {
	ff            *media.FFmpeg
	attenuationDb float64
	sampleRate    int
	channels      int
}

// NewMixer creates a Mixer decoding at the narration's rate and layout
func NewMixer(ff *media.FFmpeg, cfg config.MusicConfig, audio config.AudioConfig) *Mixer {
	return &Mixer{
		ff:            ff,
		attenuationDb: cfg.BackgroundAttenuationDb,
		sampleRate:    audio.SampleRate,
		channels:      audio.Channels,
	}
}

// Mix decodes the background, fits it to duration seconds, attenuates it and
// adds it to the narration. The narration buffer is left untouched.
func (m *Mixer) Mix(ctx context.Context, backgroundPath string, narration *media.Buffer, duration float64) (*media.Buffer, error) {
	log.Printf("[music] Mixing background under %.2fs of narration (%.1f dB)", duration, m.attenuationDb)

	bg, err := m.ff.Decode(ctx, backgroundPath, m.sampleRate, m.channels)
	if err != nil {
		return nil, fmt.Errorf("decode background: %w", err)
	}
	fitted := LoopTrim(bg, duration)
	Attenuate(fitted, m.attenuationDb)

	mixed, err := Overlay(narration, fitted)
	if err != nil {
		return nil, err
	}
	log.Printf("[music] ✅ Background %.2fs looped to %.2fs", bg.Duration(), fitted.Duration())
	return mixed, nil
}

// LoopTrim repeats buf end to end and cuts it to exactly the frame count for
// duration seconds. The result is a new buffer.
func LoopTrim(buf *media.Buffer, duration float64) *media.Buffer {
	want := buf.FramesFor(duration)
	out := media.NewBuffer(buf.SampleRate, buf.Channels, want)
	if len(buf.Samples) == 0 {
		return out
	}
	for filled := 0; filled < len(out.Samples); {
		filled += copy(out.Samples[filled:], buf.Samples)
	}
	return out
}

// Attenuate scales buf in place by db decibels
func Attenuate(buf *media.Buffer, db float64) {
	gain := float32(media.DBToGain(db))
	for i := range buf.Samples {
		buf.Samples[i] *= gain
	}
}

// Overlay adds music onto a copy of narration starting at t=0. The output is
// as long as the narration; music beyond it is ignored.
func Overlay(narration, music *media.Buffer) (*media.Buffer, error) {
	if narration.SampleRate != music.SampleRate || narration.Channels != music.Channels {
		return nil, fmt.Errorf("overlay: music is %dHz/%dch, narration %dHz/%dch",
			music.SampleRate, music.Channels, narration.SampleRate, narration.Channels)
	}
	out := narration.Clone()
	n := min(len(out.Samples), len(music.Samples))
	for i := 0; i < n; i++ {
		out.Samples[i] += music.Samples[i]
	}
	return out, nil
}
