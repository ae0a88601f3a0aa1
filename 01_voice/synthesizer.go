package voice

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"narrated-video-pipeline/media"
	"narrated-video-pipeline/types"
)

// ErrEmptyText is reported for clips whose voiceText is blank after trimming
var ErrEmptyText = errors.New("empty voiceText")

// TTS turns text into encoded audio bytes
type TTS interface {
	Speak(ctx context.Context, text string) ([]byte, error)
}

// NarrationAsset is one finished narration clip
type NarrationAsset struct {
	Index    int
	Text     string
	Path     string
	Buffer   *media.Buffer
	Duration float64
}

// ClipFailure records why a clip was dropped
type ClipFailure struct {
	Index int
	Err   error
}

// Synthesizer wraps the effect chain around a TTS engine
type Synthesizer struct {
	tts         TTS
	chain       *FXChain
	ff          *media.FFmpeg
	sampleRate  int
	channels    int
	concurrency int
}

// NewSynthesizer creates a Synthesizer. Decoded buffers use the given layout.
func NewSynthesizer(tts TTS, chain *FXChain, ff *media.FFmpeg, sampleRate, channels, concurrency int) *Synthesizer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Synthesizer{
		tts:         tts,
		chain:       chain,
		ff:          ff,
		sampleRate:  sampleRate,
		channels:    channels,
		concurrency: concurrency,
	}
}

// Synthesize produces one narration asset. The TTS call is made exactly once.
func (s *Synthesizer) Synthesize(ctx context.Context, workDir, text string, index int) (*NarrationAsset, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	audio, err := s.tts.Speak(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("tts: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("tts: empty audio response")
	}

	raw := filepath.Join(workDir, fmt.Sprintf("raw_%03d.mp3", index))
	if err := os.WriteFile(raw, audio, 0644); err != nil {
		return nil, fmt.Errorf("write raw audio: %w", err)
	}

	processed, err := s.chain.Apply(ctx, raw, workDir, index)
	if err != nil {
		return nil, err
	}

	buf, err := s.ff.Decode(ctx, processed, s.sampleRate, s.channels)
	if err != nil {
		return nil, err
	}

	// The decoded length is authoritative; a large disagreement with the
	// container means the file is damaged.
	if probed, err := s.ff.ProbeDuration(ctx, processed); err == nil && math.Abs(probed-buf.Duration()) > 0.5 {
		return nil, fmt.Errorf("duration mismatch: container %.2fs, decoded %.2fs", probed, buf.Duration())
	}

	return &NarrationAsset{
		Index:    index,
		Text:     text,
		Path:     processed,
		Buffer:   buf,
		Duration: buf.Duration(),
	}, nil
}

// SynthesizeAll runs every clip, bounded by the configured concurrency, and
// waits for all of them. Surviving assets keep input order; failed clips are
// reported separately and never abort the others.
func (s *Synthesizer) SynthesizeAll(ctx context.Context, workDir string, clips []types.ClipRequest) ([]*NarrationAsset, []ClipFailure) {
	results := make([]*NarrationAsset, len(clips))
	errs := make([]error, len(clips))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, clip := range clips {
		g.Go(func() error {
			log.Printf("[voice] Clip %d/%d: synthesizing...", i+1, len(clips))
			asset, err := s.Synthesize(gctx, workDir, clip.VoiceText, i)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = asset
			log.Printf("[voice] Clip %d: %.2fs", i, asset.Duration)
			return nil
		})
	}
	_ = g.Wait()

	var assets []*NarrationAsset
	var failures []ClipFailure
	for i := range clips {
		if errs[i] != nil {
			log.Printf("[voice] ⚠️  Clip %d skipped: %v", i, errs[i])
			failures = append(failures, ClipFailure{Index: i, Err: errs[i]})
			continue
		}
		assets = append(assets, results[i])
	}
	return assets, failures
}
