package effects

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"narrated-video-pipeline/config"
	"narrated-video-pipeline/media"
	"narrated-video-pipeline/types"
)

// Engine applies sway and blink to every frame of the assembled video
type Engine struct {
	ff      *media.FFmpeg
	sway    Sway
	blink   Blink
	fps     int
	workers int
}

// NewEngine creates an Engine from the effect and video settings
func NewEngine(ff *media.FFmpeg, cfg config.EffectsConfig, video config.VideoConfig) *Engine {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		ff: ff,
		sway: Sway{
			MaxAngle: cfg.SwayMaxAngle,
			MaxShift: cfg.SwayMaxShift,
			Period:   cfg.SwayPeriodSec,
		},
		blink: Blink{
			Duration: float64(cfg.BlinkDurationMs) / 1000,
			Fade:     float64(cfg.BlinkFadeMs) / 1000,
			Opacity:  cfg.BlinkOpacity,
		},
		fps:     video.FPS,
		workers: workers,
	}
}

// Apply decodes in to raw RGBA frames, renders each frame from its timestamp
// alone and re-encodes to out. Frames in a batch render in parallel and are
// written back in order.
func (e *Engine) Apply(ctx context.Context, in, out string, tl *types.MasterTimeline, peaks []types.PeakEvent) error {
	width, height, err := e.ff.ProbeVideoSize(ctx, in)
	if err != nil {
		return err
	}
	track := NewBlinkTrack(e.blink, peaks)
	log.Printf("[effects] Rendering %dx%d @ %dfps, %d blink(s), %d worker(s)",
		width, height, e.fps, track.Len(), e.workers)
	started := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	decoder := exec.CommandContext(ctx, e.ff.Binary,
		"-hide_banner", "-loglevel", "error",
		"-i", in,
		"-t", fmt.Sprintf("%.3f", tl.TotalDuration),
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-r", strconv.Itoa(e.fps),
		"-",
	)
	var decErr bytes.Buffer
	decoder.Stderr = &decErr
	frames, err := decoder.StdoutPipe()
	if err != nil {
		return err
	}

	encoder := exec.CommandContext(ctx, e.ff.Binary,
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", strconv.Itoa(e.fps),
		"-i", "-",
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "20",
		"-pix_fmt", "yuv420p",
		"-an",
		out,
	)
	var encErr bytes.Buffer
	encoder.Stderr = &encErr
	sink, err := encoder.StdinPipe()
	if err != nil {
		return err
	}

	if err := startPipeline(decoder, encoder); err != nil {
		return err
	}

	count, pumpErr := e.pump(ctx, frames, sink, width, height, tl, track)
	sink.Close()
	if pumpErr != nil {
		cancel()
	}
	decWait := decoder.Wait()
	encWait := encoder.Wait()

	switch {
	case pumpErr != nil:
		return fmt.Errorf("render frames: %w", pumpErr)
	case decWait != nil:
		return fmt.Errorf("decode frames: %w: %s", decWait, strings.TrimSpace(decErr.String()))
	case encWait != nil:
		return fmt.Errorf("encode frames: %w: %s", encWait, strings.TrimSpace(encErr.String()))
	}

	log.Printf("[effects] ✅ %d frames in %s", count, time.Since(started).Round(time.Millisecond))
	return nil
}

// startPipeline starts the decoder, then the encoder. When the encoder cannot
// start, the decoder is killed and reaped before returning.
func startPipeline(decoder, encoder *exec.Cmd) error {
	if err := decoder.Start(); err != nil {
		return fmt.Errorf("start decoder: %w", err)
	}
	if err := encoder.Start(); err != nil {
		_ = decoder.Process.Kill()
		_ = decoder.Wait()
		return fmt.Errorf("start encoder: %w", err)
	}
	return nil
}

func (e *Engine) pump(ctx context.Context, r io.Reader, w io.Writer, width, height int, tl *types.MasterTimeline, track *BlinkTrack) (int, error) {
	frameSize := width * height * 4
	reader := bufio.NewReaderSize(r, frameSize)
	writer := bufio.NewWriterSize(w, frameSize)

	srcs := make([]*image.RGBA, e.workers)
	dsts := make([]*image.RGBA, e.workers)
	for i := range srcs {
		srcs[i] = image.NewRGBA(image.Rect(0, 0, width, height))
		dsts[i] = image.NewRGBA(image.Rect(0, 0, width, height))
	}

	index, finished := 0, 0
	for {
		n := 0
		for n < e.workers {
			if _, err := io.ReadFull(reader, srcs[n].Pix); err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
					break
				}
				return index, err
			}
			n++
		}
		if n == 0 {
			return index, writer.Flush()
		}

		g, _ := errgroup.WithContext(ctx)
		for i := 0; i < n; i++ {
			t := float64(index+i) / float64(e.fps)
			g.Go(func() error {
				RenderFrame(dsts[i], srcs[i], e.sway.At(t), track.Factor(t))
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return index, err
		}

		for i := 0; i < n; i++ {
			if _, err := writer.Write(dsts[i].Pix); err != nil {
				return index, err
			}
		}
		index += n

		// clips before the one holding the last written frame are complete
		for current := tl.EntryAt(float64(index-1) / float64(e.fps)); finished < current; finished++ {
			log.Printf("[effects] Clip %d/%d rendered", finished+1, len(tl.Entries))
		}

		if n < e.workers {
			return index, writer.Flush()
		}
		if err := ctx.Err(); err != nil {
			return index, err
		}
	}
}

// RenderFrame draws src onto dst under the sway pose, then darkens by the
// blink factor. Areas uncovered by the rotation are black.
func RenderFrame(dst, src *image.RGBA, pose Transform, factor float64) {
	clear(dst.Pix)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	b := src.Bounds()
	draw.BiLinear.Transform(dst, pose.Matrix(b.Dx(), b.Dy()), src, b, draw.Src, nil)
	Darken(dst, factor)
}

// Darken scales RGB by factor, leaving alpha untouched
func Darken(img *image.RGBA, factor float64) {
	if factor >= 1 {
		return
	}
	if factor < 0 {
		factor = 0
	}
	scale := uint32(factor * 256)
	pix := img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i] = uint8(uint32(pix[i]) * scale >> 8)
		pix[i+1] = uint8(uint32(pix[i+1]) * scale >> 8)
		pix[i+2] = uint8(uint32(pix[i+2]) * scale >> 8)
	}
}
