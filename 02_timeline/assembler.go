package timeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	voice "narrated-video-pipeline/01_voice"
	"narrated-video-pipeline/config"
	"narrated-video-pipeline/media"
	"narrated-video-pipeline/types"
)

// Assembler builds the master timeline and its matching video and narration tracks
type Assembler struct {
	ff     *media.FFmpeg
	width  int
	height int
	fps    int
	fade   float64
}

// Result holds everything downstream stages read. None of it changes after Assemble returns.
type Result struct {
	Timeline  *types.MasterTimeline
	Narration *media.Buffer
	Video     string
}

// NewAssembler creates a new Assembler
func NewAssembler(ff *media.FFmpeg, cfg config.VideoConfig) *Assembler {
	return &Assembler{
		ff:     ff,
		width:  cfg.Width,
		height: cfg.Height,
		fps:    cfg.FPS,
		fade:   cfg.ClipFadeSec,
	}
}

// Assemble places every clip, renders one still-image clip per entry and joins
// them into one silent video whose length is the timeline total
func (a *Assembler) Assemble(ctx context.Context, assets []*voice.NarrationAsset, imagePath, workDir string) (*Result, error) {
	tl, err := Place(assets)
	if err != nil {
		return nil, err
	}
	log.Printf("[timeline] %d clip(s), total %.2fs", len(tl.Entries), tl.TotalDuration)

	buffers := make([]*media.Buffer, 0, len(assets))
	for _, asset := range assets {
		buffers = append(buffers, asset.Buffer)
	}
	narration, err := media.Concat(buffers...)
	if err != nil {
		return nil, fmt.Errorf("narration track: %w", err)
	}

	for i := range tl.Entries {
		entry := &tl.Entries[i]
		clip, err := a.prepareStill(ctx, imagePath, *entry, workDir)
		if err != nil {
			return nil, fmt.Errorf("clip %d visual: %w", entry.Index, err)
		}
		entry.VisualClip = clip
	}

	video, err := a.concatenateVisuals(ctx, tl, workDir)
	if err != nil {
		return nil, fmt.Errorf("concatenate visuals: %w", err)
	}

	return &Result{Timeline: tl, Narration: narration, Video: video}, nil
}

// FadeFor returns the fade length for a clip, shortened so fade in and out never overlap
func FadeFor(fade, duration float64) float64 {
	if fade*2 > duration {
		return duration / 2
	}
	return fade
}

// prepareStill holds the shared image for the entry's frame span with its own fade
func (a *Assembler) prepareStill(ctx context.Context, imgPath string, entry types.TimelineEntry, workDir string) (string, error) {
	outFile := filepath.Join(workDir, fmt.Sprintf("still_%03d.mp4", entry.Index))
	frames := max(FrameCount(entry, a.fps), 1)
	length := float64(frames) / float64(a.fps)
	fade := FadeFor(a.fade, length)

	filter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setsar=1,fps=%d",
		a.width, a.height, a.width, a.height, a.fps,
	)
	if fade > 0 {
		filter += fmt.Sprintf(",fade=t=in:st=0:d=%.3f,fade=t=out:st=%.3f:d=%.3f",
			fade, length-fade, fade)
	}

	err := a.ff.Run(ctx,
		"-loop", "1",
		"-i", imgPath,
		"-vf", filter,
		"-frames:v", strconv.Itoa(frames),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-pix_fmt", "yuv420p",
		"-an",
		outFile,
	)
	if err != nil {
		return "", err
	}
	return outFile, nil
}

// concatenateVisuals joins all entry clips in timeline order
func (a *Assembler) concatenateVisuals(ctx context.Context, tl *types.MasterTimeline, workDir string) (string, error) {
	listFile := filepath.Join(workDir, "visuals_concat.txt")
	lines := make([]string, 0, len(tl.Entries))
	for _, entry := range tl.Entries {
		lines = append(lines, fmt.Sprintf("file '%s'", entry.VisualClip))
	}
	if err := os.WriteFile(listFile, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return "", err
	}

	outFile := filepath.Join(workDir, "visuals_raw.mp4")
	err := a.ff.Run(ctx,
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-r", fmt.Sprintf("%d", a.fps),
		"-pix_fmt", "yuv420p",
		"-an",
		outFile,
	)
	if err != nil {
		return "", err
	}
	return outFile, nil
}
