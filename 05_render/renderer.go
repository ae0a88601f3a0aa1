package render

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"narrated-video-pipeline/media"
)

// Renderer muxes the effected video with the mixed soundtrack
type Renderer struct {
	ff *media.FFmpeg
}

// New creates a new Renderer
func New(ff *media.FFmpeg) *Renderer {
	return &Renderer{ff: ff}
}

// Run writes the soundtrack to disk and combines it with the silent video
// into rendered.mp4 under workDir.
func (r *Renderer) Run(ctx context.Context, video string, soundtrack *media.Buffer, workDir string) (string, error) {
	log.Println("[render] Starting final video assembly...")

	audioFile := filepath.Join(workDir, "soundtrack.wav")
	if err := r.ff.Encode(ctx, soundtrack, audioFile, "-c:a", "pcm_s16le"); err != nil {
		return "", fmt.Errorf("write soundtrack: %w", err)
	}

	finalVideo, err := r.combineVideoAudio(ctx, video, audioFile, workDir)
	if err != nil {
		return "", fmt.Errorf("combine video+audio: %w", err)
	}

	log.Printf("[render] ✅ Rendered %s (%.2fs of audio)", finalVideo, soundtrack.Duration())
	return finalVideo, nil
}

func (r *Renderer) combineVideoAudio(ctx context.Context, videoFile, audioFile, workDir string) (string, error) {
	log.Println("[render] Combining video + audio...")

	outFile := filepath.Join(workDir, "rendered.mp4")
	err := r.ff.Run(ctx,
		"-i", videoFile,
		"-i", audioFile,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-movflags", "+faststart",
		outFile,
	)
	if err != nil {
		return "", err
	}
	return outFile, nil
}
