package subtitles

import (
	"context"
	"fmt"
	"log"
	"strings"

	"narrated-video-pipeline/media"
)

// Burner composites a caption script into the video frames
type Burner struct {
	ff *media.FFmpeg
}

// NewBurner creates a Burner
func NewBurner(ff *media.FFmpeg) *Burner {
	return &Burner{ff: ff}
}

// Burn renders the ASS script over videoFile into outFile. The audio stream
// is copied untouched.
func (b *Burner) Burn(ctx context.Context, videoFile, scriptFile, outFile string) error {
	log.Println("[subtitles] Burning captions into video...")

	err := b.ff.Run(ctx,
		"-i", videoFile,
		"-vf", "ass="+escapeFilterPath(scriptFile),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "20",
		"-pix_fmt", "yuv420p",
		"-c:a", "copy",
		"-movflags", "+faststart",
		outFile,
	)
	if err != nil {
		return fmt.Errorf("ffmpeg caption burn: %w", err)
	}

	log.Printf("[subtitles] ✅ Captions burned: %s", outFile)
	return nil
}

func escapeFilterPath(path string) string {
	// filter arguments need escaped colons, quotes and backslashes
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.ReplaceAll(path, ":", "\\:")
	path = strings.ReplaceAll(path, "'", "\\'")
	return path
}
