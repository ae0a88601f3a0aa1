package subtitles

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"narrated-video-pipeline/config"
	"narrated-video-pipeline/media"
	"narrated-video-pipeline/types"
)

// Generator chunks words into captions, writes the script and burns it in
type Generator struct {
	maxChars int
	style    Style
	burner   *Burner
}

// New creates a new subtitle Generator
func New(ff *media.FFmpeg, cfg *config.Config) *Generator {
	return &Generator{
		maxChars: cfg.Captions.MaxChars,
		style:    StyleFrom(cfg.Captions, cfg.Video),
		burner:   NewBurner(ff),
	}
}

// Run writes captions.ass under workDir and burns it over videoFile into outFile
func (g *Generator) Run(ctx context.Context, videoFile string, words []types.Word, workDir, outFile string) error {
	scriptFile := filepath.Join(workDir, "captions.ass")
	f, err := os.Create(scriptFile)
	if err != nil {
		return err
	}
	events, err := WriteASS(f, Chunk(words, g.maxChars), g.style)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write caption script: %w", err)
	}
	log.Printf("[subtitles] %d caption event(s) from %d word(s)", events, len(words))

	return g.burner.Burn(ctx, videoFile, scriptFile, outFile)
}
