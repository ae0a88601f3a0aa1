package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	voice "narrated-video-pipeline/01_voice"
	timeline "narrated-video-pipeline/02_timeline"
	effects "narrated-video-pipeline/03_effects"
	music "narrated-video-pipeline/04_music"
	render "narrated-video-pipeline/05_render"
	subtitles "narrated-video-pipeline/06_subtitles"
	upload "narrated-video-pipeline/07_upload"
	"narrated-video-pipeline/config"
	"narrated-video-pipeline/fetch"
	"narrated-video-pipeline/media"
	"narrated-video-pipeline/types"
)

// Deps are the external collaborators of a job
type Deps struct {
	TTS         voice.TTS
	Downloader  fetch.Downloader
	Transcriber subtitles.Transcriber
	Storage     upload.Storage
}

// Pipeline turns one job request into a published video
type Pipeline struct {
	cfg  *config.Config
	deps Deps
	ff   *media.FFmpeg

	synth     *voice.Synthesizer
	assembler *timeline.Assembler
	effects   *effects.Engine
	mixer     *music.Mixer
	renderer  *render.Renderer
	captions  *subtitles.Generator
}

// New wires every stage from cfg around deps
func New(cfg *config.Config, deps Deps) *Pipeline {
	ff := media.New(cfg.FFmpeg.Binary, cfg.FFmpeg.ProbeBinary)
	chain := voice.DefaultChain(ff, cfg.Voice, cfg.Audio.SampleRate)
	return &Pipeline{
		cfg:       cfg,
		deps:      deps,
		ff:        ff,
		synth:     voice.NewSynthesizer(deps.TTS, chain, ff, cfg.Audio.SampleRate, cfg.Audio.Channels, cfg.Voice.Concurrency),
		assembler: timeline.NewAssembler(ff, cfg.Video),
		effects:   effects.NewEngine(ff, cfg.Effects, cfg.Video),
		mixer:     music.NewMixer(ff, cfg.Music, cfg.Audio),
		renderer:  render.New(ff),
		captions:  subtitles.New(ff, cfg),
	}
}

// Validate rejects requests that cannot produce a video before any work starts
func Validate(req *types.JobRequest) error {
	var missing []string
	if strings.TrimSpace(req.ImageURL) == "" {
		missing = append(missing, "image_url")
	}
	if strings.TrimSpace(req.BackgroundURL) == "" {
		missing = append(missing, "background_url")
	}
	if len(req.Clips) == 0 {
		missing = append(missing, "clips")
	}
	if len(missing) > 0 {
		return fail(MissingInput, nil, "missing %s", strings.Join(missing, ", "))
	}

	for _, c := range req.Clips {
		if strings.TrimSpace(c.VoiceText) != "" {
			return nil
		}
	}
	return fail(NoValidClips, nil, "every voiceText is empty")
}

// Run executes one job end to end. The work directory is removed on every
// exit path; a video that fails to upload is kept under paths.output.
func (p *Pipeline) Run(ctx context.Context, req *types.JobRequest) (*types.JobResult, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	jobID := uuid.NewString()[:8]
	started := time.Now()
	log.Printf("🎬 Job %s starting: %d clip(s)", jobID, len(req.Clips))

	workDir, err := os.MkdirTemp(p.cfg.Paths.WorkRoot, "job-"+jobID+"-")
	if err != nil {
		return nil, fail(RenderFailure, err, "create work dir")
	}
	defer os.RemoveAll(workDir)

	// ━━━ Inputs ━━━
	imagePath := filepath.Join(workDir, "image"+extOf(req.ImageURL, ".jpg"))
	if err := p.deps.Downloader.Download(ctx, req.ImageURL, imagePath); err != nil {
		return nil, fail(DownloadFailure, err, "image_url could not be fetched")
	}
	backgroundPath := filepath.Join(workDir, "background"+extOf(req.BackgroundURL, ".mp3"))
	if err := p.deps.Downloader.Download(ctx, req.BackgroundURL, backgroundPath); err != nil {
		return nil, fail(DownloadFailure, err, "background_url could not be fetched")
	}

	// ━━━ Voice ━━━
	assets, failures := p.synth.SynthesizeAll(ctx, workDir, req.Clips)
	var cause error
	for _, f := range failures {
		// per-clip failures are swallowed; only the last survives as the cause
		cause = fail(SynthesisFailure, f.Err, "clip %d skipped", f.Index)
	}
	if len(assets) == 0 {
		return nil, fail(NoValidClips, cause, "all %d clip(s) failed synthesis", len(req.Clips))
	}
	log.Printf("[%s] %d/%d clip(s) synthesized", jobID, len(assets), len(req.Clips))

	// ━━━ Timeline ━━━
	assembled, err := p.assembler.Assemble(ctx, assets, imagePath, workDir)
	if err != nil {
		if errors.Is(err, timeline.ErrNoValidClips) {
			return nil, fail(NoValidClips, err, "no clips to place")
		}
		return nil, fail(RenderFailure, err, "timeline assembly failed")
	}
	tl := assembled.Timeline

	// ━━━ Effects + music ━━━
	effected := filepath.Join(workDir, "effected.mp4")
	var soundtrack *media.Buffer
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cfg := p.cfg.Effects
		peaks := effects.DetectPeaks(assembled.Narration, cfg.PeakFrameMs, cfg.PeakThresholdDb)
		log.Printf("[%s] %d peak(s) above %.0f dBFS", jobID, len(peaks), cfg.PeakThresholdDb)
		if err := p.effects.Apply(gctx, assembled.Video, effected, tl, peaks); err != nil {
			return fmt.Errorf("effects: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		mixed, err := p.mixer.Mix(gctx, backgroundPath, assembled.Narration, tl.TotalDuration)
		if err != nil {
			return fmt.Errorf("music: %w", err)
		}
		soundtrack = mixed
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fail(RenderFailure, err, "effects or music stage failed")
	}

	// ━━━ Render ━━━
	rendered, err := p.renderer.Run(ctx, effected, soundtrack, workDir)
	if err != nil {
		return nil, fail(RenderFailure, err, "audio/video mux failed")
	}

	// ━━━ Captions ━━━
	narrationFile := filepath.Join(workDir, "narration.wav")
	if err := p.ff.Encode(ctx, assembled.Narration, narrationFile, "-c:a", "pcm_s16le"); err != nil {
		return nil, fail(RenderFailure, err, "write narration track")
	}
	words, err := p.deps.Transcriber.Transcribe(ctx, narrationFile)
	if err != nil {
		return nil, fail(RenderFailure, err, "transcription failed")
	}
	final := filepath.Join(workDir, jobID+".mp4")
	if err := p.captions.Run(ctx, rendered, words, workDir, final); err != nil {
		return nil, fail(RenderFailure, err, "caption burn-in failed")
	}

	// ━━━ Upload ━━━
	videoURL, err := p.deps.Storage.Upload(ctx, final)
	if err != nil {
		kept := filepath.Join(p.cfg.Paths.Output, jobID+".mp4")
		if keepErr := keepFile(final, kept); keepErr != nil {
			log.Printf("[%s] ❌ Upload failed and the video could not be kept: %v", jobID, keepErr)
			return nil, fail(UploadFailure, err, "upload rejected; finished video lost")
		}
		log.Printf("[%s] ⚠️  Upload failed; finished video kept at %s", jobID, kept)
		return nil, fail(UploadFailure, err, "upload rejected; finished video kept at %s", kept)
	}

	if _, err := upload.LogUpload(upload.Record{
		JobID:    jobID,
		VideoURL: videoURL,
		Backend:  p.cfg.Storage.Backend,
		Clips:    len(assets),
		Duration: tl.TotalDuration,
	}, p.cfg.Paths.Logs); err != nil {
		log.Printf("[%s] Warning: upload log not written: %v", jobID, err)
	}

	log.Printf("✅ Job %s complete in %s: %s", jobID, time.Since(started).Round(time.Second), videoURL)
	return &types.JobResult{VideoURL: videoURL}, nil
}

// extOf returns the file extension in a URL path, or def when it has none
func extOf(rawURL, def string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return def
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" || len(ext) > 5 {
		return def
	}
	return ext
}

// keepFile moves src to dst, copying when a rename crosses filesystems
func keepFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
