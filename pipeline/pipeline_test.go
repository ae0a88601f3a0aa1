package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"narrated-video-pipeline/config"
	"narrated-video-pipeline/types"
)

type countingTTS struct {
	calls atomic.Int32
	err   error
}

func (c *countingTTS) Speak(ctx context.Context, text string) ([]byte, error) {
	c.calls.Add(1)
	return nil, c.err
}

type fakeDownloader struct {
	calls atomic.Int32
	err   error
}

func (f *fakeDownloader) Download(ctx context.Context, url, outFile string) error {
	f.calls.Add(1)
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outFile, []byte("asset"), 0644)
}

func testPipeline(t *testing.T, tts *countingTTS, dl *fakeDownloader) (*Pipeline, string) {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.WorkRoot = t.TempDir()
	cfg.Paths.Output = filepath.Join(t.TempDir(), "output")
	cfg.Paths.Logs = filepath.Join(t.TempDir(), "logs")
	return New(cfg, Deps{TTS: tts, Downloader: dl}), cfg.Paths.WorkRoot
}

func kindOf(t *testing.T, err error) Kind {
	t.Helper()
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("error %v is not a *pipeline.Error", err)
	}
	return perr.Kind
}

func TestRunMissingInputDoesNoWork(t *testing.T) {
	tests := []struct {
		name string
		req  types.JobRequest
	}{
		{"empty clips", types.JobRequest{ImageURL: "http://x/i.png", BackgroundURL: "http://x/b.mp3", Clips: []types.ClipRequest{}}},
		{"nil clips", types.JobRequest{ImageURL: "http://x/i.png", BackgroundURL: "http://x/b.mp3"}},
		{"no image", types.JobRequest{BackgroundURL: "http://x/b.mp3", Clips: []types.ClipRequest{{VoiceText: "hi"}}}},
		{"no background", types.JobRequest{ImageURL: "http://x/i.png", Clips: []types.ClipRequest{{VoiceText: "hi"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tts, dl := &countingTTS{}, &fakeDownloader{}
			p, _ := testPipeline(t, tts, dl)

			_, err := p.Run(context.Background(), &tt.req)
			if got := kindOf(t, err); got != MissingInput {
				t.Errorf("kind = %s, want MissingInput", got)
			}
			if dl.calls.Load() != 0 || tts.calls.Load() != 0 {
				t.Errorf("downloads = %d, tts calls = %d, want 0 and 0", dl.calls.Load(), tts.calls.Load())
			}
		})
	}
}

func TestRunBlankTextsAreNoValidClips(t *testing.T) {
	tts, dl := &countingTTS{}, &fakeDownloader{}
	p, _ := testPipeline(t, tts, dl)

	req := &types.JobRequest{
		ImageURL:      "http://x/i.png",
		BackgroundURL: "http://x/b.mp3",
		Clips:         []types.ClipRequest{{VoiceText: ""}, {VoiceText: "  \n\t"}},
	}
	_, err := p.Run(context.Background(), req)
	if got := kindOf(t, err); got != NoValidClips {
		t.Errorf("kind = %s, want NoValidClips", got)
	}
	if dl.calls.Load() != 0 || tts.calls.Load() != 0 {
		t.Errorf("downloads = %d, tts calls = %d, want 0 and 0", dl.calls.Load(), tts.calls.Load())
	}
}

func TestRunDownloadFailureStopsBeforeSynthesis(t *testing.T) {
	tts, dl := &countingTTS{}, &fakeDownloader{err: errors.New("HTTP 404")}
	p, root := testPipeline(t, tts, dl)

	req := &types.JobRequest{
		ImageURL:      "http://x/i.png",
		BackgroundURL: "http://x/b.mp3",
		Clips:         []types.ClipRequest{{VoiceText: "hello"}},
	}
	_, err := p.Run(context.Background(), req)
	if got := kindOf(t, err); got != DownloadFailure {
		t.Errorf("kind = %s, want DownloadFailure", got)
	}
	if tts.calls.Load() != 0 {
		t.Errorf("tts calls = %d, want 0", tts.calls.Load())
	}
	assertEmptyDir(t, root)
}

func TestRunAllSynthesisFailing(t *testing.T) {
	tts, dl := &countingTTS{err: errors.New("elevenlabs error: 500")}, &fakeDownloader{}
	p, root := testPipeline(t, tts, dl)

	req := &types.JobRequest{
		ImageURL:      "http://x/i.png",
		BackgroundURL: "http://x/b.mp3",
		Clips: []types.ClipRequest{
			{VoiceText: "one"}, {VoiceText: ""}, {VoiceText: "two"}, {VoiceText: "three"},
		},
	}
	_, err := p.Run(context.Background(), req)
	if got := kindOf(t, err); got != NoValidClips {
		t.Errorf("kind = %s, want NoValidClips", got)
	}
	var perr *Error
	errors.As(err, &perr)
	clipErr, ok := perr.Err.(*Error)
	if !ok || clipErr.Kind != SynthesisFailure || clipErr.Msg != "clip 3 skipped" {
		t.Errorf("cause = %v, want SynthesisFailure for clip 3", perr.Err)
	}
	if got := tts.calls.Load(); got != 3 {
		t.Errorf("tts calls = %d, want 3 (one per non-empty clip)", got)
	}
	if dl.calls.Load() != 2 {
		t.Errorf("downloads = %d, want 2", dl.calls.Load())
	}
	assertEmptyDir(t, root)
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("work root not cleaned up: %d entries left", len(entries))
	}
}

func TestErrorPublicHidesCause(t *testing.T) {
	err := fail(RenderFailure, errors.New("ffmpeg: exit status 1: /tmp/job/x.mp4: Invalid data"), "audio/video mux failed")
	if got := err.Public(); got != "RenderFailure: audio/video mux failed" {
		t.Errorf("Public() = %q", got)
	}
	if !errors.Is(err, err.Err) {
		t.Error("Error does not unwrap to its cause")
	}
}

func TestExtOf(t *testing.T) {
	tests := []struct {
		url, def, want string
	}{
		{"https://cdn.example.com/a/photo.PNG?sig=1", ".jpg", ".png"},
		{"https://cdn.example.com/track.mp3", ".mp3", ".mp3"},
		{"https://example.com", ".jpg", ".jpg"},
		{"https://example.com/image", ".jpg", ".jpg"},
		{"https://example.com/x.verylongext", ".jpg", ".jpg"},
	}
	for _, tt := range tests {
		if got := extOf(tt.url, tt.def); got != tt.want {
			t.Errorf("extOf(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestKeepFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "final.mp4")
	if err := os.WriteFile(src, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(t.TempDir(), "output", "abc.mp4")
	if err := keepFile(src, dst); err != nil {
		t.Fatalf("keepFile: %v", err)
	}
	if data, err := os.ReadFile(dst); err != nil || string(data) != "video" {
		t.Errorf("kept file = %q, err = %v", data, err)
	}
}
