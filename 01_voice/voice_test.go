package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"

	"narrated-video-pipeline/config"
	"narrated-video-pipeline/media"
	"narrated-video-pipeline/media/fftest"
	"narrated-video-pipeline/types"
)

func TestDefaultChainOrder(t *testing.T) {
	cfg := config.Default().Voice
	chain := DefaultChain(media.New("", ""), cfg, 44100)

	var names []string
	for _, e := range chain.Stack {
		names = append(names, e.Name())
	}
	want := "gain,bass,pitch,reverb,echo"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("stack order = %s, want %s", got, want)
	}
	if chain.Tempo.Name() != "tempo" {
		t.Errorf("separate stage = %s, want tempo", chain.Tempo.Name())
	}
	if got := chain.Tempo.Filter(44100); got != "atempo=0.9400" {
		t.Errorf("tempo filter = %q", got)
	}
}

func TestStackFilter(t *testing.T) {
	chain := &FXChain{
		Stack:      []Effect{Gain{Factor: 1.5}, BassBoost{GainDb: 2}},
		SampleRate: 44100,
	}
	if got, want := chain.StackFilter(), "volume=1.500,bass=g=2.00"; got != want {
		t.Errorf("StackFilter() = %q, want %q", got, want)
	}
}

func TestPitchShiftFilter(t *testing.T) {
	tests := []struct {
		cents float64
		want  string
	}{
		{0, "asetrate=44100,aresample=44100,atempo=1.000000"},
		{-1200, "asetrate=22050,aresample=44100,atempo=2.000000"},
		{1200, "asetrate=88200,aresample=44100,atempo=0.500000"},
	}
	for _, tt := range tests {
		if got := (PitchShift{Cents: tt.cents}).Filter(44100); got != tt.want {
			t.Errorf("PitchShift(%v) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

type fakeTTS struct {
	calls atomic.Int32
	err   error
}

func (f *fakeTTS) Speak(ctx context.Context, text string) ([]byte, error) {
	f.calls.Add(1)
	return nil, f.err
}

func TestSynthesizeAllSkipsFailures(t *testing.T) {
	tts := &fakeTTS{err: errors.New("quota exceeded")}
	s := NewSynthesizer(tts, nil, nil, 44100, 2, 3)

	clips := []types.ClipRequest{
		{VoiceText: "one"},
		{VoiceText: "   "},
		{VoiceText: "three"},
	}
	assets, failures := s.SynthesizeAll(context.Background(), t.TempDir(), clips)

	if len(assets) != 0 {
		t.Fatalf("assets = %d, want 0", len(assets))
	}
	if len(failures) != 3 {
		t.Fatalf("failures = %d, want 3", len(failures))
	}
	if got := tts.calls.Load(); got != 2 {
		t.Errorf("TTS calls = %d, want 2 (blank text is never sent)", got)
	}
	if !errors.Is(failures[1].Err, ErrEmptyText) {
		t.Errorf("failure[1] = %v, want ErrEmptyText", failures[1].Err)
	}
	for i, f := range failures {
		if f.Index != i {
			t.Errorf("failure %d has index %d", i, f.Index)
		}
	}
}

// selectiveTTS fails any text listed in failures and returns fake audio otherwise
type selectiveTTS struct {
	failures map[string]error
}

func (s selectiveTTS) Speak(ctx context.Context, text string) ([]byte, error) {
	if err := s.failures[text]; err != nil {
		return nil, err
	}
	return []byte("ID3-" + text), nil
}

func TestSynthesizeAllKeepsSurvivorsInOrder(t *testing.T) {
	fake := fftest.New(t, fftest.Options{
		Stdout:   fftest.SilentPCM(44100, 2),
		Duration: 1,
	})
	tts := selectiveTTS{failures: map[string]error{"two": errors.New("elevenlabs error: 500")}}
	chain := DefaultChain(fake.FF, config.Default().Voice, 44100)
	s := NewSynthesizer(tts, chain, fake.FF, 44100, 2, 3)

	work := t.TempDir()
	clips := []types.ClipRequest{{VoiceText: "one"}, {VoiceText: "two"}, {VoiceText: " three "}}
	assets, failures := s.SynthesizeAll(context.Background(), work, clips)

	if len(assets) != 2 {
		t.Fatalf("assets = %d, want 2", len(assets))
	}
	for i, want := range []struct {
		index int
		text  string
	}{{0, "one"}, {2, "three"}} {
		a := assets[i]
		if a.Index != want.index || a.Text != want.text {
			t.Errorf("asset %d = index %d %q, want index %d %q", i, a.Index, a.Text, want.index, want.text)
		}
		if math.Abs(a.Duration-1) > 1e-9 || a.Buffer.Frames() != 44100 {
			t.Errorf("asset %d duration = %f, frames = %d", i, a.Duration, a.Buffer.Frames())
		}
		if wantPath := filepath.Join(work, fmt.Sprintf("voice_%03d.wav", want.index)); a.Path != wantPath {
			t.Errorf("asset %d path = %s, want %s", i, a.Path, wantPath)
		}
	}

	if len(failures) != 1 || failures[0].Index != 1 || !strings.Contains(failures[0].Err.Error(), "500") {
		t.Fatalf("failures = %+v, want clip 1 with the TTS error", failures)
	}

	// two effect passes and one decode per surviving clip
	if got := len(fake.Calls(t)); got != 6 {
		t.Errorf("ffmpeg calls = %d, want 6", got)
	}
	if got := len(fake.CallsWith(t, "atempo=0.9400")); got != 2 {
		t.Errorf("tempo passes = %d, want 2", got)
	}
	if got := len(fake.CallsWith(t, "raw_001.mp3")); got != 0 {
		t.Errorf("failed clip reached the effect chain")
	}
}

func TestSynthesizeRejectsDurationMismatch(t *testing.T) {
	fake := fftest.New(t, fftest.Options{
		Stdout:   fftest.SilentPCM(44100, 2),
		Duration: 3,
	})
	chain := DefaultChain(fake.FF, config.Default().Voice, 44100)
	s := NewSynthesizer(selectiveTTS{}, chain, fake.FF, 44100, 2, 1)

	_, err := s.Synthesize(context.Background(), t.TempDir(), "hello", 0)
	if err == nil || !strings.Contains(err.Error(), "duration mismatch") {
		t.Fatalf("Synthesize error = %v, want duration mismatch", err)
	}
}

func TestElevenLabsSpeak(t *testing.T) {
	var gotPath, gotKey string
	var gotBody speechRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3-audio"))
	}))
	defer srv.Close()

	cfg := config.Default().Voice
	cfg.BaseURL = srv.URL
	cfg.VoiceID = "narrator"
	client := NewElevenLabs("secret", cfg)

	audio, err := client.Speak(context.Background(), "Hello there.")
	if err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if string(audio) != "ID3-audio" {
		t.Errorf("audio = %q", audio)
	}
	if gotPath != "/v1/text-to-speech/narrator" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("api key header = %q", gotKey)
	}
	if gotBody.Text != "Hello there." || gotBody.VoiceSettings.Stability != 0.5 || gotBody.VoiceSettings.SimilarityBoost != 0.75 {
		t.Errorf("body = %+v", gotBody)
	}
}

func TestElevenLabsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"invalid voice"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	cfg := config.Default().Voice
	cfg.BaseURL = srv.URL
	_, err := NewElevenLabs("bad", cfg).Speak(context.Background(), "hi")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error = %v, want status in message", err)
	}
}

func TestCommandTTSGenericBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script engine")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "say")
	content := "#!/bin/sh\n# args: --text TEXT --output FILE\nprintf '%s' \"$2\" > \"$4\"\n"
	if err := os.WriteFile(script, []byte(content), 0755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	tts, err := NewCommandTTS(script, "")
	if err != nil {
		t.Fatalf("NewCommandTTS: %v", err)
	}
	tts.TempDir = dir

	audio, err := tts.Speak(context.Background(), "spoken words")
	if err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if string(audio) != "spoken words" {
		t.Errorf("audio = %q, want script output", audio)
	}
}
