package timeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	voice "narrated-video-pipeline/01_voice"
	"narrated-video-pipeline/config"
	"narrated-video-pipeline/media"
	"narrated-video-pipeline/media/fftest"
)

func assetsWithDurations(durations ...float64) []*voice.NarrationAsset {
	assets := make([]*voice.NarrationAsset, len(durations))
	for i, d := range durations {
		assets[i] = &voice.NarrationAsset{Index: i, Duration: d}
	}
	return assets
}

func TestPlaceIsContiguous(t *testing.T) {
	tl, err := Place(assetsWithDurations(2.5, 1.25, 3.0, 0.75))
	if err != nil {
		t.Fatalf("Place: %v", err)
	}

	var sum float64
	for i, entry := range tl.Entries {
		if entry.Index != i {
			t.Errorf("entry %d index = %d", i, entry.Index)
		}
		if math.Abs(entry.StartTime-sum) > 1e-9 {
			t.Errorf("entry %d start = %f, want %f", i, entry.StartTime, sum)
		}
		if i > 0 && math.Abs(tl.Entries[i-1].End()-entry.StartTime) > 1e-9 {
			t.Errorf("gap or overlap between entry %d and %d", i-1, i)
		}
		sum += entry.Duration
	}
	if math.Abs(tl.TotalDuration-sum) > 1e-9 {
		t.Errorf("total = %f, want %f", tl.TotalDuration, sum)
	}
	if math.Abs(tl.TotalDuration-7.5) > 1e-9 {
		t.Errorf("total = %f, want 7.5", tl.TotalDuration)
	}
}

func TestPlaceNoClips(t *testing.T) {
	if _, err := Place(nil); !errors.Is(err, ErrNoValidClips) {
		t.Fatalf("Place(nil) error = %v, want ErrNoValidClips", err)
	}
}

func TestEntryAt(t *testing.T) {
	tl, err := Place(assetsWithDurations(1, 2, 3))
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	tests := []struct {
		t    float64
		want int
	}{
		{0, 0},
		{0.999, 0},
		{1, 1},
		{2.5, 1},
		{3, 2},
		{5.9, 2},
		{42, 2},
	}
	for _, tt := range tests {
		if got := tl.EntryAt(tt.t); got != tt.want {
			t.Errorf("EntryAt(%v) = %d, want %d", tt.t, got, tt.want)
		}
	}
}

func TestFadeFor(t *testing.T) {
	if got := FadeFor(0.3, 5); got != 0.3 {
		t.Errorf("FadeFor(0.3, 5) = %f", got)
	}
	if got := FadeFor(0.3, 0.4); got != 0.2 {
		t.Errorf("FadeFor(0.3, 0.4) = %f, want 0.2", got)
	}
}

func TestFrameCountSharesBoundaries(t *testing.T) {
	tl, err := Place(assetsWithDurations(1.01, 1.01, 1.01))
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	want := []int{30, 31, 30}
	sum := 0
	for i, entry := range tl.Entries {
		n := FrameCount(entry, 30)
		if n != want[i] {
			t.Errorf("entry %d frames = %d, want %d", i, n, want[i])
		}
		sum += n
	}
	if total := int(math.Round(tl.TotalDuration * 30)); sum != total {
		t.Errorf("frames sum to %d, want %d", sum, total)
	}
}

func assetsWithAudio(durations ...float64) []*voice.NarrationAsset {
	assets := assetsWithDurations(durations...)
	for _, a := range assets {
		a.Buffer = media.NewBuffer(44100, 2, int(math.Round(a.Duration*44100)))
	}
	return assets
}

func TestAssembleRendersEachEntryThenConcatenates(t *testing.T) {
	fake := fftest.New(t, fftest.Options{})
	work := t.TempDir()
	a := NewAssembler(fake.FF, config.Default().Video)

	res, err := a.Assemble(context.Background(), assetsWithAudio(1.01, 1.01, 1.01), "image.jpg", work)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	calls := fake.Calls(t)
	if len(calls) != 4 {
		t.Fatalf("ffmpeg calls = %d, want 3 stills and 1 concat", len(calls))
	}
	for i, frames := range []int{30, 31, 30} {
		call := calls[i]
		for _, want := range []string{
			"-loop 1 -i image.jpg",
			fmt.Sprintf("-frames:v %d", frames),
			"fade=t=in:st=0:d=0.300",
			fmt.Sprintf("still_%03d.mp4", i),
		} {
			if !strings.Contains(call, want) {
				t.Errorf("still %d missing %q: %s", i, want, call)
			}
		}
	}
	if !strings.Contains(calls[3], "-f concat") {
		t.Errorf("last call is not the concat: %s", calls[3])
	}

	list, err := os.ReadFile(filepath.Join(work, "visuals_concat.txt"))
	if err != nil {
		t.Fatal(err)
	}
	wantList := fmt.Sprintf("file '%s'\nfile '%s'\nfile '%s'",
		filepath.Join(work, "still_000.mp4"),
		filepath.Join(work, "still_001.mp4"),
		filepath.Join(work, "still_002.mp4"))
	if string(list) != wantList {
		t.Errorf("concat list =\n%s\nwant\n%s", list, wantList)
	}

	if res.Video != filepath.Join(work, "visuals_raw.mp4") {
		t.Errorf("video = %s", res.Video)
	}
	if got, want := res.Narration.Frames(), 3*44541; got != want {
		t.Errorf("narration frames = %d, want %d", got, want)
	}
	for i, entry := range res.Timeline.Entries {
		if entry.VisualClip != filepath.Join(work, fmt.Sprintf("still_%03d.mp4", i)) {
			t.Errorf("entry %d visual clip = %s", i, entry.VisualClip)
		}
	}
}

func TestAssembleReportsFailedClip(t *testing.T) {
	fake := fftest.New(t, fftest.Options{FailOn: "still_001.mp4"})
	a := NewAssembler(fake.FF, config.Default().Video)

	_, err := a.Assemble(context.Background(), assetsWithAudio(1, 1, 1), "image.jpg", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "clip 1 visual") {
		t.Fatalf("Assemble error = %v, want clip 1 failure", err)
	}
	if n := len(fake.CallsWith(t, "-f concat")); n != 0 {
		t.Errorf("concat ran after a failed still")
	}
}
