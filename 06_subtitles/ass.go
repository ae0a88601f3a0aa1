package subtitles

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"math"
	"strings"

	"narrated-video-pipeline/config"
	"narrated-video-pipeline/types"
)

// Style is the single caption style of a script
type Style struct {
	Width        int
	Height       int
	Font         string
	FontSize     int
	Bold         bool
	Outline      float64
	MarginBottom int
}

// StyleFrom builds a Style from caption settings and the video frame size
func StyleFrom(cfg config.CaptionsConfig, video config.VideoConfig) Style {
	return Style{
		Width:        video.Width,
		Height:       video.Height,
		Font:         cfg.Font,
		FontSize:     cfg.FontSize,
		Bold:         cfg.Bold,
		Outline:      cfg.Outline,
		MarginBottom: cfg.MarginBottom,
	}
}

// FormatTimestamp renders seconds as H:MM:SS.cc, rounded to the nearest
// centisecond
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	cs := int64(math.Round(seconds * 100))
	h := cs / 360000
	m := cs / 6000 % 60
	s := cs / 100 % 60
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs%100)
}

// WriteASS writes an Advanced SubStation Alpha script with one Dialogue
// event per chunk and returns the number of events written
func WriteASS(w io.Writer, chunks iter.Seq[types.CaptionChunk], style Style) (int, error) {
	bw := bufio.NewWriter(w)

	bold := 0
	if style.Bold {
		bold = -1
	}
	fmt.Fprintf(bw, "[Script Info]\nScriptType: v4.00+\nPlayResX: %d\nPlayResY: %d\nWrapStyle: 2\nScaledBorderAndShadow: yes\n\n",
		style.Width, style.Height)
	fmt.Fprint(bw, "[V4+ Styles]\n")
	fmt.Fprint(bw, "Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, "+
		"Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, "+
		"Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(bw, "Style: Default,%s,%d,&H00FFFFFF,&H000000FF,&H00000000,&H00000000,%d,0,0,0,100,100,0,0,1,%.1f,0,2,10,10,%d,1\n\n",
		style.Font, style.FontSize, bold, style.Outline, style.MarginBottom)
	fmt.Fprint(bw, "[Events]\n")
	fmt.Fprint(bw, "Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	events := 0
	for c := range chunks {
		fmt.Fprintf(bw, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
			FormatTimestamp(c.StartTime), FormatTimestamp(c.EndTime), escapeText(c.Text))
		events++
	}
	return events, bw.Flush()
}

// escapeText keeps caption text from being read as override tags or breaks
func escapeText(s string) string {
	return strings.NewReplacer(
		"\r\n", " ",
		"\n", " ",
		"{", "(",
		"}", ")",
		"\\", "/",
	).Replace(s)
}
