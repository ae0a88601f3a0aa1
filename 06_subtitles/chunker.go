package subtitles

import (
	"iter"
	"strings"
	"unicode/utf8"

	"narrated-video-pipeline/types"
)

// Chunk groups words into caption lines of at most maxChars runes, words
// separated by one space. A word ending a sentence closes its line, and a
// word longer than maxChars gets a line to itself. The sequence is lazy and
// can be ranged over any number of times.
func Chunk(words []types.Word, maxChars int) iter.Seq[types.CaptionChunk] {
	return func(yield func(types.CaptionChunk) bool) {
		var (
			parts []string
			size  int
			chunk types.CaptionChunk
		)
		flush := func() bool {
			if len(parts) == 0 {
				return true
			}
			chunk.Text = strings.Join(parts, " ")
			parts, size = parts[:0], 0
			return yield(chunk)
		}

		for _, w := range words {
			text := strings.TrimSpace(w.Text)
			if text == "" {
				continue
			}
			n := utf8.RuneCountInString(text)
			if len(parts) > 0 && size+1+n > maxChars {
				if !flush() {
					return
				}
			}
			if len(parts) == 0 {
				chunk = types.CaptionChunk{StartTime: w.Start}
				size = n
			} else {
				size += 1 + n
			}
			parts = append(parts, text)
			chunk.EndTime = w.End

			if endsSentence(text) {
				if !flush() {
					return
				}
			}
		}
		flush()
	}
}

func endsSentence(text string) bool {
	r, _ := utf8.DecodeLastRuneInString(text)
	return r == '.' || r == '!' || r == '?'
}
