// Package fftest provides stand-in ffmpeg and ffprobe binaries for tests.
//
// The fake ffmpeg appends its arguments to a log, one call per line. When its
// last argument is "-" it writes Options.Stdout to stdout; otherwise it copies
// stdin into the output path, so encoders can be inspected afterwards.
package fftest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"narrated-video-pipeline/media"
)

// Options shape what the fake binaries report
type Options struct {
	// Stdout is written when ffmpeg's output argument is "-"
	Stdout []byte
	// FailOn makes ffmpeg exit 1 when its arguments contain this text
	FailOn string
	// Duration is printed for format=duration probes; zero makes those probes fail
	Duration float64
	// Width and Height are printed for stream size probes
	Width, Height int
}

// Fake is a pair of scripted binaries plus the log of ffmpeg calls
type Fake struct {
	FF      *media.FFmpeg
	logFile string
}

// New writes the scripts into a test temp dir
func New(t testing.TB, opts Options) *Fake {
	t.Helper()
	dir := t.TempDir()
	logFile := filepath.Join(dir, "calls.log")

	stdoutFile := filepath.Join(dir, "stdout.bin")
	if err := os.WriteFile(stdoutFile, opts.Stdout, 0644); err != nil {
		t.Fatal(err)
	}

	var ff strings.Builder
	ff.WriteString("#!/bin/sh\nfor last; do :; done\n")
	fmt.Fprintf(&ff, "echo \"$@\" >> '%s'\n", logFile)
	if opts.FailOn != "" {
		fmt.Fprintf(&ff, "case \"$*\" in *'%s'*) echo 'simulated failure' >&2; exit 1;; esac\n", opts.FailOn)
	}
	fmt.Fprintf(&ff, "if [ \"$last\" = \"-\" ]; then cat '%s'; else cat > \"$last\"; fi\n", stdoutFile)

	var probe strings.Builder
	probe.WriteString("#!/bin/sh\ncase \"$*\" in\n")
	fmt.Fprintf(&probe, "*stream=width,height*) echo '%dx%d' ;;\n", opts.Width, opts.Height)
	if opts.Duration > 0 {
		fmt.Fprintf(&probe, "*) echo '%f' ;;\n", opts.Duration)
	} else {
		probe.WriteString("*) exit 1 ;;\n")
	}
	probe.WriteString("esac\n")

	ffPath := filepath.Join(dir, "ffmpeg")
	probePath := filepath.Join(dir, "ffprobe")
	if err := os.WriteFile(ffPath, []byte(ff.String()), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(probePath, []byte(probe.String()), 0755); err != nil {
		t.Fatal(err)
	}
	return &Fake{FF: media.New(ffPath, probePath), logFile: logFile}
}

// Calls returns the argument lists ffmpeg was invoked with, in call order
func (f *Fake) Calls(t testing.TB) []string {
	t.Helper()
	data, err := os.ReadFile(f.logFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

// CallsWith returns the calls whose arguments contain every part
func (f *Fake) CallsWith(t testing.TB, parts ...string) []string {
	t.Helper()
	var out []string
	for _, c := range f.Calls(t) {
		ok := true
		for _, p := range parts {
			if !strings.Contains(c, p) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, c)
		}
	}
	return out
}

// SilentPCM returns frames*channels zero samples encoded as f32le
func SilentPCM(frames, channels int) []byte {
	return make([]byte, frames*channels*4)
}
