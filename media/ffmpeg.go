package media

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpeg drives the ffmpeg/ffprobe binaries. All audio and video codec work
// goes through it; nothing here decodes media by hand.
type FFmpeg struct {
	Binary      string
	ProbeBinary string
}

// New creates an FFmpeg wrapper, defaulting empty binaries to the PATH names
func New(binary, probeBinary string) *FFmpeg {
	if binary == "" {
		binary = "ffmpeg"
	}
	if probeBinary == "" {
		probeBinary = "ffprobe"
	}
	return &FFmpeg{Binary: binary, ProbeBinary: probeBinary}
}

// Run executes ffmpeg with -y prepended. Stderr is captured and attached to the error.
func (f *FFmpeg) Run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, f.Binary, append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// ProbeDuration uses ffprobe to get the container duration in seconds
func (f *FFmpeg) ProbeDuration(ctx context.Context, path string) (float64, error) {
	out, err := exec.CommandContext(ctx, f.ProbeBinary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	dur, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: parse duration: %w", path, err)
	}
	return dur, nil
}

// ProbeVideoSize returns the width and height of the first video stream
func (f *FFmpeg) ProbeVideoSize(ctx context.Context, path string) (int, int, error) {
	out, err := exec.CommandContext(ctx, f.ProbeBinary,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		path,
	).Output()
	if err != nil {
		return 0, 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	var w, h int
	if _, err := fmt.Sscanf(strings.TrimSpace(string(out)), "%dx%d", &w, &h); err != nil {
		return 0, 0, fmt.Errorf("ffprobe %s: parse size: %w", path, err)
	}
	return w, h, nil
}

// Decode converts any audio file to float32 PCM at the given rate and channel count
func (f *FFmpeg) Decode(ctx context.Context, path string, sampleRate, channels int) (*Buffer, error) {
	cmd := exec.CommandContext(ctx, f.Binary,
		"-hide_banner", "-loglevel", "error",
		"-i", path,
		"-vn",
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ac", strconv.Itoa(channels),
		"-ar", strconv.Itoa(sampleRate),
		"-",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	samples, readErr := readFloat32(stdout)
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("decode %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	if readErr != nil {
		return nil, fmt.Errorf("decode %s: %w", path, readErr)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("decode %s: no audio samples", path)
	}
	return &Buffer{SampleRate: sampleRate, Channels: channels, Samples: samples}, nil
}

// Encode writes the buffer to path; the container and codec follow the extension
func (f *FFmpeg) Encode(ctx context.Context, buf *Buffer, path string, codecArgs ...string) error {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "f32le",
		"-ar", strconv.Itoa(buf.SampleRate),
		"-ac", strconv.Itoa(buf.Channels),
		"-i", "-",
	}
	args = append(args, codecArgs...)
	args = append(args, path)

	cmd := exec.CommandContext(ctx, f.Binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	writeErr := WriteFloat32(stdin, buf.Samples)
	stdin.Close()
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("encode %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	if writeErr != nil {
		return fmt.Errorf("encode %s: %w", path, writeErr)
	}
	return nil
}

func readFloat32(r io.Reader) ([]float32, error) {
	br := bufio.NewReaderSize(r, 1<<16)
	var samples []float32
	var word [4]byte
	for {
		_, err := io.ReadFull(br, word[:])
		if err == io.EOF {
			return samples, nil
		}
		if err == io.ErrUnexpectedEOF {
			// trailing partial sample
			return samples, nil
		}
		if err != nil {
			return samples, err
		}
		samples = append(samples, math.Float32frombits(binary.LittleEndian.Uint32(word[:])))
	}
}

// WriteFloat32 streams samples as little-endian float32
func WriteFloat32(w io.Writer, samples []float32) error {
	bw := bufio.NewWriterSize(w, 1<<16)
	var word [4]byte
	for _, s := range samples {
		binary.LittleEndian.PutUint32(word[:], math.Float32bits(s))
		if _, err := bw.Write(word[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}
