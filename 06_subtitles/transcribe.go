package subtitles

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"narrated-video-pipeline/config"
	"narrated-video-pipeline/types"
)

// Transcriber turns an audio file into word-level timestamps
type Transcriber interface {
	Transcribe(ctx context.Context, audioFile string) ([]types.Word, error)
}

// NewTranscriber picks the engine named in cfg
func NewTranscriber(cfg config.TranscriptionConfig, apiKey string) (Transcriber, error) {
	switch cfg.Engine {
	case "api":
		return NewAPITranscriber(apiKey, cfg), nil
	case "whisper":
		return NewWhisperCLI(cfg), nil
	default:
		return nil, fmt.Errorf("unknown transcription engine %q", cfg.Engine)
	}
}

// APITranscriber calls an OpenAI-compatible transcription endpoint (Groq by default)
type APITranscriber struct {
	apiKey     string
	baseURL    string
	model      string
	language   string
	httpClient *http.Client
}

// NewAPITranscriber creates an APITranscriber
func NewAPITranscriber(apiKey string, cfg config.TranscriptionConfig) *APITranscriber {
	return &APITranscriber{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		language:   cfg.Language,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

type transcriptionResponse struct {
	Text  string       `json:"text"`
	Words []types.Word `json:"words"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Transcribe uploads the audio and returns its words in order
func (a *APITranscriber) Transcribe(ctx context.Context, audioFile string) ([]types.Word, error) {
	log.Printf("[subtitles] Transcribing %s with %s...", filepath.Base(audioFile), a.model)

	body, contentType, err := a.buildForm(audioFile)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/audio/transcriptions", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed transcriptionResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return nil, fmt.Errorf("parse transcription response (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("transcription error: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transcription error: status %d", resp.StatusCode)
	}

	words := cleanWords(parsed.Words)
	log.Printf("[subtitles] ✅ %d words transcribed", len(words))
	return words, nil
}

func (a *APITranscriber) buildForm(audioFile string) (io.Reader, string, error) {
	f, err := os.Open(audioFile)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(audioFile))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", err
	}
	fields := [][2]string{
		{"model", a.model},
		{"response_format", "verbose_json"},
		{"timestamp_granularities[]", "word"},
	}
	if a.language != "" {
		fields = append(fields, [2]string{"language", a.language})
	}
	for _, kv := range fields {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

// WhisperCLI runs the local whisper command with word timestamps
type WhisperCLI struct {
	Binary   string
	Model    string
	Language string
}

// NewWhisperCLI creates a WhisperCLI using the whisper binary on PATH
func NewWhisperCLI(cfg config.TranscriptionConfig) *WhisperCLI {
	model := cfg.Model
	if strings.HasPrefix(model, "whisper-") {
		// API model names do not exist locally
		model = "base"
	}
	return &WhisperCLI{Binary: "whisper", Model: model, Language: cfg.Language}
}

type whisperOutput struct {
	Segments []struct {
		Words []types.Word `json:"words"`
	} `json:"segments"`
}

// Transcribe runs whisper into a scratch directory next to the audio and
// reads back its JSON output
func (w *WhisperCLI) Transcribe(ctx context.Context, audioFile string) ([]types.Word, error) {
	log.Println("[subtitles] Running Whisper transcription...")

	outputDir, err := os.MkdirTemp(filepath.Dir(audioFile), "whisper-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(outputDir)

	args := []string{
		audioFile,
		"--model", w.Model,
		"--output_format", "json",
		"--output_dir", outputDir,
		"--word_timestamps", "True",
	}
	if w.Language != "" {
		args = append(args, "--language", w.Language)
	}
	cmd := exec.CommandContext(ctx, w.Binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("whisper failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	// whisper saves as <audioFilename>.json
	base := strings.TrimSuffix(filepath.Base(audioFile), filepath.Ext(audioFile))
	data, err := os.ReadFile(filepath.Join(outputDir, base+".json"))
	if err != nil {
		return nil, fmt.Errorf("read whisper output: %w", err)
	}
	words, err := ParseWhisperJSON(data)
	if err != nil {
		return nil, err
	}
	log.Printf("[subtitles] ✅ %d words transcribed", len(words))
	return words, nil
}

// ParseWhisperJSON flattens the per-segment words of a whisper JSON result
func ParseWhisperJSON(data []byte) ([]types.Word, error) {
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse whisper output: %w", err)
	}
	var words []types.Word
	for _, seg := range out.Segments {
		words = append(words, seg.Words...)
	}
	return cleanWords(words), nil
}

// cleanWords trims word text, drops empty words and clamps end >= start
func cleanWords(in []types.Word) []types.Word {
	out := make([]types.Word, 0, len(in))
	for _, w := range in {
		w.Text = strings.TrimSpace(w.Text)
		if w.Text == "" {
			continue
		}
		if w.End < w.Start {
			w.End = w.Start
		}
		out = append(out, w)
	}
	return out
}
