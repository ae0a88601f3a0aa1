package main

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	voice "narrated-video-pipeline/01_voice"
	subtitles "narrated-video-pipeline/06_subtitles"
	upload "narrated-video-pipeline/07_upload"
	"narrated-video-pipeline/config"
	"narrated-video-pipeline/fetch"
	"narrated-video-pipeline/pipeline"
	"narrated-video-pipeline/server"
	"narrated-video-pipeline/types"
)

func newServeCommand(configPath *string) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, p, err := buildPipeline(ctx, *configPath)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			timeout := time.Duration(cfg.Server.RequestTimeoutSec) * time.Second
			return server.New(p, timeout).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func newRenderCommand(configPath *string) *cobra.Command {
	var jobFile string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Run one job from a JSON file and print the video URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(jobFile)
			if err != nil {
				return err
			}
			var req types.JobRequest
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("parse %s: %w", jobFile, err)
			}
			if err := pipeline.Validate(&req); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			_, p, err := buildPipeline(ctx, *configPath)
			if err != nil {
				return err
			}
			result, err := p.Run(ctx, &req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.VideoURL)
			return nil
		},
	}
	cmd.Flags().StringVar(&jobFile, "job", "job.json", "Job request JSON file")
	return cmd
}

func newCaptionsCommand(configPath *string) *cobra.Command {
	var wordsFile, assFile string
	var maxChars int
	cmd := &cobra.Command{
		Use:   "captions",
		Short: "Preview how transcribed words are chunked into caption lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if maxChars <= 0 {
				maxChars = cfg.Captions.MaxChars
			}

			words, err := readWords(wordsFile)
			if err != nil {
				return err
			}
			chunks := subtitles.Chunk(words, maxChars)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderChunks(chunks, shouldColorize(out)))

			if assFile != "" {
				f, err := os.Create(assFile)
				if err != nil {
					return err
				}
				defer f.Close()
				n, err := subtitles.WriteASS(f, chunks, subtitles.StyleFrom(cfg.Captions, cfg.Video))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%d event(s) written to %s\n", n, assFile)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&wordsFile, "words", "words.json", "Word timestamps: a JSON array or whisper JSON output")
	cmd.Flags().IntVar(&maxChars, "max-chars", 0, "Caption line budget (overrides captions.max_chars)")
	cmd.Flags().StringVar(&assFile, "ass", "", "Also write the caption script to this path")
	return cmd
}

// readWords accepts either [{word,start,end}] or a whisper result with segments
func readWords(path string) ([]types.Word, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var words []types.Word
	if err := json.Unmarshal(data, &words); err == nil {
		return words, nil
	}
	return subtitles.ParseWhisperJSON(data)
}

func renderChunks(chunks iter.Seq[types.CaptionChunk], colorize bool) string {
	var rows [][]string
	i := 0
	for c := range chunks {
		i++
		rows = append(rows, []string{
			strconv.Itoa(i),
			subtitles.FormatTimestamp(c.StartTime),
			subtitles.FormatTimestamp(c.EndTime),
			strconv.Itoa(utf8.RuneCountInString(c.Text)),
			c.Text,
		})
	}
	return renderTable(
		[]string{"#", "Start", "End", "Chars", "Text"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
		colorize,
	)
}

// buildPipeline loads config and secrets and wires the real collaborators
func buildPipeline(ctx context.Context, configPath string) (*config.Config, *pipeline.Pipeline, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	secrets := config.LoadSecrets()
	if err := secrets.Validate(cfg); err != nil {
		return nil, nil, err
	}

	for _, dir := range []string{cfg.Paths.Output, cfg.Paths.Logs, cfg.Paths.WorkRoot} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	var tts voice.TTS
	switch cfg.Voice.Provider {
	case "command":
		command := cfg.Voice.Command
		if command == "" {
			command = secrets.TTSCommand
		}
		local, err := voice.NewCommandTTS(command, cfg.Voice.EdgeVoice)
		if err != nil {
			return nil, nil, err
		}
		local.TempDir = cfg.Paths.WorkRoot
		tts = local
	default:
		tts = voice.NewElevenLabs(secrets.ElevenLabsAPIKey, cfg.Voice)
	}

	transcriber, err := subtitles.NewTranscriber(cfg.Transcription, secrets.TranscriptionAPIKey)
	if err != nil {
		return nil, nil, err
	}
	storage, err := upload.NewStorage(ctx, cfg, secrets)
	if err != nil {
		return nil, nil, err
	}

	p := pipeline.New(cfg, pipeline.Deps{
		TTS:         tts,
		Downloader:  fetch.NewHTTPDownloader(2 * time.Minute),
		Transcriber: transcriber,
		Storage:     storage,
	})
	return cfg, p, nil
}
