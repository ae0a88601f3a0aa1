package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Video         VideoConfig         `yaml:"video"`
	Audio         AudioConfig         `yaml:"audio"`
	Voice         VoiceConfig         `yaml:"voice"`
	Effects       EffectsConfig       `yaml:"effects"`
	Music         MusicConfig         `yaml:"music"`
	Captions      CaptionsConfig      `yaml:"captions"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Storage       StorageConfig       `yaml:"storage"`
	Paths         PathsConfig         `yaml:"paths"`
	FFmpeg        FFmpegConfig        `yaml:"ffmpeg"`
}

type ServerConfig struct {
	Addr              string `yaml:"addr"`
	RequestTimeoutSec int    `yaml:"request_timeout_sec"`
}

type VideoConfig struct {
	Width       int     `yaml:"width"`
	Height      int     `yaml:"height"`
	FPS         int     `yaml:"fps"`
	ClipFadeSec float64 `yaml:"clip_fade_sec"`
}

type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
}

type VoiceConfig struct {
	Provider    string  `yaml:"provider"` // elevenlabs | command
	VoiceID     string  `yaml:"voice_id"`
	ModelID     string  `yaml:"model_id"`
	Stability   float64 `yaml:"stability"`
	Similarity  float64 `yaml:"similarity"`
	BaseURL     string  `yaml:"base_url"`
	Command     string  `yaml:"command"`
	EdgeVoice   string  `yaml:"edge_voice"`
	PitchCents  float64 `yaml:"pitch_cents"`
	TempoFactor float64 `yaml:"tempo_factor"`
	Concurrency int     `yaml:"concurrency"`
}

type EffectsConfig struct {
	PeakFrameMs     int     `yaml:"peak_frame_ms"`
	PeakThresholdDb float64 `yaml:"peak_threshold_db"`
	BlinkDurationMs int     `yaml:"blink_duration_ms"`
	BlinkFadeMs     int     `yaml:"blink_fade_ms"`
	BlinkOpacity    float64 `yaml:"blink_opacity"`
	SwayMaxAngle    float64 `yaml:"sway_max_angle"`
	SwayMaxShift    float64 `yaml:"sway_max_shift"`
	SwayPeriodSec   float64 `yaml:"sway_period_sec"`
	Workers         int     `yaml:"workers"`
}

type MusicConfig struct {
	BackgroundAttenuationDb float64 `yaml:"background_attenuation_db"`
}

type CaptionsConfig struct {
	MaxChars     int     `yaml:"max_chars"`
	Font         string  `yaml:"font"`
	FontSize     int     `yaml:"font_size"`
	Bold         bool    `yaml:"bold"`
	Outline      float64 `yaml:"outline"`
	MarginBottom int     `yaml:"margin_bottom"`
}

type TranscriptionConfig struct {
	Engine   string `yaml:"engine"` // api | whisper
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Language string `yaml:"language"`
}

type StorageConfig struct {
	Backend        string `yaml:"backend"` // drive | youtube
	DriveFolderID  string `yaml:"drive_folder_id"`
	YouTubePrivacy string `yaml:"youtube_privacy"`
}

type PathsConfig struct {
	WorkRoot string `yaml:"work_root"`
	Output   string `yaml:"output"`
	Logs     string `yaml:"logs"`
}

type FFmpegConfig struct {
	Binary      string `yaml:"binary"`
	ProbeBinary string `yaml:"probe_binary"`
}

// Default returns a Config with every option set to its standard value
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080", RequestTimeoutSec: 900},
		Video:  VideoConfig{Width: 1080, Height: 1920, FPS: 30, ClipFadeSec: 0.3},
		Audio:  AudioConfig{SampleRate: 44100, Channels: 2},
		Voice: VoiceConfig{
			Provider:    "elevenlabs",
			ModelID:     "eleven_multilingual_v2",
			Stability:   0.5,
			Similarity:  0.75,
			BaseURL:     "https://api.elevenlabs.io",
			EdgeVoice:   "en-US-GuyNeural",
			PitchCents:  -100,
			TempoFactor: 0.94,
			Concurrency: 4,
		},
		Effects: EffectsConfig{
			PeakFrameMs:     50,
			PeakThresholdDb: -25,
			BlinkDurationMs: 50,
			BlinkFadeMs:     25,
			BlinkOpacity:    0.5,
			SwayMaxAngle:    2,
			SwayMaxShift:    15,
			SwayPeriodSec:   6,
			Workers:         4,
		},
		Music: MusicConfig{BackgroundAttenuationDb: -5},
		Captions: CaptionsConfig{
			MaxChars:     12,
			Font:         "Arial",
			FontSize:     72,
			Bold:         true,
			Outline:      3,
			MarginBottom: 320,
		},
		Transcription: TranscriptionConfig{
			Engine:   "api",
			Model:    "whisper-large-v3",
			BaseURL:  "https://api.groq.com/openai/v1",
			Language: "en",
		},
		Storage: StorageConfig{Backend: "drive", YouTubePrivacy: "unlisted"},
		Paths:   PathsConfig{Output: "output", Logs: "logs"},
		FFmpeg:  FFmpegConfig{Binary: "ffmpeg", ProbeBinary: "ffprobe"},
	}
}

// Load reads config.yaml over the defaults. Keys absent from the file keep
// their default; keys present win, including zero and false.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
