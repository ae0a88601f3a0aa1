package config

import (
	"fmt"
	"os"
	"strings"
)

// Secrets holds the credentials the pipeline needs at its entry point.
// They come from the environment (or .env) and are never read from config.yaml.
type Secrets struct {
	ElevenLabsAPIKey      string
	TranscriptionAPIKey   string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string
	YouTubeClientID       string
	YouTubeClientSecret   string
	YouTubeRefreshToken   string
	TTSCommand            string
}

// ConfigurationError lists the required secrets that are absent
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: missing %s", strings.Join(e.Missing, ", "))
}

// LoadSecrets reads credentials from the process environment
func LoadSecrets() *Secrets {
	transcriptionKey := os.Getenv("GROQ_API_KEY")
	if transcriptionKey == "" {
		transcriptionKey = os.Getenv("OPENAI_API_KEY")
	}
	return &Secrets{
		ElevenLabsAPIKey:      os.Getenv("ELEVENLABS_API_KEY"),
		TranscriptionAPIKey:   transcriptionKey,
		GoogleCredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		GoogleCredentialsJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		YouTubeClientID:       os.Getenv("YOUTUBE_CLIENT_ID"),
		YouTubeClientSecret:   os.Getenv("YOUTUBE_CLIENT_SECRET"),
		YouTubeRefreshToken:   os.Getenv("YOUTUBE_REFRESH_TOKEN"),
		TTSCommand:            os.Getenv("TTS_COMMAND"),
	}
}

// Validate checks that every secret required by the selected backends is present
func (s *Secrets) Validate(cfg *Config) error {
	var missing []string

	switch cfg.Voice.Provider {
	case "elevenlabs":
		if s.ElevenLabsAPIKey == "" {
			missing = append(missing, "ELEVENLABS_API_KEY")
		}
		if cfg.Voice.VoiceID == "" {
			missing = append(missing, "voice.voice_id")
		}
	case "command":
	default:
		return fmt.Errorf("voice provider: unsupported value %q", cfg.Voice.Provider)
	}

	switch cfg.Transcription.Engine {
	case "api":
		if s.TranscriptionAPIKey == "" {
			missing = append(missing, "GROQ_API_KEY or OPENAI_API_KEY")
		}
	case "whisper":
	default:
		return fmt.Errorf("transcription engine: unsupported value %q", cfg.Transcription.Engine)
	}

	switch cfg.Storage.Backend {
	case "drive":
		if s.GoogleCredentialsFile == "" && s.GoogleCredentialsJSON == "" {
			missing = append(missing, "GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_SERVICE_ACCOUNT_JSON")
		}
	case "youtube":
		if s.YouTubeClientID == "" {
			missing = append(missing, "YOUTUBE_CLIENT_ID")
		}
		if s.YouTubeClientSecret == "" {
			missing = append(missing, "YOUTUBE_CLIENT_SECRET")
		}
		if s.YouTubeRefreshToken == "" {
			missing = append(missing, "YOUTUBE_REFRESH_TOKEN")
		}
	default:
		return fmt.Errorf("storage backend: unsupported value %q", cfg.Storage.Backend)
	}

	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}
