package upload

import (
	"context"
	"fmt"

	"narrated-video-pipeline/config"
)

// Storage publishes a finished video and returns a URL anyone can fetch
type Storage interface {
	Upload(ctx context.Context, videoFile string) (string, error)
}

// NewStorage builds the backend selected in cfg.Storage
func NewStorage(ctx context.Context, cfg *config.Config, secrets *config.Secrets) (Storage, error) {
	switch cfg.Storage.Backend {
	case "drive":
		return NewDrive(ctx, secrets, cfg.Storage.DriveFolderID)
	case "youtube":
		return NewYouTube(secrets, cfg.Storage.YouTubePrivacy), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
