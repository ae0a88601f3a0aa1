package upload

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"narrated-video-pipeline/config"
)

// YouTube uploads via the Data API v3 with a stored refresh token
type YouTube struct {
	clientID     string
	clientSecret string
	refreshToken string
	privacy      string
}

// NewYouTube creates a YouTube backend; privacy is public, unlisted or private
func NewYouTube(secrets *config.Secrets, privacy string) *YouTube {
	if privacy == "" {
		privacy = "unlisted"
	}
	return &YouTube{
		clientID:     secrets.YouTubeClientID,
		clientSecret: secrets.YouTubeClientSecret,
		refreshToken: secrets.YouTubeRefreshToken,
		privacy:      privacy,
	}
}

// Upload publishes the video and returns its watch URL
func (y *YouTube) Upload(ctx context.Context, videoFile string) (string, error) {
	log.Println("[upload] Authenticating with YouTube API...")

	svc, err := youtube.NewService(ctx, option.WithTokenSource(y.tokenSource(ctx)))
	if err != nil {
		return "", fmt.Errorf("youtube service: %w", err)
	}

	title := strings.TrimSuffix(filepath.Base(videoFile), filepath.Ext(videoFile))
	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:      title,
			CategoryId: "22",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           y.privacy,
			SelfDeclaredMadeForKids: false,
		},
	}

	f, err := os.Open(videoFile)
	if err != nil {
		return "", fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	if fi, err := f.Stat(); err == nil {
		log.Printf("[upload] File size: %.1f MB", float64(fi.Size())/1024/1024)
	}

	uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, video).
		Media(f).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("youtube upload: %w", err)
	}

	url := fmt.Sprintf("https://www.youtube.com/watch?v=%s", uploaded.Id)
	log.Printf("[upload] ✅ Uploaded to YouTube (%s): %s", y.privacy, url)
	return url, nil
}

func (y *YouTube) tokenSource(ctx context.Context) oauth2.TokenSource {
	conf := &oauth2.Config{
		ClientID:     y.clientID,
		ClientSecret: y.clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope},
	}
	token := &oauth2.Token{
		RefreshToken: y.refreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}
	return conf.TokenSource(ctx, token)
}
