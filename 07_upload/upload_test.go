package upload

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"narrated-video-pipeline/config"
)

func TestLogUploadWritesRecord(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	path, err := LogUpload(Record{
		JobID:    "3f2a9c1e",
		VideoURL: "https://example.com/v.mp4",
		Backend:  "drive",
		Clips:    3,
		Duration: 12.5,
	}, dir)
	if err != nil {
		t.Fatalf("LogUpload: %v", err)
	}
	if !strings.HasSuffix(path, "_3f2a9c1e.json") {
		t.Errorf("path = %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got Record
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	if got.VideoURL != "https://example.com/v.mp4" || got.Clips != 3 {
		t.Errorf("record = %+v", got)
	}
	if got.UploadedAt == "" {
		t.Error("uploaded_at not set")
	}
}

func TestDriveDownloadURL(t *testing.T) {
	want := "https://drive.google.com/uc?export=download&id=abc123"
	if got := DriveDownloadURL("abc123"); got != want {
		t.Errorf("DriveDownloadURL = %q, want %q", got, want)
	}
}

func TestNewStorage(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = "youtube"
	s, err := NewStorage(context.Background(), cfg, &config.Secrets{YouTubeRefreshToken: "r"})
	if err != nil {
		t.Fatalf("NewStorage(youtube): %v", err)
	}
	yt, ok := s.(*YouTube)
	if !ok || yt.privacy != "unlisted" {
		t.Errorf("storage = %#v, want unlisted YouTube", s)
	}

	cfg.Storage.Backend = "drive"
	if _, err := NewStorage(context.Background(), cfg, &config.Secrets{GoogleCredentialsJSON: "{"}); err == nil {
		t.Error("expected error for malformed service account key")
	}

	cfg.Storage.Backend = "ftp"
	if _, err := NewStorage(context.Background(), cfg, &config.Secrets{}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
