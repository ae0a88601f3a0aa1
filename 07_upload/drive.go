package upload

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"narrated-video-pipeline/config"
)

// Drive uploads to Google Drive as a service account and shares the file
// with anyone holding the link
type Drive struct {
	svc      *drive.Service
	folderID string
}

// NewDrive authenticates with the service account key from secrets
func NewDrive(ctx context.Context, secrets *config.Secrets, folderID string) (*Drive, error) {
	log.Println("[upload] Authenticating with Google Drive API...")

	key := []byte(secrets.GoogleCredentialsJSON)
	if len(key) == 0 {
		data, err := os.ReadFile(secrets.GoogleCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account key: %w", err)
		}
		key = data
	}

	conf, err := google.JWTConfigFromJSON(key, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	svc, err := drive.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return &Drive{svc: svc, folderID: folderID}, nil
}

// Upload creates the file, grants anyone reader access and returns a
// direct download URL
func (d *Drive) Upload(ctx context.Context, videoFile string) (string, error) {
	f, err := os.Open(videoFile)
	if err != nil {
		return "", fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	if fi, err := f.Stat(); err == nil {
		log.Printf("[upload] File size: %.1f MB", float64(fi.Size())/1024/1024)
	}

	meta := &drive.File{
		Name:     filepath.Base(videoFile),
		MimeType: "video/mp4",
	}
	if d.folderID != "" {
		meta.Parents = []string{d.folderID}
	}

	created, err := d.svc.Files.Create(meta).
		Media(f).
		Fields("id").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("drive upload: %w", err)
	}

	perm := &drive.Permission{Type: "anyone", Role: "reader"}
	if _, err := d.svc.Permissions.Create(created.Id, perm).
		SupportsAllDrives(true).
		Context(ctx).
		Do(); err != nil {
		return "", fmt.Errorf("drive share %s: %w", created.Id, err)
	}

	url := DriveDownloadURL(created.Id)
	log.Printf("[upload] ✅ Uploaded to Drive: %s", url)
	return url, nil
}

// DriveDownloadURL is the public direct-download link for a Drive file
func DriveDownloadURL(fileID string) string {
	return fmt.Sprintf("https://drive.google.com/uc?export=download&id=%s", fileID)
}
