package upload

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Record describes one completed upload
type Record struct {
	JobID      string  `json:"job_id"`
	VideoURL   string  `json:"video_url"`
	Backend    string  `json:"backend"`
	Clips      int     `json:"clips"`
	Duration   float64 `json:"duration_sec"`
	UploadedAt string  `json:"uploaded_at"`
}

// LogUpload saves the upload record to logDir and returns the file path
func LogUpload(rec Record, logDir string) (string, error) {
	if rec.UploadedAt == "" {
		rec.UploadedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", err
	}

	logFile := filepath.Join(logDir, fmt.Sprintf("upload_%s_%s.json", time.Now().Format("20060102_150405"), rec.JobID))
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(logFile, data, 0644); err != nil {
		return "", err
	}

	log.Printf("[upload] Upload log saved: %s", logFile)
	return logFile, nil
}
