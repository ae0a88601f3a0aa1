package types

// ClipRequest is one narration segment supplied by the caller
type ClipRequest struct {
	VoiceText string `json:"voiceText"`
}

// JobRequest is the body of a video generation request
type JobRequest struct {
	ImageURL      string        `json:"image_url"`
	BackgroundURL string        `json:"background_url"`
	Clips         []ClipRequest `json:"clips"`
}

// JobResult is returned once the finished video has been uploaded
type JobResult struct {
	VideoURL string `json:"video_url"`
}

// TimelineEntry is one clip slot on the master timeline
type TimelineEntry struct {
	Index      int     `json:"index"`
	StartTime  float64 `json:"start_time"`
	Duration   float64 `json:"duration"`
	VisualClip string  `json:"visual_clip"`
	AudioRef   string  `json:"audio_ref"`
}

// End returns the timeline position where the entry stops
func (e TimelineEntry) End() float64 {
	return e.StartTime + e.Duration
}

// MasterTimeline is the ordered, gapless sequence of clip slots
type MasterTimeline struct {
	Entries       []TimelineEntry `json:"entries"`
	TotalDuration float64         `json:"total_duration"`
}

// EntryAt returns the index of the entry playing at time t.
// Times past the end map to the last entry.
func (tl *MasterTimeline) EntryAt(t float64) int {
	lo, hi := 0, len(tl.Entries)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if tl.Entries[mid].StartTime <= t {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// PeakEvent marks a window whose loudness crossed the blink threshold
type PeakEvent struct {
	Time float64 `json:"time"`
}

// Word is one transcribed word with timeline timestamps
type Word struct {
	Text  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// CaptionChunk is one caption display unit
type CaptionChunk struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Text      string  `json:"text"`
}
