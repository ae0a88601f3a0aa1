package effects

import (
	"narrated-video-pipeline/media"
	"narrated-video-pipeline/types"
)

// DetectPeaks splits the track into back-to-back windows of frameMs and
// reports the start of every window louder than thresholdDb (dBFS).
// The trailing partial window is measured over whatever samples remain.
func DetectPeaks(buf *media.Buffer, frameMs int, thresholdDb float64) []types.PeakEvent {
	step := buf.FramesFor(float64(frameMs) / 1000)
	if step < 1 {
		step = 1
	}

	var peaks []types.PeakEvent
	total := buf.Frames()
	for start := 0; start < total; start += step {
		window := buf.Slice(start, start+step)
		if window.RMSdBFS() > thresholdDb {
			peaks = append(peaks, types.PeakEvent{
				Time: float64(start) / float64(buf.SampleRate),
			})
		}
	}
	return peaks
}
