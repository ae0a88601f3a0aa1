package timeline

import (
	"errors"
	"math"

	voice "narrated-video-pipeline/01_voice"
	"narrated-video-pipeline/types"
)

// ErrNoValidClips means no clip survived synthesis; nothing may be rendered
var ErrNoValidClips = errors.New("no valid clips")

// Place lays the surviving clips end to end from zero.
// Each start time is the running sum of the durations before it.
func Place(assets []*voice.NarrationAsset) (*types.MasterTimeline, error) {
	if len(assets) == 0 {
		return nil, ErrNoValidClips
	}

	tl := &types.MasterTimeline{Entries: make([]types.TimelineEntry, 0, len(assets))}
	var elapsed float64
	for i, a := range assets {
		tl.Entries = append(tl.Entries, types.TimelineEntry{
			Index:     i,
			StartTime: elapsed,
			Duration:  a.Duration,
			AudioRef:  a.Path,
		})
		elapsed += a.Duration
	}
	tl.TotalDuration = elapsed
	return tl, nil
}

// FrameCount is the number of video frames that cover e at fps. Both ends are
// rounded on the absolute timeline, so consecutive entries share boundaries
// and the counts always sum to round(total*fps).
func FrameCount(e types.TimelineEntry, fps int) int {
	rate := float64(fps)
	return int(math.Round(e.End()*rate)) - int(math.Round(e.StartTime*rate))
}
