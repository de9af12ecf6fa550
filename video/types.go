package video

import "fmt"

const (
	TrackTypeVideo = "video"
	TrackTypeAudio = "audio"
)

// InputVideo is the raw shape of a probe result, independent of any
// particular job: every track the container exposes, however many there are.
type InputVideo struct {
	Format    string       `json:"format,omitempty"`
	Tracks    []InputTrack `json:"tracks,omitempty"`
	Duration  float64      `json:"duration,omitempty"`
	SizeBytes int64        `json:"size,omitempty"`
}

// GetTrack returns the first track of the given type, or an error if none
// is present.
func (i InputVideo) GetTrack(trackType string) (InputTrack, error) {
	if trackType != TrackTypeVideo && trackType != TrackTypeAudio {
		return InputTrack{}, fmt.Errorf("invalid track type - must be '%s' or '%s'", TrackTypeVideo, TrackTypeAudio)
	}
	for _, t := range i.Tracks {
		if t.Type == trackType {
			return t, nil
		}
	}
	return InputTrack{}, fmt.Errorf("no '%s' tracks found", trackType)
}

type VideoTrack struct {
	Width              int64   `json:"width,omitempty"`
	Height             int64   `json:"height,omitempty"`
	PixelFormat        string  `json:"pixel_format,omitempty"`
	FPS                float64 `json:"fps,omitempty"`
	Rotation           int64   `json:"rotation,omitempty"`
	DisplayAspectRatio string  `json:"display_aspect_ratio,omitempty"`
}

type AudioTrack struct {
	Channels   int `json:"channels,omitempty"`
	SampleRate int `json:"sample_rate,omitempty"`
	SampleBits int `json:"sample_bits,omitempty"`
	BitDepth   int `json:"bit_depth,omitempty"`
}

type InputTrack struct {
	Type        string  `json:"type"`
	Codec       string  `json:"codec"`
	Bitrate     int64   `json:"bitrate"`
	DurationSec float64 `json:"duration"`
	SizeBytes   int64   `json:"size"`

	VideoTrack
	AudioTrack
}

// SourceVideo is an admitted, immutable source the pipeline clips from.
// SourceID is storage-unique and doubles as the directory/file-naming key
// in the artifact store.
type SourceVideo struct {
	SourceID       string  `json:"source_id"`
	Path           string  `json:"path"`
	DurationSecs   float64 `json:"duration_secs"`
	FPS            float64 `json:"fps"`
	Width          int64   `json:"width"`
	Height         int64   `json:"height"`
	ContainerCodec string  `json:"container_codec"`
	HasAudio       bool    `json:"has_audio"`
}

// FromProbe builds the admitted SourceVideo record out of a raw probe
// result. The source's duration/fps/dimensions are fixed at admission and
// never re-derived later in the pipeline.
func FromProbe(sourceID, path string, iv InputVideo) (SourceVideo, error) {
	videoTrack, err := iv.GetTrack(TrackTypeVideo)
	if err != nil {
		return SourceVideo{}, err
	}
	_, audioErr := iv.GetTrack(TrackTypeAudio)

	return SourceVideo{
		SourceID:       sourceID,
		Path:           path,
		DurationSecs:   iv.Duration,
		FPS:            videoTrack.FPS,
		Width:          videoTrack.Width,
		Height:         videoTrack.Height,
		ContainerCodec: fmt.Sprintf("%s/%s", iv.Format, videoTrack.Codec),
		HasAudio:       audioErr == nil,
	}, nil
}
