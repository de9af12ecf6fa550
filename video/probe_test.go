package video

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/vansante/go-ffprobe.v2"
)

func probeStream(codec string, mutate ...func(*ffprobe.Stream)) *ffprobe.Stream {
	s := &ffprobe.Stream{
		CodecType:    "video",
		CodecName:    codec,
		Width:        1920,
		Height:       1080,
		AvgFrameRate: "30/1",
		Duration:     "120.5",
	}
	for _, m := range mutate {
		m(s)
	}
	return s
}

func TestItRejectsWhenNoVideoTrackPresent(t *testing.T) {
	_, err := parseProbeOutput(&ffprobe.ProbeData{
		Streams: []*ffprobe.Stream{
			{
				CodecType: "audio",
			},
		},
	})
	require.ErrorContains(t, err, "no video stream found")
}

func TestItRejectsStillImageVideoCodecs(t *testing.T) {
	for _, codec := range []string{"mjpeg", "png", "gif"} {
		_, err := parseProbeOutput(&ffprobe.ProbeData{
			Streams: []*ffprobe.Stream{probeStream(codec)},
		})
		require.ErrorContains(t, err, "still-image codec")
	}
}

func TestItRejectsWhenFormatMissing(t *testing.T) {
	_, err := parseProbeOutput(&ffprobe.ProbeData{
		Streams: []*ffprobe.Stream{probeStream("h264")},
	})
	require.ErrorContains(t, err, "format information missing")
}

func TestItRejectsWhenDurationUndeterminable(t *testing.T) {
	_, err := parseProbeOutput(&ffprobe.ProbeData{
		Streams: []*ffprobe.Stream{probeStream("h264", func(s *ffprobe.Stream) {
			s.Duration = ""
		})},
		Format: &ffprobe.Format{Size: "1024"},
	})
	require.ErrorContains(t, err, "duration could not be determined")
}

func TestItFallsBackToContainerDuration(t *testing.T) {
	iv, err := parseProbeOutput(&ffprobe.ProbeData{
		Streams: []*ffprobe.Stream{probeStream("h264", func(s *ffprobe.Stream) {
			s.Duration = ""
		})},
		Format: &ffprobe.Format{Size: "1024", DurationSeconds: 88.25},
	})
	require.NoError(t, err)
	require.Equal(t, 88.25, iv.Duration)
}

func TestItAdmitsSourceWithoutBitrate(t *testing.T) {
	iv, err := parseProbeOutput(&ffprobe.ProbeData{
		Streams: []*ffprobe.Stream{probeStream("h264")},
		Format:  &ffprobe.Format{Size: "1024"},
	})
	require.NoError(t, err)
	track, err := iv.GetTrack(TrackTypeVideo)
	require.NoError(t, err)
	require.Equal(t, int64(0), track.Bitrate)
	require.Equal(t, int64(1920), track.Width)
	require.Equal(t, 30.0, track.FPS)
}

func TestItDetectsAudioTrack(t *testing.T) {
	iv, err := parseProbeOutput(&ffprobe.ProbeData{
		Streams: []*ffprobe.Stream{
			probeStream("h264"),
			{
				CodecType:  "audio",
				CodecName:  "aac",
				Channels:   2,
				SampleRate: "48000",
			},
		},
		Format: &ffprobe.Format{Size: "1024"},
	})
	require.NoError(t, err)
	audio, err := iv.GetTrack(TrackTypeAudio)
	require.NoError(t, err)
	require.Equal(t, "aac", audio.Codec)
	require.Equal(t, 48000, audio.SampleRate)
}

func TestParseFpsHandlesFractionsAndZeroDenominators(t *testing.T) {
	fps, err := parseFps("30000/1001")
	require.NoError(t, err)
	require.InDelta(t, 29.97, fps, 0.01)

	fps, err = parseFps("25")
	require.NoError(t, err)
	require.Equal(t, 25.0, fps)

	fps, err = parseFps("0/0")
	require.NoError(t, err)
	require.Equal(t, 0.0, fps)

	_, err = parseFps("30/0")
	require.ErrorContains(t, err, "invalid framerate denominator")
}
