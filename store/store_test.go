package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipforge/render"
)

func TestSanitizeSourceIDReplacesNonAlphanumerics(t *testing.T) {
	assert.Equal(t, "my_video__2024_", SanitizeSourceID("my video (2024)"))
}

func TestUploadPathCreatesUploadsDir(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)

	path, err := s.UploadPath("abc123", ".mp4")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "uploads", "abc123.mp4"), path)

	info, err := os.Stat(filepath.Join(root, "uploads"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWriteMetadataIsAtomicAndReadable(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)

	meta := Metadata{
		JobID:  "job-1",
		Source: SourceMetadata{Path: "uploads/abc.mp4", Duration: 120},
		Clips: []ClipMetadata{
			ClipMetadataFrom(render.Clip{Index: 1, File: "clip_001.mp4", ViralScore: 0.7, ViralTier: "medium"}),
		},
	}

	err := s.WriteMetadata("job-1", meta)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(s.OutputsDir("job-1"), "metadata.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"job_id": "job-1"`)
	assert.Contains(t, string(data), "clip_001.mp4")

	_, err = os.Stat(filepath.Join(s.OutputsDir("job-1"), "metadata.json.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestCleanupJobRemovesOutputsDir(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)
	require.NoError(t, s.WriteMetadata("job-2", Metadata{JobID: "job-2"}))

	err := s.CleanupJob("job-2")
	require.NoError(t, err)

	_, err = os.Stat(s.OutputsDir("job-2"))
	assert.True(t, os.IsNotExist(err))
}
