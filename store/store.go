package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/clipforge/clipforge/clients"
	"github.com/clipforge/clipforge/render"
)

// Store is the fixed on-disk artifact layout, with an optional S3
// mirror of every artifact it writes.
type Store struct {
	Root     string
	S3       clients.S3
	S3Bucket string
}

func NewStore(root string) *Store {
	return &Store{Root: root}
}

// WithS3Mirror enables mirroring every written artifact to the given S3
// bucket, using the client built from S3_BUCKET/S3_REGION at startup.
func (s *Store) WithS3Mirror(client clients.S3, bucket string) *Store {
	s.S3 = client
	s.S3Bucket = bucket
	return s
}

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)

// SanitizeSourceID replaces every non-alphanumeric character in a
// filename with "_", producing the storage-unique source id.
func SanitizeSourceID(filename string) string {
	return nonAlphanumeric.ReplaceAllString(filename, "_")
}

func (s *Store) UploadsDir() string {
	return filepath.Join(s.Root, "uploads")
}

func (s *Store) OutputsDir(jobID string) string {
	return filepath.Join(s.Root, "outputs", jobID)
}

// UploadPath returns the uploads/<source-id>.<ext> path and ensures the
// uploads directory exists.
func (s *Store) UploadPath(sourceID, ext string) (string, error) {
	if err := os.MkdirAll(s.UploadsDir(), 0o755); err != nil {
		return "", fmt.Errorf("creating uploads dir: %w", err)
	}
	return filepath.Join(s.UploadsDir(), sourceID+ext), nil
}

// PrepareOutputsDir ensures outputs/<job-id> exists and returns its path.
func (s *Store) PrepareOutputsDir(jobID string) (string, error) {
	dir := s.OutputsDir(jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating outputs dir: %w", err)
	}
	return dir, nil
}

// Metadata is the on-disk metadata.json schema.
type Metadata struct {
	JobID          string         `json:"job_id"`
	Source         SourceMetadata `json:"source"`
	ConfigSnapshot interface{}    `json:"config_snapshot"`
	Clips          []ClipMetadata `json:"clips"`
}

type SourceMetadata struct {
	Path     string  `json:"path"`
	Duration float64 `json:"duration"`
}

type ClipMetadata struct {
	Index           int     `json:"index"`
	File            string  `json:"file"`
	StartSeconds    float64 `json:"start_seconds"`
	EndSeconds      float64 `json:"end_seconds"`
	DurationSeconds float64 `json:"duration_seconds"`
	ViralScore      float64 `json:"viral_score"`
	ViralTier       string  `json:"viral_tier"`
	Category        string  `json:"category"`
	Rationale       string  `json:"rationale"`
	ContextComplete bool    `json:"context_complete"`
	Fallback        bool    `json:"fallback"`
	HookText        string  `json:"hook_text,omitempty"`
	CaptionFile     string  `json:"caption_file,omitempty"`
}

func ClipMetadataFrom(c render.Clip) ClipMetadata {
	return ClipMetadata{
		Index:           c.Index,
		File:            c.File,
		StartSeconds:    c.StartSeconds,
		EndSeconds:      c.EndSeconds,
		DurationSeconds: c.DurationSeconds,
		ViralScore:      c.ViralScore,
		ViralTier:       c.ViralTier,
		Category:        c.Category,
		Rationale:       c.Rationale,
		ContextComplete: c.ContextComplete,
		Fallback:        c.Fallback,
		HookText:        c.HookText,
		CaptionFile:     c.CaptionFile,
	}
}

// WriteMetadata serializes metadata.json atomically (temp file + rename)
// into outputs/<job-id>/, then mirrors it to S3 if configured.
func (s *Store) WriteMetadata(jobID string, meta Metadata) error {
	dir, err := s.PrepareOutputsDir(jobID)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "metadata.json")

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing temp metadata file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming metadata file into place: %w", err)
	}

	s.mirror(jobID, "metadata.json", path)
	return nil
}

// MirrorClip uploads a rendered clip (and its caption sidecar, if any)
// to S3 when a mirror is configured. Failures are non-fatal: the local
// file remains the source of truth for downloads.
func (s *Store) MirrorClip(jobID string, c render.Clip) {
	dir := s.OutputsDir(jobID)
	s.mirror(jobID, c.File, filepath.Join(dir, c.File))
	if c.CaptionFile != "" {
		s.mirror(jobID, c.CaptionFile, filepath.Join(dir, c.CaptionFile))
	}
}

func (s *Store) mirror(jobID, name, localPath string) {
	if s.S3 == nil || s.S3Bucket == "" {
		return
	}
	key := fmt.Sprintf("outputs/%s/%s", jobID, name)
	_ = s.S3.PutFile(s.S3Bucket, key, localPath)
}

// CleanupJob removes a job's output directory.
func (s *Store) CleanupJob(jobID string) error {
	return os.RemoveAll(s.OutputsDir(jobID))
}
