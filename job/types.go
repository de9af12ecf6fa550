package job

import (
	"strings"
	"sync"
	"time"

	"github.com/clipforge/clipforge/config"
	"github.com/clipforge/clipforge/errors"
	"github.com/clipforge/clipforge/store"
)

// Status is the coarse lifecycle state of a Job, reported by GET /status.
type Status string

const (
	StatusQueued   Status = "queued"
	StatusRunning  Status = "running"
	StatusComplete Status = "completed"
	StatusError    Status = "error"
)

const logRingSize = 10

// LogEntry is one line in a Job's bounded in-memory log ring.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// Options are the per-job fields accepted by POST /process, layered on
// top of the process-wide Pipeline config snapshot.
type Options struct {
	Language       string
	TargetDuration config.DurationClass
	Style          string
	UseHook        bool
	AutoCaption    bool
	AspectRatio    string
}

// Job is a single clip-generation run. Every mutable field is guarded by
// mu; readers take a Snapshot rather than touching fields directly, so a
// long status read never blocks a short progress write.
type Job struct {
	ID             string
	SourceID       string
	SourceFilePath string
	Options        Options
	Config         config.Pipeline

	mu        sync.Mutex
	status    Status
	progress  int
	message   string
	errorKind errors.Kind
	logRing   []LogEntry
	clips     []store.ClipMetadata
	cancelled bool

	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time
}

// Snapshot is a deep copy of a Job's public fields, safe to hand to any
// number of concurrent readers.
type Snapshot struct {
	ID        string               `json:"job_id"`
	Status    Status               `json:"status"`
	Progress  int                  `json:"progress"`
	Message   string               `json:"message"`
	ErrorKind errors.Kind          `json:"error_kind,omitempty"`
	Log       []LogEntry           `json:"log"`
	Clips     []store.ClipMetadata `json:"clips"`
}

func newJob(id, sourceID, sourceFilePath string, opts Options, cfg config.Pipeline) *Job {
	return &Job{
		ID:             id,
		SourceID:       sourceID,
		SourceFilePath: sourceFilePath,
		Options:        opts,
		Config:         cfg,
		status:         StatusQueued,
		CreatedAt:      config.Clock.GetTime(),
	}
}

func (j *Job) appendLog(message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.logRing = append(j.logRing, LogEntry{Time: config.Clock.GetTime(), Message: message})
	if len(j.logRing) > logRingSize {
		j.logRing = j.logRing[len(j.logRing)-logRingSize:]
	}
}

// setProgress advances the progress counter. Progress is monotone: a
// stage can never report a lower value than one already published.
func (j *Job) setProgress(progress int, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if progress > j.progress {
		j.progress = progress
	}
	if message != "" {
		j.message = message
	}
}

func (j *Job) setStatus(status Status) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = status
}

func (j *Job) setError(kind errors.Kind, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = StatusError
	j.errorKind = kind
	if kind != "" && !strings.HasPrefix(message, string(kind)) {
		message = string(kind) + ": " + message
	}
	j.message = message
}

func (j *Job) setClips(clips []store.ClipMetadata) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.clips = clips
}

// cancel flips the cooperative cancel flag; running work observes it
// between pipeline stages.
func (j *Job) cancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status == StatusComplete || j.status == StatusError {
		return false
	}
	j.cancelled = true
	if j.status == StatusQueued {
		j.status = StatusError
		j.errorKind = errors.KindCancelled
		j.message = "cancelled before a worker picked up the job"
	}
	return true
}

func (j *Job) isCancelled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cancelled
}

func (j *Job) snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	logCopy := make([]LogEntry, len(j.logRing))
	copy(logCopy, j.logRing)
	clipsCopy := make([]store.ClipMetadata, len(j.clips))
	copy(clipsCopy, j.clips)
	return Snapshot{
		ID:        j.ID,
		Status:    j.status,
		Progress:  j.progress,
		Message:   j.message,
		ErrorKind: j.errorKind,
		Log:       logCopy,
		Clips:     clipsCopy,
	}
}

func (j *Job) currentStatus() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}
