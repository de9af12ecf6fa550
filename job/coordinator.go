package job

import (
	"context"
	stderrors "errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clipforge/clipforge/cache"
	"github.com/clipforge/clipforge/config"
	"github.com/clipforge/clipforge/errors"
	"github.com/clipforge/clipforge/fuse"
	"github.com/clipforge/clipforge/log"
	"github.com/clipforge/clipforge/metrics"
	"github.com/clipforge/clipforge/render"
	"github.com/clipforge/clipforge/score"
	"github.com/clipforge/clipforge/selector"
	"github.com/clipforge/clipforge/speech"
	"github.com/clipforge/clipforge/store"
	"github.com/clipforge/clipforge/video"
	"github.com/clipforge/clipforge/visual"
)

var (
	// ErrJobNotFound means no Job exists for the given id — callers
	// should surface this as 404.
	ErrJobNotFound = stderrors.New("job not found")
	// ErrJobFinished means the Job already reached a terminal state —
	// callers should surface this as 409.
	ErrJobFinished = stderrors.New("job already finished")
	// ErrJobRunning means the Job is still in flight — callers should
	// surface this as 409.
	ErrJobRunning = stderrors.New("job is still running")
	// ErrCoordinatorBusy means every worker slot and queue position is
	// occupied — callers should surface this as 409 busy.
	ErrCoordinatorBusy = stderrors.New("coordinator busy")
)

// Coordinator is the single process-wide scheduler: it owns the Job
// table and the bounded queue, and drives exactly PROCESSING_CONCURRENCY
// workers, each servicing one Job at a time.
type Coordinator struct {
	Jobs *cache.Cache[*Job]

	Prober      *video.CachingProber
	Transcriber *speech.Transcriber
	Analyzer    *visual.Analyzer
	Store       *store.Store

	mu          sync.Mutex
	queue       chan string
	running     int
	concurrency int
	cooldown    time.Duration
}

func NewCoordinator(concurrency int, cooldown time.Duration, prober *video.CachingProber, transcriber *speech.Transcriber, analyzer *visual.Analyzer, artifacts *store.Store) *Coordinator {
	if concurrency < 1 {
		concurrency = 1
	}
	c := &Coordinator{
		Jobs:        cache.New[*Job](),
		Prober:      prober,
		Transcriber: transcriber,
		Analyzer:    analyzer,
		Store:       artifacts,
		queue:       make(chan string, concurrency),
		concurrency: concurrency,
		cooldown:    cooldown,
	}
	return c
}

// Start launches the worker pool. Call once, after every pipeline
// dependency is wired.
func (c *Coordinator) Start() {
	for i := 0; i < c.concurrency; i++ {
		go c.worker()
	}
}

// Enqueue admits a new Job, rejecting with ErrCoordinatorBusy if every
// worker is occupied and the queue is already at
// PROCESSING_CONCURRENCY capacity.
func (c *Coordinator) Enqueue(sourceID, sourceFilePath string, opts Options, cfg config.Pipeline) (string, error) {
	c.mu.Lock()
	busy := c.running >= c.concurrency && len(c.queue) >= c.concurrency
	c.mu.Unlock()
	if busy {
		return "", ErrCoordinatorBusy
	}

	id := uuid.NewString()
	j := newJob(id, sourceID, sourceFilePath, opts, cfg)
	c.Jobs.Store(id, j)

	select {
	case c.queue <- id:
	default:
		c.Jobs.Remove("", id)
		return "", ErrCoordinatorBusy
	}

	metrics.Metrics.JobsQueued.Set(float64(len(c.queue)))
	return id, nil
}

// Status returns a deep-copied snapshot of the Job's public fields, or
// false if no such Job exists.
func (c *Coordinator) Status(jobID string) (Snapshot, bool) {
	j := c.Jobs.Get(jobID)
	if j == nil {
		return Snapshot{}, false
	}
	return j.snapshot(), true
}

// Cancel sets the cooperative cancel flag. A queued Job is transitioned
// immediately; a running Job's worker observes the flag between stages.
func (c *Coordinator) Cancel(jobID string) error {
	j := c.Jobs.Get(jobID)
	if j == nil {
		return ErrJobNotFound
	}
	status := j.currentStatus()
	if status == StatusComplete || status == StatusError {
		return ErrJobFinished
	}
	j.cancel()
	return nil
}

// Cleanup removes a Job's artifacts and its record from the table.
// Rejects while the Job is running.
func (c *Coordinator) Cleanup(jobID string) error {
	j := c.Jobs.Get(jobID)
	if j == nil {
		return ErrJobNotFound
	}
	if j.currentStatus() == StatusRunning {
		return ErrJobRunning
	}
	if err := c.Store.CleanupJob(jobID); err != nil {
		return fmt.Errorf("removing job artifacts: %w", err)
	}
	c.Jobs.Remove("", jobID)
	return nil
}

func (c *Coordinator) worker() {
	for id := range c.queue {
		c.mu.Lock()
		c.running++
		running := c.running
		c.mu.Unlock()

		metrics.Metrics.JobsQueued.Set(float64(len(c.queue)))
		metrics.Metrics.JobsInFlight.Set(float64(running))

		j := c.Jobs.Get(id)
		if j != nil && j.currentStatus() == StatusQueued {
			if _, err := recovered(func() (struct{}, error) {
				c.runJob(j)
				return struct{}{}, nil
			}); err != nil && j.currentStatus() == StatusRunning {
				// runJob's own metrics already fired from its deferred
				// recorder during the panic unwind; this only repairs the
				// Job's terminal state so Status doesn't hang at "running".
				j.setError(errors.KindInternal, err.Error())
				j.appendLog(fmt.Sprintf("failed: %s", err.Error()))
			}
		}

		c.mu.Lock()
		c.running--
		running = c.running
		c.mu.Unlock()
		metrics.Metrics.JobsInFlight.Set(float64(running))

		time.Sleep(c.cooldown)
	}
}

// runJob drives exactly one Job through the pipeline stages, publishing
// progress at each canonical checkpoint and checking the cancel flag
// between stages.
func (c *Coordinator) runJob(j *Job) {
	requestID := j.ID
	j.StartedAt = config.Clock.GetTime()
	j.setStatus(StatusRunning)
	j.appendLog("job started")
	log.AddContext(requestID, "source_id", j.SourceID)

	start := time.Now()
	outcome := "error"
	errorKind := errors.Kind("")
	defer func() {
		j.FinishedAt = config.Clock.GetTime()
		metrics.Metrics.JobsTotal.WithLabelValues(outcome, string(errorKind)).Inc()
		metrics.Metrics.JobDurationSec.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}()

	fail := func(kind errors.Kind, message string) {
		j.setError(kind, message)
		j.appendLog(fmt.Sprintf("failed: %s", message))
		log.LogError(requestID, "job failed", errors.NewKindError(kind, message))
		errorKind = kind
	}

	if j.isCancelled() {
		fail(errors.KindCancelled, "cancelled before starting")
		return
	}

	probeStart := time.Now()
	source, err := c.Prober.ProbeSource(requestID, j.SourceID, j.SourceFilePath)
	metrics.Metrics.ProbeDurationSec.Observe(time.Since(probeStart).Seconds())
	if err != nil {
		fail(errors.AsKind(err), err.Error())
		return
	}
	j.setProgress(5, "probed source")

	if j.isCancelled() {
		fail(errors.KindCancelled, "cancelled after probe")
		return
	}

	j.setProgress(10, "transcribing")
	var segments []speech.Segment
	if source.HasAudio {
		segments, err = c.Transcriber.Transcribe(context.Background(), requestID, j.SourceFilePath, source.DurationSecs, j.Config)
		if err != nil {
			fail(errors.AsKind(err), err.Error())
			return
		}
	}
	j.setProgress(40, "transcription complete")

	if j.isCancelled() {
		fail(errors.KindCancelled, "cancelled after transcription")
		return
	}

	scenes, err := c.Analyzer.Analyze(requestID, j.SourceFilePath, source.DurationSecs, j.Config)
	if err != nil {
		fail(errors.AsKind(err), err.Error())
		return
	}
	j.setProgress(55, "visual analysis complete")

	if j.isCancelled() {
		fail(errors.KindCancelled, "cancelled after visual analysis")
		return
	}

	candidates := fuse.Fuse(scenes, segments)
	lexicon, err := score.LexiconForLanguage(j.Options.Language)
	if err != nil {
		fail(errors.KindInternal, err.Error())
		return
	}
	scorer := score.NewScorer(lexicon)
	scoreCfg := score.Config{Style: j.Options.Style, ClipMin: j.Config.ClipMin, ClipMax: j.Config.ClipMax}
	for i := range candidates {
		candidates[i] = scorer.Score(candidates[i], scoreCfg)
		if j.Options.UseHook && candidates[i].Scores["hook"] > 0 {
			candidates[i].HookText = firstSentence(candidates[i].Text)
		}
	}
	j.setProgress(70, "scored candidates")

	durationClass := j.Options.TargetDuration
	if durationClass == "" {
		durationClass = config.DurationClassAny
	}
	selected, err := selector.Select(candidates, selector.Config{
		DurationClass: durationClass,
		ClipMin:       j.Config.ClipMin,
		ClipMax:       j.Config.ClipMax,
		MinClipsFloor: j.Config.MinClipsFloor,
		MaxClips:      j.Config.MaxClips,
		MinViral:      j.Config.MinViral,
	}, source.DurationSecs)
	if err != nil {
		fail(errors.AsKind(err), err.Error())
		return
	}
	j.setProgress(75, "selected clips")

	if j.isCancelled() {
		fail(errors.KindCancelled, "cancelled after selection")
		return
	}

	outputDir, err := c.Store.PrepareOutputsDir(j.ID)
	if err != nil {
		fail(errors.KindInternal, err.Error())
		return
	}

	renderer := render.NewRenderer(j.Config.MaxParallelRenders, j.Options.AutoCaption)
	renderer.Cancelled = j.isCancelled
	renderOpts := render.Options{
		TargetWidth:    j.Config.TargetWidth,
		TargetHeight:   j.Config.TargetHeight,
		AspectRatio:    j.Options.AspectRatio,
		VideoBitrate:   j.Config.VideoBitrate,
		AudioBitrate:   j.Config.AudioBitrate,
		HookEnabled:    j.Config.HookEnabled && j.Options.UseHook,
		HookDuration:   j.Config.HookDuration,
		HookPosition:   j.Config.HookPosition,
		SilenceRemoval: j.Config.SilenceRemoval,
		SilenceDB:      j.Config.SilenceDB,
		MinSilence:     j.Config.MinSilence,
		SilencePad:     j.Config.SilencePad,
	}
	j.setProgress(80, "rendering clips")
	renderStart := time.Now()
	clips := renderer.RenderAll(context.Background(), requestID, j.SourceFilePath, outputDir, selected, renderOpts)
	metrics.Metrics.RenderDurationSec.Observe(time.Since(renderStart).Seconds())
	if len(clips) < len(selected) {
		metrics.Metrics.RenderFailures.WithLabelValues("drop").Add(float64(len(selected) - len(clips)))
	}
	j.setProgress(95, "rendering complete")

	if j.isCancelled() {
		fail(errors.KindCancelled, "cancelled during rendering")
		return
	}

	if len(clips) == 0 {
		fail(errors.KindRenderFailedAll, "every selected clip failed to render")
		return
	}

	clipMeta := make([]store.ClipMetadata, 0, len(clips))
	for _, clip := range clips {
		clipMeta = append(clipMeta, store.ClipMetadataFrom(clip))
		c.Store.MirrorClip(j.ID, clip)
	}
	j.setClips(clipMeta)

	err = c.Store.WriteMetadata(j.ID, store.Metadata{
		JobID:          j.ID,
		Source:         store.SourceMetadata{Path: j.SourceFilePath, Duration: source.DurationSecs},
		ConfigSnapshot: j.Config,
		Clips:          clipMeta,
	})
	if err != nil {
		fail(errors.KindInternal, err.Error())
		return
	}

	if len(clips) < j.Config.MinClipsFloor {
		warning := fmt.Sprintf("completed with warning: only %d of %d minimum clips produced", len(clips), j.Config.MinClipsFloor)
		j.setProgress(100, warning)
		j.appendLog(warning)
	} else {
		j.setProgress(100, "finalized")
	}
	j.setStatus(StatusComplete)
	outcome = "completed"
}

func firstSentence(text string) string {
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			return text[:i+1]
		}
	}
	if len(text) > 80 {
		return text[:80]
	}
	return text
}

// recovered wraps f in a panic recovery so a bug in one job's pipeline
// stage can't take down the worker goroutine it runs on.
func recovered[T any](f func() (T, error)) (t T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.LogNoRequestID("panic in job worker, recovering", "err", rec, "trace", string(debug.Stack()))
			err = fmt.Errorf("panic in job worker: %v", rec)
		}
	}()
	return f()
}
