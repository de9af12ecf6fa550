package job

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipforge/cache"
	"github.com/clipforge/clipforge/config"
	"github.com/clipforge/clipforge/errors"
	"github.com/clipforge/clipforge/store"
)

func newTestCoordinator(t *testing.T, concurrency int) *Coordinator {
	t.Helper()
	c := &Coordinator{
		Jobs:        cache.New[*Job](),
		Store:       store.NewStore(t.TempDir()),
		queue:       make(chan string, concurrency),
		concurrency: concurrency,
		cooldown:    0,
	}
	return c
}

func TestEnqueueRejectsWhenFullyBusy(t *testing.T) {
	c := newTestCoordinator(t, 1)
	c.running = 1
	c.queue <- "occupying-slot"

	_, err := c.Enqueue("src", "/tmp/src.mp4", Options{}, config.Pipeline{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCoordinatorBusy)
}

func TestEnqueueAdmitsJobWhenSlotAvailable(t *testing.T) {
	c := newTestCoordinator(t, 2)

	id, err := c.Enqueue("src", "/tmp/src.mp4", Options{}, config.Pipeline{})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	snap, ok := c.Status(id)
	require.True(t, ok)
	assert.Equal(t, StatusQueued, snap.Status)
}

func TestStatusUnknownJobReturnsFalse(t *testing.T) {
	c := newTestCoordinator(t, 1)
	_, ok := c.Status("does-not-exist")
	assert.False(t, ok)
}

func TestCancelQueuedJobTransitionsImmediately(t *testing.T) {
	c := newTestCoordinator(t, 1)
	id, err := c.Enqueue("src", "/tmp/src.mp4", Options{}, config.Pipeline{})
	require.NoError(t, err)

	require.NoError(t, c.Cancel(id))

	snap, ok := c.Status(id)
	require.True(t, ok)
	assert.Equal(t, StatusError, snap.Status)
	assert.Equal(t, errors.KindCancelled, snap.ErrorKind)
}

func TestCancelUnknownJobErrors(t *testing.T) {
	c := newTestCoordinator(t, 1)
	err := c.Cancel("does-not-exist")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestCancelAlreadyFinishedJobErrors(t *testing.T) {
	c := newTestCoordinator(t, 1)
	id, err := c.Enqueue("src", "/tmp/src.mp4", Options{}, config.Pipeline{})
	require.NoError(t, err)

	j := c.Jobs.Get(id)
	j.setStatus(StatusComplete)

	err = c.Cancel(id)
	assert.ErrorIs(t, err, ErrJobFinished)
}

func TestCleanupRejectsWhileRunning(t *testing.T) {
	c := newTestCoordinator(t, 1)
	id, err := c.Enqueue("src", "/tmp/src.mp4", Options{}, config.Pipeline{})
	require.NoError(t, err)

	j := c.Jobs.Get(id)
	j.setStatus(StatusRunning)

	err = c.Cleanup(id)
	assert.ErrorIs(t, err, ErrJobRunning)
}

func TestCleanupRemovesFinishedJobAndArtifacts(t *testing.T) {
	c := newTestCoordinator(t, 1)
	id, err := c.Enqueue("src", "/tmp/src.mp4", Options{}, config.Pipeline{})
	require.NoError(t, err)

	outputsDir, err := c.Store.PrepareOutputsDir(id)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(c.Store.Root, "outputs", id), outputsDir)

	j := c.Jobs.Get(id)
	j.setStatus(StatusComplete)

	require.NoError(t, c.Cleanup(id))

	_, ok := c.Status(id)
	assert.False(t, ok)
}

func TestFirstSentenceStopsAtTerminalPunctuation(t *testing.T) {
	assert.Equal(t, "Wait, what?", firstSentence("Wait, what? That's unbelievable."))
}

func TestFirstSentenceFallsBackToTruncation(t *testing.T) {
	long := ""
	for i := 0; i < 200; i++ {
		long += "a"
	}
	got := firstSentence(long)
	assert.Len(t, got, 80)
}

func TestRecoveredCapturesPanicAsError(t *testing.T) {
	_, err := recovered(func() (int, error) {
		panic("boom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestRecoveredPassesThroughNormalReturn(t *testing.T) {
	v, err := recovered(func() (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

