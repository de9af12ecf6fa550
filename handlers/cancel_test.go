package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipforge/job"
)

func TestCancelQueuedJobReturns202(t *testing.T) {
	h := newTestHandlers(t)
	jobID, err := h.Coordinator.Enqueue("src", "/tmp/src.mp4", job.Options{}, h.Config)
	require.NoError(t, err)

	router := httprouter.New()
	router.POST("/cancel/:job_id", h.Cancel())

	req, _ := http.NewRequest("POST", "/cancel/"+jobID, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusAccepted, rr.Code)
}

func TestCancelUnknownJobReturns404(t *testing.T) {
	h := newTestHandlers(t)
	router := httprouter.New()
	router.POST("/cancel/:job_id", h.Cancel())

	req, _ := http.NewRequest("POST", "/cancel/does-not-exist", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCleanupAfterCancelSucceeds(t *testing.T) {
	h := newTestHandlers(t)
	jobID, err := h.Coordinator.Enqueue("src", "/tmp/src.mp4", job.Options{}, h.Config)
	require.NoError(t, err)
	require.NoError(t, h.Coordinator.Cancel(jobID))

	snap, ok := h.Coordinator.Status(jobID)
	require.True(t, ok)
	require.Equal(t, job.StatusError, snap.Status)

	router := httprouter.New()
	router.DELETE("/cleanup/:job_id", h.Cleanup())

	req, _ := http.NewRequest("DELETE", "/cleanup/"+jobID, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
}
