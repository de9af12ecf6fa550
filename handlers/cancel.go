package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/clipforge/clipforge/errors"
	"github.com/clipforge/clipforge/job"
)

// Cancel requests cooperative cancellation of a Job for
// POST /cancel/{job_id}.
func (h *ClipperAPIHandlersCollection) Cancel() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		jobID := params.ByName("job_id")
		err := h.Coordinator.Cancel(jobID)
		switch {
		case err == nil:
			w.WriteHeader(http.StatusAccepted)
		case stderrors.Is(err, job.ErrJobNotFound):
			errors.WriteHTTPNotFound(w, "no such job_id", err)
		default:
			errors.WriteHTTPConflict(w, err.Error(), err)
		}
	}
}

// Cleanup drops a finished Job's artifacts for
// DELETE /cleanup/{job_id}.
func (h *ClipperAPIHandlersCollection) Cleanup() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		jobID := params.ByName("job_id")
		err := h.Coordinator.Cleanup(jobID)
		switch {
		case err == nil:
			w.WriteHeader(http.StatusNoContent)
		case stderrors.Is(err, job.ErrJobNotFound):
			errors.WriteHTTPNotFound(w, "no such job_id", err)
		default:
			errors.WriteHTTPConflict(w, err.Error(), err)
		}
	}
}
