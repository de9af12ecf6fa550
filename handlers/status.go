package handlers

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/clipforge/clipforge/errors"
)

// Status polls a Job's current state for GET /status/{job_id}.
func (h *ClipperAPIHandlersCollection) Status() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		jobID := params.ByName("job_id")
		snap, ok := h.Coordinator.Status(jobID)
		if !ok {
			errors.WriteHTTPNotFound(w, "no such job_id", nil)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}
