package handlers

import (
	stderrors "errors"
	"net/http"
	"path/filepath"

	"github.com/julienschmidt/httprouter"

	"github.com/clipforge/clipforge/config"
	"github.com/clipforge/clipforge/errors"
	"github.com/clipforge/clipforge/job"
	"github.com/clipforge/clipforge/log"
	"github.com/clipforge/clipforge/requests"
)

type ProcessJobRequest struct {
	SourceID       string `json:"source_id"`
	Language       string `json:"language"`
	TargetDuration string `json:"target_duration"`
	Style          string `json:"style"`
	UseHook        bool   `json:"use_hook"`
	AutoCaption    bool   `json:"auto_caption"`
	AspectRatio    string `json:"aspect_ratio"`
}

type ProcessJobResponse struct {
	JobID string `json:"job_id"`
}

// Process enqueues a Job against a previously admitted source for
// POST /process.
func (h *ClipperAPIHandlersCollection) Process() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req ProcessJobRequest
		if !decodeValidatedJSON(w, r, "ProcessJob", &req) {
			return
		}

		sourcePath, ok := h.locateSource(req.SourceID)
		if !ok {
			errors.WriteHTTPNotFound(w, "no such source_id", nil)
			return
		}

		opts := job.Options{
			Language:       req.Language,
			TargetDuration: config.DurationClass(req.TargetDuration),
			Style:          req.Style,
			UseHook:        req.UseHook,
			AutoCaption:    req.AutoCaption,
			AspectRatio:    req.AspectRatio,
		}

		jobID, err := h.Coordinator.Enqueue(req.SourceID, sourcePath, opts, h.Config)
		if err != nil {
			if stderrors.Is(err, job.ErrCoordinatorBusy) {
				errors.WriteHTTPConflict(w, "busy", err)
				return
			}
			errors.WriteHTTPInternalServerError(w, "could not enqueue job", err)
			return
		}

		log.Log(requests.GetRequestId(r), "enqueued job", "job_id", jobID, "source_id", req.SourceID)
		writeJSON(w, http.StatusAccepted, ProcessJobResponse{JobID: jobID})
	}
}

// locateSource resolves a source_id to its on-disk upload path, trying
// every admitted container extension since the id alone doesn't carry
// the extension.
func (h *ClipperAPIHandlersCollection) locateSource(sourceID string) (string, bool) {
	for ext := range admittedContainerExtensions {
		candidate := filepath.Join(h.Store.UploadsDir(), sourceID+ext)
		if fileExists(candidate) {
			return candidate, true
		}
	}
	return "", false
}
