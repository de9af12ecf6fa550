package handlers

import (
	"archive/zip"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/clipforge/clipforge/errors"
	"github.com/clipforge/clipforge/job"
)

// Download serves a single rendered clip or caption sidecar for
// GET /download/{job_id}/{file}.
func (h *ClipperAPIHandlersCollection) Download() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		jobID := params.ByName("job_id")
		file := params.ByName("file")

		if _, ok := h.Coordinator.Status(jobID); !ok {
			errors.WriteHTTPNotFound(w, "no such job_id", nil)
			return
		}
		path, ok := safeOutputPath(h.Store.OutputsDir(jobID), file)
		if !ok || !fileExists(path) {
			errors.WriteHTTPNotFound(w, "no such file", nil)
			return
		}
		http.ServeFile(w, r, path)
	}
}

// DownloadAll archives every clip and sidecar of a finished Job for
// GET /download-all/{job_id}.
func (h *ClipperAPIHandlersCollection) DownloadAll() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		jobID := params.ByName("job_id")

		snap, ok := h.Coordinator.Status(jobID)
		if !ok {
			errors.WriteHTTPNotFound(w, "no such job_id", nil)
			return
		}
		if snap.Status == job.StatusRunning || snap.Status == job.StatusQueued {
			errors.WriteHTTPConflict(w, "job is still running", nil)
			return
		}

		outputsDir := h.Store.OutputsDir(jobID)
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", "attachment; filename=\""+jobID+".zip\"")

		zw := zip.NewWriter(w)
		defer zw.Close()

		for _, clip := range snap.Clips {
			if err := addFileToZip(zw, outputsDir, clip.File); err != nil {
				errors.WriteHTTPInternalServerError(w, "could not archive clip", err)
				return
			}
			if clip.CaptionFile != "" {
				if err := addFileToZip(zw, outputsDir, clip.CaptionFile); err != nil {
					errors.WriteHTTPInternalServerError(w, "could not archive caption sidecar", err)
					return
				}
			}
		}
	}
}

func addFileToZip(zw *zip.Writer, dir, name string) error {
	path, ok := safeOutputPath(dir, name)
	if !ok {
		return nil
	}
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	return err
}

// safeOutputPath resolves name against dir, rejecting any path that
// escapes dir via "..".
func safeOutputPath(dir, name string) (string, bool) {
	if strings.Contains(name, "..") || strings.ContainsAny(name, "/\\") {
		return "", false
	}
	return filepath.Join(dir, name), true
}
