package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/julienschmidt/httprouter"

	"github.com/clipforge/clipforge/errors"
	"github.com/clipforge/clipforge/log"
	"github.com/clipforge/clipforge/requests"
	"github.com/clipforge/clipforge/store"
)

var admittedContainerExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".mkv": true, ".webm": true, ".avi": true,
}

type UploadResponse struct {
	SourceID string  `json:"source_id"`
	Duration float64 `json:"duration"`
	Size     int64   `json:"size"`
}

// Upload admits a locally-uploaded source for POST /upload.
func (h *ClipperAPIHandlersCollection) Upload() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		requestID := requests.GetRequestId(r)

		if err := r.ParseMultipartForm(h.Config.MaxSourceSizeBytes); err != nil {
			errors.WriteHTTPBadRequest(w, "could not parse multipart upload", err)
			return
		}
		file, header, err := r.FormFile("source")
		if err != nil {
			errors.WriteHTTPBadRequest(w, "missing \"source\" form file", err)
			return
		}
		defer file.Close()

		ext := filepath.Ext(header.Filename)
		if !admittedContainerExtensions[ext] {
			errors.WriteHTTPUnsupportedMediaType(w, fmt.Sprintf("unsupported container extension %q", ext), nil)
			return
		}
		if header.Size > h.Config.MaxSourceSizeBytes {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}

		sourceID := store.SanitizeSourceID(header.Filename)
		destPath, err := h.Store.UploadPath(sourceID, ext)
		if err != nil {
			errors.WriteHTTPInternalServerError(w, "could not prepare upload destination", err)
			return
		}

		out, err := createFile(destPath)
		if err != nil {
			errors.WriteHTTPInternalServerError(w, "could not create upload destination", err)
			return
		}
		written, err := io.Copy(out, file)
		closeErr := out.Close()
		if err != nil || closeErr != nil {
			errors.WriteHTTPInternalServerError(w, "could not write uploaded file", err)
			return
		}

		source, err := h.Prober.ProbeSource(requestID, sourceID, destPath)
		if err != nil {
			log.Log(requestID, "rejecting unreadable upload", "err", err)
			errors.WriteHTTPUnprocessableEntity(w, "source is not a readable media container", err)
			return
		}
		if h.Config.MaxSourceDurationSecs > 0 && source.DurationSecs > h.Config.MaxSourceDurationSecs {
			_ = os.Remove(destPath)
			errors.WriteHTTPRequestEntityTooLarge(w, "source exceeds MAX_SOURCE_DURATION", nil)
			return
		}

		log.Log(requestID, "admitted uploaded source", "source_id", sourceID, "bytes", written)
		writeJSON(w, http.StatusOK, UploadResponse{
			SourceID: source.SourceID,
			Duration: source.DurationSecs,
			Size:     written,
		})
	}
}
