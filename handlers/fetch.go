package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/julienschmidt/httprouter"

	"github.com/clipforge/clipforge/errors"
	"github.com/clipforge/clipforge/fetch"
	"github.com/clipforge/clipforge/log"
	"github.com/clipforge/clipforge/requests"
	"github.com/clipforge/clipforge/store"
)

type FetchSourceRequest struct {
	URL     string `json:"url"`
	Quality string `json:"quality"`
}

type FetchSourceResponse struct {
	SourceID string  `json:"source_id"`
	Duration float64 `json:"duration"`
}

// Fetch admits a remote source via the Fetcher for POST /fetch.
func (h *ClipperAPIHandlersCollection) Fetch() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		requestID := requests.GetRequestId(r)

		var req FetchSourceRequest
		if !decodeValidatedJSON(w, r, "FetchSource", &req) {
			return
		}

		sourceID := store.SanitizeSourceID(filepath.Base(req.URL))
		destPath, err := h.Store.UploadPath(sourceID, ".mp4")
		if err != nil {
			errors.WriteHTTPInternalServerError(w, "could not prepare fetch destination", err)
			return
		}

		result, err := h.Fetcher.Fetch(r.Context(), requestID, fetch.Request{URL: req.URL, Quality: req.Quality}, destPath)
		if err != nil {
			switch errors.AsKind(err) {
			case errors.KindSourceTooLarge:
				errors.WriteHTTPRequestEntityTooLarge(w, "source exceeds MAX_SOURCE_SIZE", err)
			default:
				errors.WriteHTTPGatewayTimeout(w, "exhausted retries fetching source", err)
			}
			return
		}

		source, err := h.Prober.ProbeSource(requestID, sourceID, result.LocalPath)
		if err != nil {
			log.Log(requestID, "rejecting unreadable fetched source", "err", err)
			errors.WriteHTTPUnprocessableEntity(w, "fetched source is not a readable media container", err)
			return
		}
		if h.Config.MaxSourceDurationSecs > 0 && source.DurationSecs > h.Config.MaxSourceDurationSecs {
			_ = os.Remove(result.LocalPath)
			errors.WriteHTTPRequestEntityTooLarge(w, "source exceeds MAX_SOURCE_DURATION", nil)
			return
		}

		log.Log(requestID, "admitted fetched source", "source_id", sourceID, "bytes", result.SizeBytes)
		writeJSON(w, http.StatusOK, FetchSourceResponse{
			SourceID: source.SourceID,
			Duration: source.DurationSecs,
		})
	}
}
