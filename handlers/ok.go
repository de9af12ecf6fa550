package handlers

import (
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/clipforge/clipforge/log"
)

func (h *ClipperAPIHandlersCollection) Ok() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		if _, err := io.WriteString(w, "OK"); err != nil {
			log.LogNoRequestID("failed to write health check response", "err", err)
		}
	}
}
