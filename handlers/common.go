package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"os"

	"github.com/xeipuuv/gojsonschema"

	"github.com/clipforge/clipforge/errors"
	"github.com/clipforge/clipforge/log"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.LogNoRequestID("error encoding JSON response", "err", err)
	}
}

func createFile(path string) (*os.File, error) {
	return os.Create(path)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func decodeValidatedJSON(w http.ResponseWriter, r *http.Request, schemaName string, dest interface{}) bool {
	schema := inputSchemasCompiled[schemaName]
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		errors.WriteHTTPInternalServerError(w, "cannot read request body", err)
		return false
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		errors.WriteHTTPBadRequest(w, "request body is not valid JSON", err)
		return false
	}
	if !result.Valid() {
		errors.WriteHTTPBadBodySchema(schemaName, w, result.Errors())
		return false
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		errors.WriteHTTPBadRequest(w, "invalid request payload", err)
		return false
	}
	return true
}
