package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/clipforge/clipforge/log"
	"github.com/xeipuuv/gojsonschema"
)

type APIError struct {
	Msg    string `json:"message"`
	Status int    `json:"status"`
	Err    error  `json:"-"`
}

func writeHttpError(w http.ResponseWriter, msg string, status int, err error) APIError {
	w.WriteHeader(status)

	var errorDetail string
	if err != nil {
		errorDetail = err.Error()
	}

	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg, "error_detail": errorDetail}); err != nil {
		log.LogNoRequestID("error writing HTTP error", "http_error_msg", msg, "error", err)
	}
	return APIError{msg, status, err}
}

// HTTP Errors
func WriteHTTPUnauthorized(w http.ResponseWriter, msg string, err error) APIError {
	return writeHttpError(w, msg, http.StatusUnauthorized, err)
}

func WriteHTTPBadRequest(w http.ResponseWriter, msg string, err error) APIError {
	return writeHttpError(w, msg, http.StatusBadRequest, err)
}

func WriteHTTPUnsupportedMediaType(w http.ResponseWriter, msg string, err error) APIError {
	return writeHttpError(w, msg, http.StatusUnsupportedMediaType, err)
}

func WriteHTTPNotFound(w http.ResponseWriter, msg string, err error) APIError {
	return writeHttpError(w, msg, http.StatusNotFound, err)
}

func WriteHTTPUnprocessableEntity(w http.ResponseWriter, msg string, err error) APIError {
	return writeHttpError(w, msg, http.StatusUnprocessableEntity, err)
}

func WriteHTTPConflict(w http.ResponseWriter, msg string, err error) APIError {
	return writeHttpError(w, msg, http.StatusConflict, err)
}

func WriteHTTPGatewayTimeout(w http.ResponseWriter, msg string, err error) APIError {
	return writeHttpError(w, msg, http.StatusGatewayTimeout, err)
}

func WriteHTTPRequestEntityTooLarge(w http.ResponseWriter, msg string, err error) APIError {
	return writeHttpError(w, msg, http.StatusRequestEntityTooLarge, err)
}

func WriteHTTPInternalServerError(w http.ResponseWriter, msg string, err error) APIError {
	return writeHttpError(w, msg, http.StatusInternalServerError, err)
}

func WriteHTTPBadBodySchema(where string, w http.ResponseWriter, errors []gojsonschema.ResultError) APIError {
	sb := strings.Builder{}
	sb.WriteString("Body validation error in ")
	sb.WriteString(where)
	sb.WriteString(" ")
	for i := 0; i < len(errors); i++ {
		sb.WriteString(errors[i].String())
		sb.WriteString(" ")
	}
	return writeHttpError(w, sb.String(), http.StatusBadRequest, nil)
}

// Wrapper marking an error as not worth retrying; IsUnretriable detects it.
// Every ObjectNotFoundError is wrapped in it.
type UnretriableError struct{ error }

func Unretriable(err error) error {
	return UnretriableError{err}
}

func (e UnretriableError) Unwrap() error {
	return e.error
}

// Returns whether the given error is an unretriable error.
func IsUnretriable(err error) bool {
	return errors.As(err, &UnretriableError{})
}

type ObjectNotFoundError struct {
	msg   string
	cause error
}

func (e ObjectNotFoundError) Error() string {
	return e.msg
}

func (e ObjectNotFoundError) Unwrap() error {
	return e.cause
}

func NewObjectNotFoundError(msg string, cause error) error {
	if cause != nil {
		msg = fmt.Sprintf("ObjectNotFoundError: %s: %s", msg, cause)
	} else {
		msg = fmt.Sprintf("ObjectNotFoundError: %s", msg)
	}
	// every not found is unretriable
	return Unretriable(ObjectNotFoundError{msg: msg, cause: cause})
}

// IsObjectNotFound checks if the error is an ObjectNotFoundError.
func IsObjectNotFound(err error) bool {
	return errors.As(err, &ObjectNotFoundError{})
}

var (
	UnauthorisedError = errors.New("UnauthorisedError")
	InvalidJWT        = errors.New("InvalidJWTError")
)

// Kind is the closed set of pipeline error kinds, surfaced in
// Job.message whenever a Job ends in status=error.
type Kind string

const (
	KindUnreadableMedia          Kind = "unreadable-media"
	KindSourceTooLarge           Kind = "source-too-large"
	KindTranscriptionUnreliable  Kind = "transcription-unreliable"
	KindVisualAnalysisFailed     Kind = "visual-analysis-failed"
	KindInsufficientMaterial     Kind = "insufficient-material"
	KindRenderFailedAll          Kind = "render-failed-all"
	KindBackendUnavailable       Kind = "backend-unavailable"
	KindCancelled                Kind = "cancelled"
	KindInternal                 Kind = "internal"
)

// KindError pairs a closed-set Kind with a human-readable message so a
// Job worker can set both Job.message and Job.errorKind from one value.
type KindError struct {
	Kind    Kind
	Message string
}

func (e KindError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func NewKindError(kind Kind, message string) error {
	return KindError{Kind: kind, Message: message}
}

// AsKind extracts the Kind from err if it (or something it wraps) is a
// KindError, defaulting to KindInternal for anything else.
func AsKind(err error) Kind {
	if err == nil {
		return ""
	}
	var ke KindError
	if errors.As(err, &ke) {
		return ke.Kind
	}
	return KindInternal
}
