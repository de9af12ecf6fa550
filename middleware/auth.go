package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/clipforge/clipforge/errors"
	"github.com/clipforge/clipforge/log"
	"github.com/clipforge/clipforge/requests"
)

// IsAuthorized gates an endpoint behind the server's API token. The
// comparison is constant-time so the token can't be probed byte by byte.
func IsAuthorized(apiToken string, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			errors.WriteHTTPUnauthorized(w, "no authorization header", nil)
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(apiToken)) != 1 {
			log.Log(requests.GetRequestId(r), "rejected request with invalid api token",
				"remote", r.RemoteAddr, "uri", r.URL.RequestURI())
			errors.WriteHTTPUnauthorized(w, "invalid token", nil)
			return
		}

		next(w, r, ps)
	}
}
