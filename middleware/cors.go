package middleware

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// The API serves a browser-based uploader from another origin, so every
// endpoint answers CORS headers scoped to the methods and headers the
// surface actually uses (bearer auth, JSON bodies, the request-id echo).
const (
	corsAllowMethods = "GET, POST, DELETE, OPTIONS"
	corsAllowHeaders = "Authorization, Content-Type, requestID"
)

func AllowCORS() func(httprouter.Handle) httprouter.Handle {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = "*"
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", corsAllowMethods)

			// preflight requests need no handler behind them
			if r.Method == http.MethodOptions {
				w.Header().Set("allow", corsAllowMethods)
				w.Header().Set("content-length", "0")
				w.WriteHeader(http.StatusOK)
				return
			}

			next(w, r, ps)
		}
	}
}
