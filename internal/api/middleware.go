package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/gorilla/mux"
)

// APIKeyMiddleware enforces API key authentication on every request routed
// through it.
//
// Behaviour:
//   - If mode != "apikey" or key() resolves empty, all requests are allowed
//     (pass-through).
//   - Otherwise the value of header is compared against key() in constant
//     time; a missing or incorrect key yields 401.
//
// key is a function so a hot-reloaded configuration takes effect without
// restarting the server.
func APIKeyMiddleware(mode, header string, key func() string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if mode != "apikey" {
				next.ServeHTTP(w, r)
				return
			}
			expected := key()
			if expected == "" {
				next.ServeHTTP(w, r)
				return
			}

			got := r.Header.Get(header)
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
				jsonErr(w, http.StatusUnauthorized, "invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
