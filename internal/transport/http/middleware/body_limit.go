package middleware

import (
	"net/http"

	"ems/internal/transport/http/api"
)

// BodyLimit caps request bodies on mutating methods. Requests that declare an
// oversized Content-Length are refused up front; chunked bodies are cut off by
// MaxBytesReader when the handler reads past the cap.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBytes > 0 {
				switch r.Method {
				case http.MethodPost, http.MethodPut, http.MethodPatch:
					if r.ContentLength > maxBytes {
						api.Fail(w, http.StatusRequestEntityTooLarge, "invalid_input", "request body too large", GetRequestID(r.Context()))
						return
					}
					r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
