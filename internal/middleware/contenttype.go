package middleware

import (
	"net/http"
	"strings"
)

// ContentType validates Content-Type headers for requests with bodies.
// JSON is required everywhere except image uploads, which arrive as
// multipart forms.
func ContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" || r.Method == "PATCH" || r.Method == "PUT" {
			contentType := strings.ToLower(r.Header.Get("Content-Type"))

			switch {
			case contentType == "":
				// Lifecycle endpoints (start/reset/retry) take no body
				if r.ContentLength > 0 {
					http.Error(w, "Content-Type header is required", http.StatusBadRequest)
					return
				}
			case strings.HasPrefix(contentType, "application/json"):
			case strings.HasPrefix(contentType, "multipart/form-data"):
			default:
				http.Error(w, "Content-Type must be application/json or multipart/form-data", http.StatusUnsupportedMediaType)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}
