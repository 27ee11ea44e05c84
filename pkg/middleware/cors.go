package middleware

import (
	"net/http"
	"strings"
)

// CORS sets CORS headers for allowed origins and answers preflight requests.
// allowed may contain exact origins or "*". Only exact matches are allowed
// credentials; a wildcard match gets "Access-Control-Allow-Origin: *".
func CORS(allowed []string) func(http.Handler) http.Handler {
	match := func(origin string) (exact, ok bool) {
		if origin == "" {
			return false, false
		}
		for _, a := range allowed {
			a = strings.TrimSpace(a)
			if a == origin {
				return true, true
			}
			if a == "*" {
				ok = true
			}
		}
		return false, ok
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if exact, ok := match(origin); ok {
				if exact {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Credentials", "true")
					w.Header().Set("Vary", "Origin")
				} else {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				}
				w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-Id")
				w.Header().Set("Access-Control-Max-Age", "86400")
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
