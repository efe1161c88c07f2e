package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Auth rejects requests that do not present apiKey. Paths listed in public
// and CORS preflights pass without a key; an empty apiKey turns the check
// off.
func Auth(apiKey string, public ...string) Middleware {
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		want := []byte(apiKey)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || isPublic(r.URL.Path, public) {
				next.ServeHTTP(w, r)
				return
			}
			got := presentedKey(r)
			switch {
			case got == "":
				writeError(w, http.StatusUnauthorized, "api key required")
			case subtle.ConstantTimeCompare([]byte(got), want) != 1:
				writeError(w, http.StatusUnauthorized, "api key rejected")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func isPublic(path string, public []string) bool {
	for _, p := range public {
		if path == p {
			return true
		}
	}
	return false
}

// presentedKey looks at the Authorization bearer token, the X-API-Key
// header and finally the api_key query parameter that browser websocket
// clients use.
func presentedKey(r *http.Request) string {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return key
	}
	return r.URL.Query().Get("api_key")
}
