package httpmiddleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"
)

// Auth rejects requests that do not carry the bearer token.
func Auth(token string) func(http.Handler) http.Handler {
	formattedToken := []byte(fmt.Sprintf("Bearer %s", token))

	return func(h http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			reqToken := []byte(r.Header.Get("Authorization"))

			if subtle.ConstantTimeCompare(reqToken, formattedToken) != 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			h.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}
