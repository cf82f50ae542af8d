package middleware

import (
	"net/http"

	authcore "github.com/squadbook/authcore"
)

// CsrfHeader is the request header carrying the anti-forgery value.
const CsrfHeader = "X-Csrf-Token"

// RequireCsrf checks the X-Csrf-Token header against the session's stored
// value for state-changing methods. Must run inside [Guard]: the identity
// in the request context names the session to check. GET, HEAD, and
// OPTIONS pass through untouched.
func RequireCsrf(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			identity, ok := IdentityFromContext(r.Context())
			if !ok || engine == nil {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			presented := r.Header.Get(CsrfHeader)
			if err := engine.ValidateCsrfToken(r.Context(), identity.UserID, presented); err != nil {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
