// internal/app/system/auth/apiauth.go
package auth

import (
	"net/http"

	"github.com/dalemusser/stratafolio/internal/app/system/jsonutil"
)

// RequireSignedInJSON ensures there is a user in context, replying with a
// 403 JSON body when there is not. Session-authenticated API routes use
// this instead of RequireSignedIn since redirects make no sense for JSON
// clients.
func RequireSignedInJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			jsonutil.Forbidden(w, "Authentication credentials were not provided.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
