package auth

import (
	"net/http"

	pkghttp "github.com/dstrelow/gallerygate/pkg/http"
)

// RequirePrivilege returns a middleware that refuses requests whose principal
// lacks the given privilege bit. It must run inside the gate's middleware so a
// principal is present on the context.
func RequirePrivilege(privilege int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, ok := AccountFromContext(r.Context())
			if !ok {
				pkghttp.WriteUnauthorized(w, "Authentication required")
				return
			}

			if !account.HasPrivilege(privilege) {
				pkghttp.WriteForbidden(w, "Insufficient privileges")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
