package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/slatehq/slate/internal/models"
)

// RequireAdmin restricts the route to users with the admin global role.
// Project-level access is decided per project by the permissions engine,
// not here.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetGlobalRole(r.Context()) != models.GlobalRoleAdmin {
			jsonForbidden(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdminOrSelf allows access if the user is an admin or is accessing
// their own resource. Expects an {id} URL parameter.
func RequireAdminOrSelf(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := GetUserID(r.Context())

		if GetGlobalRole(r.Context()) == models.GlobalRoleAdmin {
			next.ServeHTTP(w, r)
			return
		}

		resourceID := chi.URLParam(r, "id")
		if resourceID != "" && resourceID == userID {
			next.ServeHTTP(w, r)
			return
		}

		jsonForbidden(w)
	})
}
