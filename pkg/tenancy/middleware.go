package tenancy

import (
	"encoding/json"
	"net/http"
)

// OrgHeader is the HTTP header used for organization resolution.
const OrgHeader = "X-Org-ID"

// UserHeader is the HTTP header carrying the authenticated user, populated by
// the auth proxy in front of the service.
const UserHeader = "X-Remote-User"

// Middleware resolves the organization scope for each request and stores it
// in the request context. Requests without an org header pass through with no
// org context; handlers that require one reject them.
func Middleware(store *Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			orgID := r.Header.Get(OrgHeader)
			if orgID == "" {
				next.ServeHTTP(w, r)
				return
			}

			org, err := store.GetOrganization(orgID)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":   "internal_error",
					"message": err.Error(),
				})
				return
			}
			if org == nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":   "bad_request",
					"message": "unknown organization " + orgID,
				})
				return
			}

			oc := OrgContext{
				OrgID: org.ID,
				User:  r.Header.Get(UserHeader),
			}
			next.ServeHTTP(w, r.WithContext(WithOrg(r.Context(), oc)))
		})
	}
}
