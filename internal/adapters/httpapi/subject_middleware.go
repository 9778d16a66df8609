package httpapi

import (
	"net/http"
	"strings"

	"github.com/leadline/lead-import-api/internal/domain"
)

// SubjectHeader carries the importing user's subject, set by the upstream gateway
// after it has authenticated the caller.
const SubjectHeader = "X-Importer-Subject"

// NewSubjectMiddleware stores the request subject in context. Requests without
// SubjectHeader fall back to defaultSubject; if that is empty too they get a 401.
func NewSubjectMiddleware(defaultSubject string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Health endpoint is unauthenticated.
			if r.URL.Path == "/healthz" {
				next.ServeHTTP(w, r)
				return
			}

			sub := strings.TrimSpace(r.Header.Get(SubjectHeader))
			if sub == "" {
				sub = strings.TrimSpace(defaultSubject)
			}
			if sub == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject (set "+SubjectHeader+")", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), domain.SubjectID(sub))))
		})
	}
}
