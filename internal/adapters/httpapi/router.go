package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type RouterOptions struct {
	// SubjectMiddleware resolves the importing user. Defaults to
	// NewSubjectMiddleware("") (header required).
	SubjectMiddleware func(http.Handler) http.Handler
	Logger            *zap.Logger
}

// NewRouter constructs the API HTTP router.
func NewRouter(s *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewRequestLogger(opts.Logger))
	r.Use(middleware.Recoverer)

	// Health endpoint is used for infra checks.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	subjectMW := opts.SubjectMiddleware
	if subjectMW == nil {
		subjectMW = NewSubjectMiddleware("")
	}
	r.Group(func(r chi.Router) {
		r.Use(subjectMW)
		r.Post("/imports/preview", s.PreviewImport)
		r.Post("/imports/commit", s.CommitImport)
		r.Get("/leads", s.ListLeads)
	})
	return r
}
