package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/leadline/lead-import-api/internal/app/imports"
	clockport "github.com/leadline/lead-import-api/internal/ports/out/clock"
	"github.com/leadline/lead-import-api/internal/ports/out/idempotency"
)

const (
	commitRoute = "POST /imports/commit"

	// multipartMemory is the in-memory part of a parsed upload; the rest spills to disk.
	multipartMemory = 8 << 20
)

type Server struct {
	Imports *imports.Service
	Idem    idempotency.Store
	Clock   clockport.Clock
	Log     *zap.Logger

	// IdempotencyTTL bounds how long a commit response is replayable.
	IdempotencyTTL time.Duration
	// MaxUploadBytes caps request bodies for preview and commit.
	MaxUploadBytes int64
}

func NewServer(importsSvc *imports.Service, idem idempotency.Store, clk clockport.Clock, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		Imports:        importsSvc,
		Idem:           idem,
		Clock:          clk,
		Log:            log,
		IdempotencyTTL: 24 * time.Hour,
		MaxUploadBytes: 10 << 20,
	}
}

func (s *Server) PreviewImport(w http.ResponseWriter, r *http.Request) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isTooLarge(err) {
			writeUploadTooLarge(w, r, s.MaxUploadBytes)
			return
		}
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "expected a multipart/form-data upload", map[string]any{"file": "required"})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "missing upload", map[string]any{"file": "required"})
		return
	}
	defer f.Close()

	res, err := s.Imports.Preview(r.Context(), sub, imports.Upload{Filename: hdr.Filename, Body: f})
	if err != nil {
		s.logFailure(r, err)
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PreviewResponse{
		ParsedRows:      res.ParsedRows,
		DuplicateIssues: res.DuplicateIssues,
		Blocked:         res.HasIssues(),
	})
}

func (s *Server) CommitImport(w http.ResponseWriter, r *http.Request) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.MaxUploadBytes))
	if err != nil {
		if isTooLarge(err) {
			writeUploadTooLarge(w, r, s.MaxUploadBytes)
			return
		}
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "could not read request body", nil)
		return
	}
	var req CommitRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "request body must be JSON", nil)
		return
	}

	// Idempotency handling:
	// - same key + same body within the TTL replays the stored response
	// - same key + different body is a 409
	// - only 2xx responses are stored
	now := s.Clock.Now().UTC()
	var fp idempotency.Fingerprint
	idemKey := r.Header.Get("Idempotency-Key")
	if s.Idem != nil && idemKey != "" {
		sum := sha256.Sum256(body)
		fp = idempotency.Fingerprint{
			Key:      idempotency.Key(idemKey),
			Owner:    sub,
			Route:    commitRoute,
			BodyHash: hex.EncodeToString(sum[:]),
		}
		rec, found, err := s.Idem.Get(r.Context(), fp, now)
		if err != nil {
			s.logFailure(r, err)
			writeServiceError(w, r, err)
			return
		}
		if found {
			w.Header().Set("Idempotency-Replayed", "true")
			writeRaw(w, rec.StatusCode, rec.ContentType, rec.Body)
			return
		}
		inUse, err := s.Idem.KeyInUse(r.Context(), fp, now)
		if err != nil {
			s.logFailure(r, err)
			writeServiceError(w, r, err)
			return
		}
		if inUse {
			writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
			return
		}
	}

	res, err := s.Imports.Commit(r.Context(), sub, req.Rows)
	if err != nil {
		s.logFailure(r, err)
		writeServiceError(w, r, err)
		return
	}
	leads, err := toLeads(res.Leads)
	if err != nil {
		s.logFailure(r, err)
		writeServiceError(w, r, err)
		return
	}
	out, err := json.Marshal(CommitResponse{Created: res.Created, Updated: res.Updated, Leads: leads})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if fp.Key != "" {
		rec := idempotency.Record{
			StatusCode:  http.StatusCreated,
			ContentType: "application/json",
			Body:        out,
			CreatedAt:   now,
		}
		if s.IdempotencyTTL > 0 {
			rec.ExpiresAt = now.Add(s.IdempotencyTTL)
		}
		if err := s.Idem.Put(r.Context(), fp, rec); err != nil {
			// The import itself succeeded; a retry will upsert the same leads again.
			s.Log.Warn("store idempotency record", zap.Error(err), zap.String("idempotencyKey", idemKey))
		}
	}
	writeRaw(w, http.StatusCreated, "application/json", out)
}

func (s *Server) ListLeads(w http.ResponseWriter, r *http.Request) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	ls, err := s.Imports.ListLeads(r.Context(), sub)
	if err != nil {
		s.logFailure(r, err)
		writeServiceError(w, r, err)
		return
	}
	leads, err := toLeads(ls)
	if err != nil {
		s.logFailure(r, err)
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListLeadsResponse{Leads: leads})
}

func (s *Server) logFailure(r *http.Request, err error) {
	var ae *imports.Error
	if errors.As(err, &ae) {
		return
	}
	s.Log.Error("request failed", zap.Error(err), zap.String("path", r.URL.Path))
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || errors.Is(err, multipart.ErrMessageTooLarge)
}

func writeUploadTooLarge(w http.ResponseWriter, r *http.Request, limit int64) {
	writeError(w, r, http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE", "request body too large", map[string]any{"maxBytes": limit})
}
