package httpapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	memclock "github.com/leadline/lead-import-api/internal/adapters/memory/clock"
	memidempotency "github.com/leadline/lead-import-api/internal/adapters/memory/idempotency"
	memleadrepo "github.com/leadline/lead-import-api/internal/adapters/memory/leadrepo"
	"github.com/leadline/lead-import-api/internal/adapters/spreadsheet"
	"github.com/leadline/lead-import-api/internal/app/imports"
)

const scenarioCSV = "Email,Lists\nJ@Co.com,\"Gold, gold\"\nj@co.com,Gold\n"

const cleanCSV = "Client Name,Email,Lists\nBob,bob@x.com,VIP\nada,ada@x.com,VIP\n"

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()

	clk := memclock.NewManualClock(time.Unix(100, 0).UTC())
	svc := imports.NewService(spreadsheet.NewDecoder(), memleadrepo.NewRepo(), clk, nil)
	api := NewServer(svc, memidempotency.NewStore(), clk, nil)
	h := NewRouter(api, RouterOptions{SubjectMiddleware: NewSubjectMiddleware("")})
	return api, h
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/imports/preview", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(SubjectHeader, "sub-1")
	return req
}

func commitRequest(t *testing.T, rows any, idemKey string) *http.Request {
	t.Helper()

	b, err := json.Marshal(map[string]any{"rows": rows})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/imports/commit", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SubjectHeader, "sub-1")
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode: %v body=%s", err, rec.Body.String())
	}
	return er
}

func preview(t *testing.T, h http.Handler, csv string) PreviewResponse {
	t.Helper()
	rec := serve(h, uploadRequest(t, "leads.csv", csv))
	if rec.Code != http.StatusOK {
		t.Fatalf("preview status=%d body=%s", rec.Code, rec.Body.String())
	}
	var out PreviewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestHealthz_NoSubjectRequired(t *testing.T) {
	t.Parallel()

	_, h := newTestServer(t)
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("status=%d body=%q", rec.Code, rec.Body.String())
	}
}

func TestLeads_MissingSubject_401(t *testing.T) {
	t.Parallel()

	_, h := newTestServer(t)
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/leads", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	er := decodeError(t, rec)
	if er.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("code=%q", er.Error.Code)
	}
	if rid, err := er.Error.RequestId.Get(); err != nil || rid == "" {
		t.Fatalf("requestId missing: %v", err)
	}
}

func TestPreview_ReportsDuplicateIssues(t *testing.T) {
	t.Parallel()

	_, h := newTestServer(t)
	out := preview(t, h, scenarioCSV)

	if !out.Blocked || len(out.ParsedRows) != 2 || len(out.DuplicateIssues) != 2 {
		t.Fatalf("preview=%+v", out)
	}
	if out.DuplicateIssues[0].RowNumber != 2 || out.DuplicateIssues[1].RowNumber != 3 {
		t.Fatalf("issues=%+v", out.DuplicateIssues)
	}
	if out.ParsedRows[0].Identity != "j@co.com" {
		t.Fatalf("identity=%q", out.ParsedRows[0].Identity)
	}
}

func TestPreview_Errors(t *testing.T) {
	t.Parallel()

	_, h := newTestServer(t)

	rec := serve(h, uploadRequest(t, "leads.pdf", "%PDF"))
	if rec.Code != http.StatusUnsupportedMediaType || decodeError(t, rec).Error.Code != "UNSUPPORTED_FORMAT" {
		t.Fatalf("unsupported: status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = serve(h, uploadRequest(t, "leads.csv", "Email,Lists\n"))
	if rec.Code != http.StatusUnprocessableEntity || decodeError(t, rec).Error.Code != "EMPTY_SHEET" {
		t.Fatalf("empty: status=%d body=%s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/imports/preview", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SubjectHeader, "sub-1")
	rec = serve(h, req)
	if rec.Code != http.StatusUnprocessableEntity || decodeError(t, rec).Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("not multipart: status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestPreview_UploadTooLarge_413(t *testing.T) {
	t.Parallel()

	api, h := newTestServer(t)
	api.MaxUploadBytes = 64

	rec := serve(h, uploadRequest(t, "leads.csv", cleanCSV+strings.Repeat("x@x.com,VIP\n", 20)))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestCommit_CreatesLeadsThenLists(t *testing.T) {
	t.Parallel()

	_, h := newTestServer(t)
	out := preview(t, h, cleanCSV)
	if out.Blocked {
		t.Fatalf("unexpected issues: %+v", out.DuplicateIssues)
	}

	rec := serve(h, commitRequest(t, out.ParsedRows, ""))
	if rec.Code != http.StatusCreated {
		t.Fatalf("commit status=%d body=%s", rec.Code, rec.Body.String())
	}
	var cr CommitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &cr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cr.Created != 2 || cr.Updated != 0 || len(cr.Leads) != 2 {
		t.Fatalf("commit=%+v", cr)
	}

	req := httptest.NewRequest(http.MethodGet, "/leads", nil)
	req.Header.Set(SubjectHeader, "sub-1")
	rec = serve(h, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status=%d body=%s", rec.Code, rec.Body.String())
	}
	var lr ListLeadsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &lr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(lr.Leads) != 2 || lr.Leads[0].ClientName != "ada" || lr.Leads[1].ClientName != "Bob" {
		t.Fatalf("leads=%+v", lr.Leads)
	}
	if lr.Leads[0].LeadId == (openapi_types.UUID{}) {
		t.Fatalf("leadId not set")
	}

	req = httptest.NewRequest(http.MethodGet, "/leads", nil)
	req.Header.Set(SubjectHeader, "sub-2")
	rec = serve(h, req)
	if err := json.Unmarshal(rec.Body.Bytes(), &lr); err != nil || len(lr.Leads) != 0 {
		t.Fatalf("other subject leads=%+v err=%v", lr.Leads, err)
	}
}

func TestCommit_BlockedByDuplicates_409(t *testing.T) {
	t.Parallel()

	_, h := newTestServer(t)
	out := preview(t, h, scenarioCSV)

	rec := serve(h, commitRequest(t, out.ParsedRows, ""))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	er := decodeError(t, rec)
	if er.Error.Code != "DUPLICATE_ISSUES" {
		t.Fatalf("code=%q", er.Error.Code)
	}
	details, err := er.Error.Details.Get()
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	issues, ok := details["duplicateIssues"].([]any)
	if !ok || len(issues) != 2 {
		t.Fatalf("details=%v", details)
	}
}

func TestCommit_InvalidBody(t *testing.T) {
	t.Parallel()

	_, h := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/imports/commit", strings.NewReader("{"))
	req.Header.Set(SubjectHeader, "sub-1")
	rec := serve(h, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = serve(h, commitRequest(t, []any{}, ""))
	if rec.Code != http.StatusUnprocessableEntity || decodeError(t, rec).Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("empty rows: status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestCommit_IdempotentReplayAndConflictOnReuse(t *testing.T) {
	t.Parallel()

	_, h := newTestServer(t)
	out := preview(t, h, cleanCSV)

	rec1 := serve(h, commitRequest(t, out.ParsedRows, "idem-12345678"))
	if rec1.Code != http.StatusCreated {
		t.Fatalf("first status=%d body=%s", rec1.Code, rec1.Body.String())
	}

	rec2 := serve(h, commitRequest(t, out.ParsedRows, "idem-12345678"))
	if rec2.Code != http.StatusCreated {
		t.Fatalf("replay status=%d body=%s", rec2.Code, rec2.Body.String())
	}
	if rec2.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("expected replay header")
	}
	if rec1.Body.String() != rec2.Body.String() {
		t.Fatalf("replay body differs:\n%s\n%s", rec1.Body.String(), rec2.Body.String())
	}

	rec3 := serve(h, commitRequest(t, out.ParsedRows[:1], "idem-12345678"))
	if rec3.Code != http.StatusConflict || decodeError(t, rec3).Error.Code != "IDEMPOTENCY_KEY_REUSE" {
		t.Fatalf("reuse status=%d body=%s", rec3.Code, rec3.Body.String())
	}

	// Without a key the same rows merge into the existing leads.
	rec4 := serve(h, commitRequest(t, out.ParsedRows, ""))
	var cr CommitResponse
	if err := json.Unmarshal(rec4.Body.Bytes(), &cr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cr.Created != 0 || cr.Updated != 2 {
		t.Fatalf("second commit=%+v", cr)
	}
}

func TestSubjectMiddleware_DefaultSubject(t *testing.T) {
	t.Parallel()

	var got string
	h := NewSubjectMiddleware("dev|local")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, _ := SubjectFromContext(r.Context())
		got = string(sub)
	}))

	serve(h, httptest.NewRequest(http.MethodGet, "/leads", nil))
	if got != "dev|local" {
		t.Fatalf("subject=%q, want dev|local", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/leads", nil)
	req.Header.Set(SubjectHeader, "  gw|alice ")
	serve(h, req)
	if got != "gw|alice" {
		t.Fatalf("subject=%q, want gw|alice", got)
	}
}
