package itest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leadline/lead-import-api/internal/adapters/httpapi"
	memclock "github.com/leadline/lead-import-api/internal/adapters/memory/clock"
	memidempotency "github.com/leadline/lead-import-api/internal/adapters/memory/idempotency"
	memleadrepo "github.com/leadline/lead-import-api/internal/adapters/memory/leadrepo"
	pgidempotency "github.com/leadline/lead-import-api/internal/adapters/postgres/idempotency"
	pgleadrepo "github.com/leadline/lead-import-api/internal/adapters/postgres/leadrepo"
	postgres_testutil "github.com/leadline/lead-import-api/internal/adapters/postgres/testutil"
	"github.com/leadline/lead-import-api/internal/adapters/spreadsheet"
	"github.com/leadline/lead-import-api/internal/adapters/sqlite"
	sqliteleadrepo "github.com/leadline/lead-import-api/internal/adapters/sqlite/leadrepo"
	"github.com/leadline/lead-import-api/internal/app/imports"
	idempotencyport "github.com/leadline/lead-import-api/internal/ports/out/idempotency"
	leadrepoport "github.com/leadline/lead-import-api/internal/ports/out/leadrepo"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
	backendSQLite   backend = "sqlite"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory, backendSQLite}
	case "postgres":
		return []backend{backendPostgres}
	case "sqlite":
		return []backend{backendSQLite}
	case "all":
		return []backend{backendMemory, backendSQLite, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|sqlite|postgres|all)")
		return nil
	}
}

type testServer struct {
	baseURL string
	client  *http.Client
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	var (
		leadRepo  leadrepoport.Repository
		idemStore idempotencyport.Store
	)

	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		leadRepo = pgleadrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool)
	case backendSQLite:
		db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "itest.db"))
		if err != nil {
			t.Fatalf("sqlite.Open: %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })
		leadRepo = sqliteleadrepo.NewRepo(db)
		idemStore = memidempotency.NewStore()
	case backendMemory:
		leadRepo = memleadrepo.NewRepo()
		idemStore = memidempotency.NewStore()
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	svc := imports.NewService(spreadsheet.NewDecoder(), leadRepo, clk, nil)
	api := httpapi.NewServer(svc, idemStore, clk, nil)

	// Empty default subject: requests MUST provide the subject header, allowing
	// coverage of the 401 path.
	handler := httpapi.NewRouter(api, httpapi.RouterOptions{SubjectMiddleware: httpapi.NewSubjectMiddleware("")})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL: srv.URL,
		client:  srv.Client(),
	}
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) do(t *testing.T, req *http.Request, subject string) (int, []byte, http.Header) {
	t.Helper()

	req.Header.Set("Accept", "application/json")
	if subject != "" {
		req.Header.Set(httpapi.SubjectHeader, subject)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

func (s *testServer) doJSON(t *testing.T, method string, path string, subject string, body any, headers map[string]string) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return s.do(t, req, subject)
}

func (s *testServer) upload(t *testing.T, subject string, filename string, content []byte) (int, []byte) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, s.url("/imports/preview"), &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	status, body, _ := s.do(t, req, subject)
	return status, body
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	if status != wantStatus {
		t.Fatalf("status=%d want=%d body=%s", status, wantStatus, string(body))
	}
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}
