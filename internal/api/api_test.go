package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjy-dev/covingest/internal/api"
	"github.com/zjy-dev/covingest/internal/config"
	"github.com/zjy-dev/covingest/internal/coverage"
	"github.com/zjy-dev/covingest/internal/store"
)

const goReport = "mode: atomic\ngithub.com/owner/repo/file.go:1.2,3.4 5 6\ngithub.com/owner/repo/file.go:7.8,9.10 11 12\n"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s, err := store.Open(store.Options{DSN: filepath.Join(t.TempDir(), "api.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return api.NewRouter(s, 1024)
}

func do(t *testing.T, router http.Handler, method, target, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequestWithContext(t.Context(), method, target, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decode[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &v), recorder.Body.String())
	return v
}

func TestPing(t *testing.T) {
	router := newTestRouter(t)
	recorder := do(t, router, http.MethodGet, "/v0/ping", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, decode[map[string]string](t, recorder), "timestamp")
}

func TestCreateAndGetReport(t *testing.T) {
	router := newTestRouter(t)

	recorder := do(t, router, http.MethodPost, "/v0/reports?name=unit", goReport)
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())
	created := decode[api.CreatedResponse](t, recorder)
	assert.Equal(t, "go", created.Format)
	assert.Equal(t, 2, created.Regions)
	require.NoError(t, uuid.Validate(created.ID))

	recorder = do(t, router, http.MethodGet, "/v0/reports/"+created.ID, "")
	require.Equal(t, http.StatusOK, recorder.Code)
	got := decode[api.ReportResponse](t, recorder)
	assert.Equal(t, "unit", got.Name)
	assert.Equal(t, "go", got.Format)
	assert.Equal(t, []coverage.Region{
		{File: "github.com/owner/repo/file.go", From: coverage.Position{Line: 1, Column: 2}, To: coverage.Position{Line: 3, Column: 4}, Statements: 5, Executions: 6},
		{File: "github.com/owner/repo/file.go", From: coverage.Position{Line: 7, Column: 8}, To: coverage.Position{Line: 9, Column: 10}, Statements: 11, Executions: 12},
	}, got.Regions)

	recorder = do(t, router, http.MethodGet, "/v0/reports?name=unit", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	list := decode[struct {
		Reports []store.Entry `json:"reports"`
	}](t, recorder)
	require.Len(t, list.Reports, 1)
	assert.Equal(t, created.ID, list.Reports[0].ID)

	recorder = do(t, router, http.MethodDelete, "/v0/reports/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	recorder = do(t, router, http.MethodGet, "/v0/reports/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestCreateReport_ForcedFormat(t *testing.T) {
	router := newTestRouter(t)

	recorder := do(t, router, http.MethodPost, "/v0/reports?name=js&format=lcov", "TN:\nSF:test.js\nDA:1,1\nend_of_record\n")
	require.Equal(t, http.StatusCreated, recorder.Code)
	assert.Equal(t, "lcov", decode[api.CreatedResponse](t, recorder).Format)

	recorder = do(t, router, http.MethodPost, "/v0/reports?name=js&format=jacoco", goReport)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = do(t, router, http.MethodPost, "/v0/reports?name=js&format=cobertura", goReport)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, api.CodeInvalidFormat, decode[api.ErrorResponse](t, recorder).Code)
}

func TestInvalidReportsAreGeneric(t *testing.T) {
	router := newTestRouter(t)

	tests := map[string]string{
		"unknown mode":       "mode: unknown\ngithub.com/owner/repo/file.go:1.2,3.4 5 6",
		"unterminated lcov":  "TN:\nSF:test.js\n",
		"zero line":          "mode: set\na.go:0.1,3.4 1 1",
		"statement overflow": `<report name="r"><package name="p"><sourcefile name="F"><line nr="1" mi="4294967295" ci="1" mb="0" cb="0"/></sourcefile></package></report>`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			for _, target := range []string{"/v0/reports?name=bad", "/v0/parse"} {
				recorder := do(t, router, http.MethodPost, target, body)
				assert.Equal(t, http.StatusBadRequest, recorder.Code)
				assert.Equal(t, api.ErrorResponse{
					Code:    api.CodeInvalidReport,
					Message: "the report was formatted incorrectly",
				}, decode[api.ErrorResponse](t, recorder))
			}
		})
	}
}

func TestParseOnly(t *testing.T) {
	router := newTestRouter(t)

	recorder := do(t, router, http.MethodPost, "/v0/parse", goReport)
	require.Equal(t, http.StatusOK, recorder.Code)
	parsed := decode[api.ParsedResponse](t, recorder)
	assert.Equal(t, "go", parsed.Format)
	assert.Len(t, parsed.Regions, 2)

	recorder = do(t, router, http.MethodGet, "/v0/reports", "")
	assert.Empty(t, decode[struct {
		Reports []store.Entry `json:"reports"`
	}](t, recorder).Reports)
}

func TestCreateReport_MissingName(t *testing.T) {
	router := newTestRouter(t)
	recorder := do(t, router, http.MethodPost, "/v0/reports", goReport)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, api.CodeInvalidQuery, decode[api.ErrorResponse](t, recorder).Code)
}

func TestBodyTooLarge(t *testing.T) {
	router := newTestRouter(t)
	recorder := do(t, router, http.MethodPost, "/v0/reports?name=big", strings.Repeat("x", 2048))
	assert.Equal(t, http.StatusRequestEntityTooLarge, recorder.Code)
	assert.Equal(t, api.CodeReportTooLarge, decode[api.ErrorResponse](t, recorder).Code)
}

func TestGetReport_NotFound(t *testing.T) {
	router := newTestRouter(t)
	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		recorder := do(t, router, http.MethodGet, "/v0/reports/"+id, "")
		assert.Equal(t, http.StatusNotFound, recorder.Code, id)
		assert.Equal(t, api.CodeNotFound, decode[api.ErrorResponse](t, recorder).Code)
	}
}

func TestListReports_BadLimit(t *testing.T) {
	router := newTestRouter(t)
	recorder := do(t, router, http.MethodGet, "/v0/reports?limit=-3", "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestAcceptHeader(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		accept string
		want   int
	}{
		{accept: "", want: http.StatusOK},
		{accept: "application/json", want: http.StatusOK},
		{accept: "text/html, */*;q=0.8", want: http.StatusOK},
		{accept: "application/*", want: http.StatusOK},
		{accept: "text/html", want: http.StatusNotAcceptable},
		{accept: "application/xml", want: http.StatusNotAcceptable},
		{accept: "application/json;q=0", want: http.StatusNotAcceptable},
	}

	for _, tt := range tests {
		t.Run(tt.accept, func(t *testing.T) {
			recorder := do(t, router, http.MethodGet, "/v0/ping", "", "Accept", tt.accept)
			assert.Equal(t, tt.want, recorder.Code)
		})
	}
}

func TestErrorsReturnJSON(t *testing.T) {
	router := newTestRouter(t)
	router.GET("/test-panic", func(*gin.Context) {
		panic("test panic")
	})

	tests := []struct {
		name   string
		method string
		target string
		status int
		code   string
	}{
		{name: "recovery", method: http.MethodGet, target: "/test-panic", status: http.StatusInternalServerError, code: api.CodeInternalServerError},
		{name: "no route", method: http.MethodGet, target: "/this-path-doesnt-exist", status: http.StatusNotFound, code: api.CodeNotFound},
		{name: "method not allowed", method: http.MethodPut, target: "/v0/ping", status: http.StatusMethodNotAllowed, code: api.CodeMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := do(t, router, tt.method, tt.target, "")
			assert.Equal(t, tt.status, recorder.Code)
			assert.Equal(t, "application/json; charset=utf-8", recorder.Header().Get("Content-Type"))
			assert.Equal(t, tt.code, decode[api.ErrorResponse](t, recorder).Code)
		})
	}
}

// failingStore fails the calls it overrides; the embedded nil store is never reached.
type failingStore struct{ *store.Store }

func (failingStore) Save(context.Context, string, coverage.Format, *coverage.Report) (string, error) {
	return "", errors.New("disk full")
}

func (failingStore) List(context.Context, string, int) ([]store.Entry, error) {
	return nil, errors.New("disk full")
}

func TestStoreFailures(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := api.NewRouter(failingStore{}, 1024)

	recorder := do(t, router, http.MethodPost, "/v0/reports?name=x", goReport)
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)

	recorder = do(t, router, http.MethodGet, "/v0/reports", "")
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}

func TestServe_ReturnsListenError(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	errc := make(chan error, 1)
	go func() {
		errc <- api.Serve(context.Background(), http.NotFoundHandler(), config.ServerConfig{
			Addr:            busy.Addr().String(),
			ShutdownTimeout: time.Second,
		})
	}()

	select {
	case err := <-errc:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after failing to listen")
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- api.Serve(ctx, http.NotFoundHandler(), config.ServerConfig{
			Addr:            "127.0.0.1:0",
			ShutdownTimeout: time.Second,
		})
	}()
	cancel()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop after cancel")
	}
}
