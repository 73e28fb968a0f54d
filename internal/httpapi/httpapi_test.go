package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nasindex/nasindex/internal/catalog"
	"github.com/nasindex/nasindex/internal/lifecycle"
	"github.com/nasindex/nasindex/internal/pathresolve"
	"github.com/nasindex/nasindex/internal/smbfs"
	"github.com/nasindex/nasindex/internal/source"
	"github.com/nasindex/nasindex/internal/vault"
)

func newTestDeps(t *testing.T) (Deps, *catalog.Store, *source.Manager) {
	t.Helper()
	dir := t.TempDir()

	store, err := catalog.Open(filepath.Join(dir, "catalog.db"), 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	v, err := vault.Open(dir)
	require.NoError(t, err)

	client := smbfs.NewClient(time.Minute)
	t.Cleanup(client.Shutdown)

	mgr, err := source.Open(filepath.Join(dir, "nas_connection.json"), v, client)
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	deps := Deps{
		Store:     store,
		Sources:   mgr,
		Resolver:  pathresolve.New(mgr),
		Lifecycle: lifecycle.New(),
		RunScan: func(ctx context.Context, ctl *lifecycle.Controller, scanLogID int64, full bool) {
			ctl.RecordWalked(1, 0)
			ctl.Finish(lifecycle.Completed)
		},
		Log:       logrus.NewEntry(log),
		AuthToken: "change-me-to-a-secure-token",
	}
	return deps, store, mgr
}

func doRequest(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, target, bytes.NewReader(data))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestScanStatusStartCancelHistory(t *testing.T) {
	deps, _, _ := newTestDeps(t)
	router := NewRouter(deps)

	rr := doRequest(t, router, "GET", "/api/scan/status", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, router, "POST", "/api/scan/start", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	require.Eventually(t, func() bool {
		return deps.Lifecycle.Snapshot().State != lifecycle.Indexing
	}, time.Second, 5*time.Millisecond)

	rr = doRequest(t, router, "GET", "/api/scan/history", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestScanStartRejectsConcurrentStart(t *testing.T) {
	deps, _, _ := newTestDeps(t)
	block := make(chan struct{})
	deps.RunScan = func(ctx context.Context, ctl *lifecycle.Controller, scanLogID int64, full bool) {
		<-block
	}
	router := NewRouter(deps)

	rr := doRequest(t, router, "POST", "/api/scan/start", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, router, "POST", "/api/scan/start", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	close(block)
	require.NoError(t, deps.Lifecycle.Shutdown(context.Background()))
}

func TestSourcesAddListRemove(t *testing.T) {
	deps, _, _ := newTestDeps(t)
	router := NewRouter(deps)

	entry := source.Entry{Host: "127.0.0.1", Port: "1", Share: "share", Label: "nas"}
	rr := doRequest(t, router, "POST", "/api/sources/", entry)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, router, "GET", "/api/sources/", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	rr = doRequest(t, router, "GET", "/api/sources/status", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, router, "DELETE", "/api/sources/nas", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, router, "DELETE", "/api/sources/nas", nil)
	require.Equal(t, http.StatusOK, rr.Code) // not-found case still reports success:false, not an HTTP error
}

func TestSearchBrowseInsights(t *testing.T) {
	deps, store, _ := newTestDeps(t)
	router := NewRouter(deps)

	now := time.Now().UTC()
	_, err := store.UpsertFile(context.Background(), store.DB(), catalog.FileRow{
		Path: "/nas/notes.txt", Name: "notes.txt", ParentPath: "/nas",
		Size: 10, MimeType: "text/plain", CreatedAt: now, ModifiedAt: now,
	})
	require.NoError(t, err)

	rr := doRequest(t, router, "GET", "/api/search?q=notes", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, router, "GET", "/api/search", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, router, "GET", "/api/browse?path=/nas", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, router, "GET", "/api/insights/dedup", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, router, "GET", "/api/insights/tags", nil)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestAuthGuardRejectsWithoutToken(t *testing.T) {
	deps, _, _ := newTestDeps(t)
	deps.AuthToken = "real-secret"
	router := NewRouter(deps)

	rr := doRequest(t, router, "GET", "/api/scan/status", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest("GET", "/api/scan/status", nil)
	req.Header.Set("Authorization", "Bearer real-secret")
	rr2 := httptest.NewRecorder()
	router.ServeHTTP(rr2, req)
	assert.Equal(t, http.StatusOK, rr2.Code)
}

func TestResolveRequiresSource(t *testing.T) {
	deps, _, _ := newTestDeps(t)
	router := NewRouter(deps)

	rr := doRequest(t, router, "GET", "/api/resolve?path=/nas/a.txt", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code) // ENoSources maps to 400
}
