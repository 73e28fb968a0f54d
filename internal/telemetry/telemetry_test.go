package telemetry

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandlerServesRegisteredNames(t *testing.T) {
	m := New()
	m.AddFilesScanned(3)
	m.AddFilesErrored(1)
	m.ObserveScanDuration(12.5)
	m.SetCatalogRows(42)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, req)

	require.Equal(t, 200, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "files_scanned_total 3")
	assert.Contains(t, body, "files_errored_total 1")
	assert.Contains(t, body, "catalog_rows 42")
	assert.Contains(t, body, "scan_duration_seconds")
}

func TestZeroIncrementsAreNoop(t *testing.T) {
	m := New()
	m.AddFilesScanned(0)
	m.AddFilesErrored(0)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, req)

	assert.Contains(t, rr.Body.String(), "files_scanned_total 0")
}
