package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nasindex/nasindex/internal/lifecycle"
)

// scanStatus reports the lifecycle controller's current snapshot.
func (h *handlers) scanStatus(w http.ResponseWriter, r *http.Request) {
	writeOK(w, h.deps.Lifecycle.Snapshot())
}

type scanStartRequest struct {
	Full *bool `json:"full"`
}

// scanStart starts a scan cycle, defaulting to a full scan (with stale-row
// removal) unless the request body says otherwise. The scan itself runs
// detached from the request context, since it must outlive the HTTP
// response — only /api/scan/cancel or daemon shutdown can stop it.
func (h *handlers) scanStart(w http.ResponseWriter, r *http.Request) {
	var req scanStartRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, Response{Status: "error", Error: "invalid request body"})
			return
		}
	}
	full := true
	if req.Full != nil {
		full = *req.Full
	}

	scanLogID, err := h.deps.Store.StartScanLog(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	snap, err := h.deps.Lifecycle.Start(context.Background(), scanLogID, func(taskCtx context.Context, c *lifecycle.Controller) {
		h.deps.RunScan(taskCtx, c, scanLogID, full)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, snap)
}

// scanCancel requests cancellation of any in-progress scan.
func (h *handlers) scanCancel(w http.ResponseWriter, r *http.Request) {
	h.deps.Lifecycle.Cancel()
	writeOK(w, h.deps.Lifecycle.Snapshot())
}

// scanHistory lists the most recent scan log entries.
func (h *handlers) scanHistory(w http.ResponseWriter, r *http.Request) {
	limit := intQueryParam(r, "limit", 20)
	history, err := h.deps.Store.ScanHistory(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, history)
}
