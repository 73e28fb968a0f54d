package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nasindex/nasindex/internal/nerrors"
	"github.com/nasindex/nasindex/internal/source"
)

// listSources returns every configured source (credentials decrypted, as
// Entry holds them in memory; the wire format never carries the encryption
// key, only the vault-sealed password at rest).
func (h *handlers) listSources(w http.ResponseWriter, r *http.Request) {
	writeOK(w, h.deps.Sources.ListSources())
}

// addSource registers a new source, rejecting an invalid label, a label
// already in use, or a duplicate ID before attempting SMB session
// registration.
func (h *handlers) addSource(w http.ResponseWriter, r *http.Request) {
	var e source.Entry
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Status: "error", Error: "invalid request body"})
		return
	}
	if err := source.ValidateLabel(e.Label); err != nil {
		writeError(w, err)
		return
	}
	if h.deps.Sources.LabelInUse(e.Label) {
		writeError(w, nerrors.New(nerrors.EDuplicateSource, "label already in use"))
		return
	}

	added, err := h.deps.Sources.AddSource(r.Context(), e)
	if err != nil && added == (source.Entry{}) {
		writeError(w, err)
		return
	}
	// A non-nil err here means the entry persisted but SMB registration
	// failed; the specification keeps the entry and surfaces the failure
	// only through /api/sources/status, so the add itself still succeeds.
	writeOK(w, added)
}

// removeSource deletes a source by label (used as its ID's final segment is
// not guaranteed unique across hosts, so labels — guaranteed unique by
// ValidateLabel/LabelInUse — are the route key) and cascades catalog
// deletion.
func (h *handlers) removeSource(w http.ResponseWriter, r *http.Request) {
	label := chi.URLParam(r, "label")

	var id string
	for _, e := range h.deps.Sources.ListSources() {
		if e.Label == label {
			id = e.ID()
			break
		}
	}
	if id == "" {
		writeOK(w, source.RemoveSourceResult{Success: false})
		return
	}

	result, err := h.deps.Sources.RemoveSource(r.Context(), id, h.deps.Store)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, result)
}

// sourcesStatus reports live connection status for every configured source.
func (h *handlers) sourcesStatus(w http.ResponseWriter, r *http.Request) {
	writeOK(w, h.deps.Sources.ConnectionStatus(r.Context()))
}
