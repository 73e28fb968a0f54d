package httpapi

import (
	"net/http"

	"github.com/nasindex/nasindex/internal/catalog"
)

// search runs a full-text query against the catalog.
func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, Response{Status: "error", Error: "missing required query parameter q"})
		return
	}
	limit := intQueryParam(r, "limit", 50)

	results, err := h.deps.Store.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, results)
}

// browse lists the direct children of a logical directory path, or the
// configured source roots when path is omitted.
func (h *handlers) browse(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	entries, err := h.deps.Store.Browse(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, entries)
}

// insightsDedup lists probable-duplicate file groups, most wasteful first.
// Response field names always say "probable" per the specification's
// resolved Open Question — duplication here is a content-fingerprint
// collision, not a cryptographic guarantee.
func (h *handlers) insightsDedup(w http.ResponseWriter, r *http.Request) {
	limit := intQueryParam(r, "limit", 50)
	groups, err := h.deps.Store.DedupGroups(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, probableDedupGroups(groups))
}

type probableDedupGroup struct {
	ProbableDuplicateGroup string   `json:"probable_duplicate_group"`
	Count                  int      `json:"count"`
	TotalSize              int64    `json:"total_size"`
	Paths                  []string `json:"paths"`
}

func probableDedupGroups(groups []catalog.DedupGroup) []probableDedupGroup {
	out := make([]probableDedupGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, probableDedupGroup{
			ProbableDuplicateGroup: g.FileHash,
			Count:                  g.Count,
			TotalSize:              g.TotalSize,
			Paths:                  g.Paths,
		})
	}
	return out
}

// insightsTags lists every distinct rule/user tag with its file count.
func (h *handlers) insightsTags(w http.ResponseWriter, r *http.Request) {
	counts, err := h.deps.Store.TagCounts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, counts)
}
