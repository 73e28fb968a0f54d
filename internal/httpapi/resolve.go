package httpapi

import "net/http"

type resolveResponse struct {
	SMBPath    string `json:"smb_path"`
	SourceID   string `json:"source_id"`
	SourceHost string `json:"source_host"`
	Share      string `json:"share"`
}

// resolvePath resolves a logical path to its SMB path and owning source,
// the contract the preview/stream collaborators (out of scope here) depend
// on.
func (h *handlers) resolvePath(w http.ResponseWriter, r *http.Request) {
	logical := r.URL.Query().Get("path")
	if logical == "" {
		writeJSON(w, http.StatusBadRequest, Response{Status: "error", Error: "missing required query parameter path"})
		return
	}

	smbPath, src, err := h.deps.Resolver.Resolve(logical)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, resolveResponse{
		SMBPath:    smbPath,
		SourceID:   src.ID(),
		SourceHost: src.Host,
		Share:      src.Share,
	})
}
