package httpapi

import (
	"encoding/json"
	"net/http"
	"time"
)

// Response is the JSON envelope every handler in this package returns,
// grounded on marmos91-dittofs's handlers.Response: a status string, a
// response timestamp, and an optional data/error payload.
type Response struct {
	Status    string      `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	resp.Timestamp = time.Now().UTC()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// writeOK writes a 200 response wrapping data.
func writeOK(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, Response{Status: "ok", Data: data})
}

// writeError writes an error response, deriving its HTTP status from err's
// nerrors.Kind via mapErrorStatus.
func writeError(w http.ResponseWriter, err error) {
	status, msg := mapErrorStatus(err)
	writeJSON(w, status, Response{Status: "error", Error: msg})
}
