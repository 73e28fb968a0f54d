package httpapi

import (
	"net/http"
	"strconv"
)

// intQueryParam parses the named query parameter as an int, returning def
// on absence or parse failure.
func intQueryParam(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
