package httpapi

import (
	"net/http"

	"github.com/nasindex/nasindex/internal/nerrors"
)

// mapErrorStatus maps an nerrors.Kind to an HTTP status code and message,
// grounded on marmos91-dittofs's handlers.MapStoreError: a single centralized
// switch replacing a per-handler error-to-status translation, generalized
// here from the store's bespoke sentinel errors to the core's shared
// nerrors.Kind vocabulary.
func mapErrorStatus(err error) (int, string) {
	kind, ok := nerrors.KindOf(err)
	if !ok {
		return http.StatusInternalServerError, err.Error()
	}

	switch kind {
	case nerrors.ENotFound:
		return http.StatusNotFound, err.Error()
	case nerrors.EDuplicateSource:
		return http.StatusConflict, err.Error()
	case nerrors.EScanBusy:
		return http.StatusConflict, err.Error()
	case nerrors.EAuth:
		return http.StatusUnauthorized, err.Error()
	case nerrors.EInvalidConfig, nerrors.ENoSources:
		return http.StatusBadRequest, err.Error()
	case nerrors.ETimeout, nerrors.EUnreachable, nerrors.ETransient:
		return http.StatusServiceUnavailable, err.Error()
	case nerrors.EKeyLost:
		return http.StatusInternalServerError, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
