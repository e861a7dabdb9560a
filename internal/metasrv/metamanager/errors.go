package metamanager

import (
	"net/http"

	"github.com/meridian-data/meridian/internal/common/apperrors"
)

// Service-level errors. DAL errors (dberror package) already carry their
// API status codes and pass through unchanged.
var (
	ErrMetaManager apperrors.Error = apperrors.New("metadata manager error").SetStatusCode(http.StatusInternalServerError)

	ErrInvalidRequest apperrors.Error = ErrMetaManager.New("invalid request").SetStatusCode(http.StatusBadRequest)

	// ErrPermissionDenied covers restricted object types and reserved
	// attribute names attempted by untrusted callers.
	ErrPermissionDenied apperrors.Error = ErrMetaManager.New("permission denied").SetStatusCode(http.StatusForbidden)

	ErrNotFound apperrors.Error = ErrMetaManager.New("not found").SetStatusCode(http.StatusNotFound)
)
