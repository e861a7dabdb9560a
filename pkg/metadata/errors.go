package metadata

import (
	"net/http"

	"github.com/meridian-data/meridian/internal/common/apperrors"
)

var (
	ErrMetadata     apperrors.Error = apperrors.New("metadata error").SetStatusCode(http.StatusBadRequest)
	ErrInvalidValue apperrors.Error = ErrMetadata.New("invalid value").SetStatusCode(http.StatusBadRequest)

	// ErrBadUpdate is the root of every tag-update precondition failure.
	// The whole update list is rejected; the running tag is unchanged.
	ErrBadUpdate apperrors.Error = ErrMetadata.New("bad tag update").SetStatusCode(http.StatusBadRequest)

	ErrInvalidSelector apperrors.Error = ErrMetadata.New("invalid tag selector").SetStatusCode(http.StatusBadRequest)
	ErrInvalidSearch   apperrors.Error = ErrMetadata.New("invalid search expression").SetStatusCode(http.StatusBadRequest)
)
