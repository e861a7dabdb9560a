package dberror

import (
	"net/http"

	"github.com/meridian-data/meridian/internal/common/apperrors"
)

var (
	ErrDatabase apperrors.Error = apperrors.New("db error").SetStatusCode(http.StatusInternalServerError)

	// ErrNotFound covers missing tenants, objects, versions, tags and
	// config entries.
	ErrNotFound apperrors.Error = ErrDatabase.New("not found").SetStatusCode(http.StatusNotFound)

	// ErrAlreadyExists covers duplicate saves: an existing object id, an
	// already-written version or tag number, or a live config key.
	ErrAlreadyExists apperrors.Error = ErrDatabase.New("already exists").SetStatusCode(http.StatusConflict)

	// ErrWrongType is raised when a request's object type disagrees with
	// what is stored.
	ErrWrongType apperrors.Error = ErrDatabase.New("stored object type does not match request").SetStatusCode(http.StatusPreconditionFailed)

	ErrInvalidInput apperrors.Error = ErrDatabase.New("invalid input").SetStatusCode(http.StatusBadRequest)

	// ErrConflict is an optimistic-concurrency loss after the retry budget
	// is spent. Callers may retry the whole write.
	ErrConflict apperrors.Error = ErrDatabase.New("write conflict").SetStatusCode(http.StatusConflict)

	ErrMissingTenantID apperrors.Error = ErrInvalidInput.New("missing tenant ID").SetStatusCode(http.StatusBadRequest)
)
