// Package metamanager is the service layer of the metadata store. It sits
// between the HTTP handlers and the DAL: request validation, write policy,
// audit attribute injection, and selector resolution happen here; storage
// semantics (version monotonicity, atomicity) are enforced by the DAL.
package metamanager

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/meridian-data/meridian/internal/common/apperrors"
	"github.com/meridian-data/meridian/internal/metasrv/db"
	"github.com/meridian-data/meridian/internal/metasrv/metacommon"
	"github.com/meridian-data/meridian/internal/metasrv/notify"
	"github.com/meridian-data/meridian/pkg/metadata"
	"github.com/meridian-data/meridian/pkg/types"
)

var validate = validator.New()

// asAppError passes layered errors through unchanged and wraps anything
// else as an internal error.
func asAppError(err error) apperrors.Error {
	var appErr apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrMetaManager.Err(err)
}

type CreateObjectRequest struct {
	ObjectType types.ObjectType           `json:"objectType" validate:"required"`
	Definition *metadata.ObjectDefinition `json:"definition" validate:"required"`
	TagUpdates []metadata.TagUpdate       `json:"tagUpdates,omitempty"`
}

type UpdateObjectRequest struct {
	PriorVersion metadata.TagSelector       `json:"priorVersion" validate:"required"`
	Definition   *metadata.ObjectDefinition `json:"definition" validate:"required"`
	TagUpdates   []metadata.TagUpdate       `json:"tagUpdates,omitempty"`
}

type UpdateTagRequest struct {
	PriorTag   metadata.TagSelector `json:"priorTag" validate:"required"`
	TagUpdates []metadata.TagUpdate `json:"tagUpdates" validate:"required"`
}

type PreallocateIdsRequest struct {
	ObjectType types.ObjectType `json:"objectType" validate:"required"`
	Count      int              `json:"count" validate:"required,min=1,max=1000"`
}

type CreatePreallocatedRequest struct {
	ObjectID   uuid.UUID                  `json:"objectId" validate:"required"`
	ObjectType types.ObjectType           `json:"objectType" validate:"required"`
	Definition *metadata.ObjectDefinition `json:"definition" validate:"required"`
	TagUpdates []metadata.TagUpdate       `json:"tagUpdates,omitempty"`
}

// CreateObject writes version 1, tag 1 of a brand-new object. The attribute
// map starts empty, the caller's updates are applied, then the controlled
// audit attributes are stamped on top.
func CreateObject(ctx context.Context, req *CreateObjectRequest) (*metadata.Tag, apperrors.Error) {
	if err := validate.Struct(req); err != nil {
		return nil, ErrInvalidRequest.Err(err)
	}
	tag, apErr := buildNewTag(ctx, req.ObjectType, req.Definition, req.TagUpdates)
	if apErr != nil {
		return nil, apErr
	}
	if err := db.DB(ctx).SaveNewObject(ctx, tag); err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().
		Str("object_type", string(tag.Header.ObjectType)).
		Str("object_id", tag.Header.ObjectID.String()).
		Msg("object created")
	notifyTagWritten(ctx, tag)
	return tag, nil
}

func notifyTagWritten(ctx context.Context, tag *metadata.Tag) {
	notify.ObjectsWritten(metacommon.TenantIdFromContext(ctx), []metadata.TagHeader{tag.Header})
}

// UpdateObject resolves the prior version, applies the caller's updates over
// the prior tag's attributes, and writes the next version. The new version
// number is the resolved prior plus one; the DAL rejects it if the prior is
// no longer the latest.
func UpdateObject(ctx context.Context, req *UpdateObjectRequest) (*metadata.Tag, apperrors.Error) {
	if err := validate.Struct(req); err != nil {
		return nil, ErrInvalidRequest.Err(err)
	}
	prior, apErr := resolvePrior(ctx, req.PriorVersion, req.TagUpdates)
	if apErr != nil {
		return nil, apErr
	}
	attrs, err := metadata.ApplyTagUpdates(prior.Attrs, req.TagUpdates)
	if err != nil {
		return nil, asAppError(err)
	}
	injectUpdateAudit(ctx, attrs, time.Now().UTC())

	tag := &metadata.Tag{
		Header: metadata.TagHeader{
			ObjectType:    prior.Header.ObjectType,
			ObjectID:      prior.Header.ObjectID,
			ObjectVersion: prior.Header.ObjectVersion + 1,
			TagVersion:    1,
		},
		Definition: req.Definition,
		Attrs:      attrs,
	}
	if err := db.DB(ctx).SaveNewVersion(ctx, tag); err != nil {
		return nil, err
	}
	notifyTagWritten(ctx, tag)
	return tag, nil
}

// UpdateTag writes the next tag of the resolved version: same definition,
// new attributes. The DAL assigns the next tag number.
func UpdateTag(ctx context.Context, req *UpdateTagRequest) (*metadata.Tag, apperrors.Error) {
	if err := validate.Struct(req); err != nil {
		return nil, ErrInvalidRequest.Err(err)
	}
	prior, apErr := resolvePrior(ctx, req.PriorTag, req.TagUpdates)
	if apErr != nil {
		return nil, apErr
	}
	attrs, err := metadata.ApplyTagUpdates(prior.Attrs, req.TagUpdates)
	if err != nil {
		return nil, asAppError(err)
	}
	injectUpdateAudit(ctx, attrs, time.Now().UTC())

	tag := &metadata.Tag{
		Header: metadata.TagHeader{
			ObjectType:    prior.Header.ObjectType,
			ObjectID:      prior.Header.ObjectID,
			ObjectVersion: prior.Header.ObjectVersion,
		},
		Attrs: attrs,
	}
	if err := db.DB(ctx).SaveNewTag(ctx, tag); err != nil {
		return nil, err
	}
	notifyTagWritten(ctx, tag)
	return tag, nil
}

// PreallocateIds reserves object ids without writing content. Reserved ids
// are invisible to reads and search until their first version lands.
// Preallocation is a trusted operation.
func PreallocateIds(ctx context.Context, req *PreallocateIdsRequest) ([]uuid.UUID, apperrors.Error) {
	if apErr := requireTrustedWriter(ctx); apErr != nil {
		return nil, apErr
	}
	if err := validate.Struct(req); err != nil {
		return nil, ErrInvalidRequest.Err(err)
	}
	if apErr := checkWritePolicy(ctx, req.ObjectType, nil); apErr != nil {
		return nil, apErr
	}
	return db.DB(ctx).PreallocateObjectIds(ctx, req.ObjectType, req.Count)
}

// CreatePreallocated writes version 1, tag 1 against a previously reserved
// id. The reservation's object type must match the request. Trusted only,
// like the preallocation itself.
func CreatePreallocated(ctx context.Context, req *CreatePreallocatedRequest) (*metadata.Tag, apperrors.Error) {
	if apErr := requireTrustedWriter(ctx); apErr != nil {
		return nil, apErr
	}
	if err := validate.Struct(req); err != nil {
		return nil, ErrInvalidRequest.Err(err)
	}
	tag, apErr := buildNewTag(ctx, req.ObjectType, req.Definition, req.TagUpdates)
	if apErr != nil {
		return nil, apErr
	}
	tag.Header.ObjectID = req.ObjectID
	if err := db.DB(ctx).SavePreallocated(ctx, tag); err != nil {
		return nil, err
	}
	notifyTagWritten(ctx, tag)
	return tag, nil
}

// ReadObject resolves one selector to its full tag, definition included.
func ReadObject(ctx context.Context, selector metadata.TagSelector) (*metadata.Tag, apperrors.Error) {
	if apErr := checkReadPolicy(selector); apErr != nil {
		return nil, apErr
	}
	return db.DB(ctx).LoadTag(ctx, selector)
}

// ReadBatch resolves a list of selectors positionally. Any failed selector
// fails the whole read.
func ReadBatch(ctx context.Context, selectors []metadata.TagSelector) ([]*metadata.Tag, apperrors.Error) {
	if len(selectors) == 0 {
		return nil, ErrInvalidRequest.Msg("empty selector list")
	}
	for _, s := range selectors {
		if apErr := checkReadPolicy(s); apErr != nil {
			return nil, apErr
		}
	}
	return db.DB(ctx).LoadTags(ctx, selectors)
}

// Search runs a temporal attribute search. Results carry headers and
// attributes, never definitions.
func Search(ctx context.Context, params metadata.SearchParameters) ([]*metadata.Tag, apperrors.Error) {
	if err := params.Validate(); err != nil {
		return nil, asAppError(err)
	}
	return db.DB(ctx).Search(ctx, params)
}

// buildNewTag runs the shared first-write path: policy, updates over an
// empty attribute map, create audit stamps.
func buildNewTag(ctx context.Context, objectType types.ObjectType, definition *metadata.ObjectDefinition, updates []metadata.TagUpdate) (*metadata.Tag, apperrors.Error) {
	if apErr := checkWritePolicy(ctx, objectType, updates); apErr != nil {
		return nil, apErr
	}
	attrs, err := metadata.ApplyTagUpdates(nil, updates)
	if err != nil {
		return nil, asAppError(err)
	}
	injectCreateAudit(ctx, attrs, time.Now().UTC())
	return &metadata.Tag{
		Header: metadata.TagHeader{
			ObjectType:    objectType,
			ObjectVersion: 1,
			TagVersion:    1,
		},
		Definition: definition,
		Attrs:      attrs,
	}, nil
}

// resolvePrior validates the selector and write policy, then loads the
// prior tag the update builds on. The selector's object type must agree
// with the stored object; the DAL enforces that.
func resolvePrior(ctx context.Context, selector metadata.TagSelector, updates []metadata.TagUpdate) (*metadata.Tag, apperrors.Error) {
	if err := selector.Validate(); err != nil {
		return nil, asAppError(err)
	}
	if apErr := checkWritePolicy(ctx, selector.ObjectType, updates); apErr != nil {
		return nil, apErr
	}
	return db.DB(ctx).LoadTag(ctx, selector)
}
