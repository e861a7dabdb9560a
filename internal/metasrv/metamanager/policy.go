package metamanager

import (
	"context"

	"github.com/meridian-data/meridian/internal/common/apperrors"
	"github.com/meridian-data/meridian/internal/metasrv/metacommon"
	"github.com/meridian-data/meridian/pkg/metadata"
	"github.com/meridian-data/meridian/pkg/types"
)

// checkWritePolicy gates a metadata write. Untrusted callers may only touch
// the public-writable object types and never the reserved attribute
// namespace; every attribute name in the update list must match the
// identifier grammar.
func checkWritePolicy(ctx context.Context, objectType types.ObjectType, updates []metadata.TagUpdate) apperrors.Error {
	if !objectType.IsValid() {
		return ErrInvalidRequest.Msg("missing or unknown object type")
	}
	trusted := metacommon.IsTrustedContext(ctx)
	if !trusted && !objectType.IsPublicWritable() {
		return ErrPermissionDenied.Msg("object type " + string(objectType) + " is not writable by this caller")
	}
	for i := range updates {
		name := updates[i].AttrName
		if name == "" {
			// CLEAR_ALL_ATTR carries no name; the update engine validates
			// the rest.
			continue
		}
		if !metacommon.IsValidAttrName(name) {
			return ErrInvalidRequest.Msg("invalid attribute name: " + name)
		}
		if metacommon.IsReservedAttrName(name) && !trusted {
			return ErrPermissionDenied.Msg("attribute name is reserved: " + name)
		}
	}
	return nil
}

// requireTrustedWriter gates operations reserved to the trusted surface
// regardless of object type, such as id preallocation.
func requireTrustedWriter(ctx context.Context) apperrors.Error {
	if !metacommon.IsTrustedContext(ctx) {
		return ErrPermissionDenied.Msg("operation requires the trusted surface")
	}
	return nil
}

// checkReadPolicy gates reads; every caller may read every type, so this
// only validates the selector shape.
func checkReadPolicy(selector metadata.TagSelector) apperrors.Error {
	if err := selector.Validate(); err != nil {
		return ErrInvalidRequest.Err(err)
	}
	return nil
}
