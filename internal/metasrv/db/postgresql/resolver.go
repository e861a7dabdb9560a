package postgresql

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/meridian-data/meridian/internal/common/apperrors"
	"github.com/meridian-data/meridian/internal/metasrv/db/dberror"
	"github.com/meridian-data/meridian/internal/metasrv/db/models"
	"github.com/meridian-data/meridian/pkg/metadata"
	"github.com/meridian-data/meridian/pkg/types"
)

// LoadTag resolves a selector to a concrete (version, tag) pair and returns
// the full tag with header, definition and attributes. Each axis resolves by
// explicit number, inclusive as-of time, or latest marker.
func (om *objectManager) LoadTag(ctx context.Context, selector metadata.TagSelector) (*metadata.Tag, apperrors.Error) {
	tenantID, aerr := tenantFromContext(ctx)
	if aerr != nil {
		return nil, aerr
	}
	return loadTag(ctx, om.conn(), tenantID, selector)
}

// LoadTags resolves each selector independently; any failure fails the whole
// read. Results are positionally aligned with the input.
func (om *objectManager) LoadTags(ctx context.Context, selectors []metadata.TagSelector) ([]*metadata.Tag, apperrors.Error) {
	tenantID, aerr := tenantFromContext(ctx)
	if aerr != nil {
		return nil, aerr
	}
	tags := make([]*metadata.Tag, 0, len(selectors))
	for _, selector := range selectors {
		tag, err := loadTag(ctx, om.conn(), tenantID, selector)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func loadTag(ctx context.Context, q querier, tenantID types.TenantId, selector metadata.TagSelector) (*metadata.Tag, apperrors.Error) {
	obj, err := getSavedObject(ctx, q, tenantID, selector.ObjectID)
	if err != nil {
		return nil, err
	}
	if obj.ObjectType != selector.ObjectType {
		log.Ctx(ctx).Info().
			Str("object_id", selector.ObjectID.String()).
			Str("stored_type", string(obj.ObjectType)).
			Str("requested_type", string(selector.ObjectType)).
			Msg("object type mismatch")
		return nil, dberror.ErrWrongType.Msg("stored object type is " + string(obj.ObjectType))
	}

	version, err := resolveVersion(ctx, q, tenantID, selector.ObjectID, selector.ObjectCriterion())
	if err != nil {
		return nil, err
	}
	tagRow, err := resolveTag(ctx, q, tenantID, selector.ObjectID, version.VersionNum, selector.TagCriterion())
	if err != nil {
		return nil, err
	}

	def, err := decodeDefinition(ctx, version.DefinitionFormat, version.Definition)
	if err != nil {
		return nil, err
	}
	attrs, err := loadAttrs(ctx, q, tenantID, selector.ObjectID, version.VersionNum, tagRow.TagNum)
	if err != nil {
		return nil, err
	}

	return &metadata.Tag{
		Header: metadata.TagHeader{
			ObjectType:      obj.ObjectType,
			ObjectID:        obj.ObjectID,
			ObjectVersion:   version.VersionNum,
			ObjectTimestamp: version.ObjectTimestamp,
			TagVersion:      tagRow.TagNum,
			TagTimestamp:    tagRow.TagTimestamp,
			IsLatestObject:  version.IsLatest,
			IsLatestTag:     tagRow.IsLatest,
		},
		Definition: def,
		Attrs:      attrs,
	}, nil
}

// getSavedObject loads the identity row for reads. Unsaved (preallocated)
// rows are treated as absent.
func getSavedObject(ctx context.Context, q querier, tenantID types.TenantId, objectID uuid.UUID) (*models.Object, apperrors.Error) {
	query := `
		SELECT object_id, tenant_id, object_type, saved, created_at
		FROM object
		WHERE object_id = $1 AND tenant_id = $2 AND saved;
	`
	row := q.QueryRowContext(ctx, query, objectID, tenantID)
	obj := &models.Object{}
	err := row.Scan(&obj.ObjectID, &obj.TenantID, &obj.ObjectType, &obj.Saved, &obj.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dberror.ErrNotFound.Msg("object not found")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to load object")
		return nil, dberror.ErrDatabase.Err(err)
	}
	return obj, nil
}

func resolveVersion(ctx context.Context, q querier, tenantID types.TenantId, objectID uuid.UUID, criterion metadata.VersionCriterion) (*models.ObjectVersion, apperrors.Error) {
	base := `
		SELECT object_id, tenant_id, version_num, object_timestamp, is_latest, definition_format, definition
		FROM object_version
		WHERE object_id = $1 AND tenant_id = $2`
	var row *sql.Row
	switch {
	case criterion.Explicit != nil:
		row = q.QueryRowContext(ctx, base+` AND version_num = $3;`, objectID, tenantID, *criterion.Explicit)
	case criterion.AsOf != nil:
		row = q.QueryRowContext(ctx, base+` AND object_timestamp <= $3
			ORDER BY version_num DESC LIMIT 1;`, objectID, tenantID, *criterion.AsOf)
	default:
		row = q.QueryRowContext(ctx, base+` AND is_latest;`, objectID, tenantID)
	}
	version := &models.ObjectVersion{}
	err := row.Scan(&version.ObjectID, &version.TenantID, &version.VersionNum,
		&version.ObjectTimestamp, &version.IsLatest, &version.DefinitionFormat, &version.Definition)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dberror.ErrNotFound.Msg("object version not found")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to resolve object version")
		return nil, dberror.ErrDatabase.Err(err)
	}
	return version, nil
}

func resolveTag(ctx context.Context, q querier, tenantID types.TenantId, objectID uuid.UUID, versionNum int, criterion metadata.VersionCriterion) (*models.Tag, apperrors.Error) {
	base := `
		SELECT object_id, tenant_id, version_num, tag_num, tag_timestamp, is_latest
		FROM tag
		WHERE object_id = $1 AND version_num = $2 AND tenant_id = $3`
	var row *sql.Row
	switch {
	case criterion.Explicit != nil:
		row = q.QueryRowContext(ctx, base+` AND tag_num = $4;`, objectID, versionNum, tenantID, *criterion.Explicit)
	case criterion.AsOf != nil:
		row = q.QueryRowContext(ctx, base+` AND tag_timestamp <= $4
			ORDER BY tag_num DESC LIMIT 1;`, objectID, versionNum, tenantID, *criterion.AsOf)
	default:
		row = q.QueryRowContext(ctx, base+` AND is_latest;`, objectID, versionNum, tenantID)
	}
	tagRow := &models.Tag{}
	err := row.Scan(&tagRow.ObjectID, &tagRow.TenantID, &tagRow.VersionNum,
		&tagRow.TagNum, &tagRow.TagTimestamp, &tagRow.IsLatest)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dberror.ErrNotFound.Msg("tag version not found")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to resolve tag")
		return nil, dberror.ErrDatabase.Err(err)
	}
	return tagRow, nil
}
