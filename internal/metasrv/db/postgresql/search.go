package postgresql

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/meridian-data/meridian/internal/common/apperrors"
	"github.com/meridian-data/meridian/internal/metasrv/db/dberror"
	"github.com/meridian-data/meridian/pkg/metadata"
)

// Search executes a planned search and returns matching tags, newest first.
// Result tags carry the full attribute set but no definition payload.
func (om *objectManager) Search(ctx context.Context, params metadata.SearchParameters) ([]*metadata.Tag, apperrors.Error) {
	tenantID, aerr := tenantFromContext(ctx)
	if aerr != nil {
		return nil, aerr
	}
	query, aerr := buildSearchQuery(tenantID, params)
	if aerr != nil {
		return nil, aerr
	}

	rows, err := om.conn().QueryContext(ctx, query.SQL, query.Args...)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("search query failed")
		return nil, dberror.ErrDatabase.Err(err)
	}
	defer rows.Close()

	var results []*metadata.Tag
	for rows.Next() {
		header := metadata.TagHeader{ObjectType: params.ObjectType}
		err := rows.Scan(&header.ObjectID, &header.ObjectVersion, &header.TagVersion,
			&header.TagTimestamp, &header.ObjectTimestamp, &header.IsLatestObject, &header.IsLatestTag)
		if err != nil {
			return nil, dberror.ErrDatabase.Err(err)
		}
		results = append(results, &metadata.Tag{Header: header})
	}
	if err := rows.Err(); err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}

	for _, tag := range results {
		attrs, aerr := loadAttrs(ctx, om.conn(), tenantID,
			tag.Header.ObjectID, tag.Header.ObjectVersion, tag.Header.TagVersion)
		if aerr != nil {
			return nil, aerr
		}
		tag.Attrs = attrs
	}
	return results, nil
}
