package postgresql

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/meridian-data/meridian/internal/common/apperrors"
	"github.com/meridian-data/meridian/internal/metasrv/db/dberror"
	"github.com/meridian-data/meridian/pkg/metadata"
	"github.com/meridian-data/meridian/pkg/types"
)

// SaveNewVersion appends the next version of an existing object: new version
// row, its tag 1, and the latest-marker flip, all in one transaction. The
// incoming header must name exactly currentLatest + 1.
func (om *objectManager) SaveNewVersion(ctx context.Context, tag *metadata.Tag) apperrors.Error {
	tenantID, aerr := tenantFromContext(ctx)
	if aerr != nil {
		return aerr
	}
	return withWriteRetry(ctx, func() apperrors.Error {
		return runInTx(ctx, om.conn(), func(tx *sql.Tx) apperrors.Error {
			return saveNewVersionTx(ctx, tx, tenantID, tag)
		})
	})
}

func saveNewVersionTx(ctx context.Context, tx *sql.Tx, tenantID types.TenantId, tag *metadata.Tag) apperrors.Error {
	obj, err := lockObjectTx(ctx, tx, tenantID, tag.Header.ObjectID)
	if err != nil {
		return err
	}
	if !obj.Saved {
		// Reserved but never written; only SavePreallocated may touch it.
		return dberror.ErrNotFound.Msg("object not found")
	}
	if obj.ObjectType != tag.Header.ObjectType {
		return dberror.ErrWrongType.Msg("stored object type is " + string(obj.ObjectType))
	}
	latest, err := latestVersionNumTx(ctx, tx, tenantID, tag.Header.ObjectID)
	if err != nil {
		return err
	}
	if tag.Header.ObjectVersion == 0 {
		tag.Header.ObjectVersion = latest + 1
	}
	switch {
	case tag.Header.ObjectVersion <= latest:
		return dberror.ErrAlreadyExists.Msg("object version already exists")
	case tag.Header.ObjectVersion > latest+1:
		return dberror.ErrNotFound.Msg("prior object version not found")
	}
	if tag.Header.TagVersion == 0 {
		tag.Header.TagVersion = 1
	}
	if tag.Header.TagVersion != 1 {
		return dberror.ErrInvalidInput.Msg("a new version starts at tag 1")
	}
	if err := clearLatestVersionTx(ctx, tx, tenantID, tag.Header.ObjectID); err != nil {
		return err
	}
	return insertFirstVersionTx(ctx, tx, tenantID, tag)
}

func latestVersionNumTx(ctx context.Context, tx *sql.Tx, tenantID types.TenantId, objectID uuid.UUID) (int, apperrors.Error) {
	query := `
		SELECT COALESCE(MAX(version_num), 0)
		FROM object_version
		WHERE object_id = $1 AND tenant_id = $2;
	`
	var latest int
	err := tx.QueryRowContext(ctx, query, objectID, tenantID).Scan(&latest)
	if err != nil {
		return 0, dberror.ErrDatabase.Err(err)
	}
	return latest, nil
}

func clearLatestVersionTx(ctx context.Context, tx *sql.Tx, tenantID types.TenantId, objectID uuid.UUID) apperrors.Error {
	query := `
		UPDATE object_version
		SET is_latest = FALSE
		WHERE object_id = $1 AND tenant_id = $2 AND is_latest;
	`
	if _, err := tx.ExecContext(ctx, query, objectID, tenantID); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to clear latest version marker")
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}
