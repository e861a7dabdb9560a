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

// SaveNewObject writes a brand-new object: identity row, version 1 and tag 1
// in one transaction. The object id must not exist yet.
func (om *objectManager) SaveNewObject(ctx context.Context, tag *metadata.Tag) apperrors.Error {
	tenantID, aerr := tenantFromContext(ctx)
	if aerr != nil {
		return aerr
	}
	return withWriteRetry(ctx, func() apperrors.Error {
		return runInTx(ctx, om.conn(), func(tx *sql.Tx) apperrors.Error {
			return saveNewObjectTx(ctx, tx, tenantID, tag)
		})
	})
}

func saveNewObjectTx(ctx context.Context, tx *sql.Tx, tenantID types.TenantId, tag *metadata.Tag) apperrors.Error {
	if tag.Header.ObjectID == uuid.Nil {
		tag.Header.ObjectID = uuid.New()
	}
	if tag.Header.ObjectVersion == 0 {
		tag.Header.ObjectVersion = 1
	}
	if tag.Header.TagVersion == 0 {
		tag.Header.TagVersion = 1
	}
	if tag.Header.ObjectVersion != 1 || tag.Header.TagVersion != 1 {
		return dberror.ErrInvalidInput.Msg("new objects start at version 1, tag 1")
	}
	if err := insertObjectTx(ctx, tx, tenantID, tag.Header.ObjectID, tag.Header.ObjectType, true); err != nil {
		return err
	}
	return insertFirstVersionTx(ctx, tx, tenantID, tag)
}

// insertFirstVersionTx writes version 1 plus tag 1 for an object whose
// identity row is already in place and locked.
func insertFirstVersionTx(ctx context.Context, tx *sql.Tx, tenantID types.TenantId, tag *metadata.Tag) apperrors.Error {
	now := storeNow()
	tag.Header.ObjectTimestamp = now
	tag.Header.TagTimestamp = now
	tag.Header.IsLatestObject = true
	tag.Header.IsLatestTag = true
	if err := insertVersionTx(ctx, tx, tenantID, tag); err != nil {
		return err
	}
	if err := insertTagTx(ctx, tx, tenantID, tag); err != nil {
		return err
	}
	return insertAttrsTx(ctx, tx, tenantID, tag)
}

func insertObjectTx(ctx context.Context, tx *sql.Tx, tenantID types.TenantId, objectID uuid.UUID, objectType types.ObjectType, saved bool) apperrors.Error {
	query := `
		INSERT INTO object (object_id, tenant_id, object_type, saved)
		VALUES ($1, $2, $3, $4);
	`
	_, err := tx.ExecContext(ctx, query, objectID, tenantID, objectType, saved)
	if err != nil {
		if isUniqueViolation(err) {
			log.Ctx(ctx).Info().Str("object_id", objectID.String()).Msg("object already exists")
			return dberror.ErrAlreadyExists.Msg("object already exists")
		}
		if isFkViolation(err) {
			return dberror.ErrNotFound.Msg("tenant not found")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to insert object")
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

// lockObjectTx reads the object identity row under FOR UPDATE, serializing
// every writer touching the same object for the rest of the transaction.
func lockObjectTx(ctx context.Context, tx *sql.Tx, tenantID types.TenantId, objectID uuid.UUID) (*models.Object, apperrors.Error) {
	query := `
		SELECT object_id, tenant_id, object_type, saved, created_at
		FROM object
		WHERE object_id = $1 AND tenant_id = $2
		FOR UPDATE;
	`
	row := tx.QueryRowContext(ctx, query, objectID, tenantID)
	obj := &models.Object{}
	err := row.Scan(&obj.ObjectID, &obj.TenantID, &obj.ObjectType, &obj.Saved, &obj.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dberror.ErrNotFound.Msg("object not found")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to lock object")
		return nil, dberror.ErrDatabase.Err(err)
	}
	return obj, nil
}

func insertVersionTx(ctx context.Context, tx *sql.Tx, tenantID types.TenantId, tag *metadata.Tag) apperrors.Error {
	format, body := encodeDefinition(tag.Definition)
	query := `
		INSERT INTO object_version (object_id, tenant_id, version_num, object_timestamp, is_latest, definition_format, definition)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := tx.ExecContext(ctx, query,
		tag.Header.ObjectID, tenantID, tag.Header.ObjectVersion,
		tag.Header.ObjectTimestamp, tag.Header.IsLatestObject, format, body)
	if err != nil {
		if isUniqueViolation(err) {
			return dberror.ErrAlreadyExists.Msg("object version already exists")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to insert object version")
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

// PreallocateObjectIds reserves count fresh ids of the given type. The
// reserved rows stay invisible to reads and search until the first save.
func (om *objectManager) PreallocateObjectIds(ctx context.Context, objectType types.ObjectType, count int) ([]uuid.UUID, apperrors.Error) {
	tenantID, aerr := tenantFromContext(ctx)
	if aerr != nil {
		return nil, aerr
	}
	if count < 1 {
		return nil, dberror.ErrInvalidInput.Msg("preallocation count must be >= 1")
	}
	var ids []uuid.UUID
	dberr := runInTx(ctx, om.conn(), func(tx *sql.Tx) apperrors.Error {
		var err apperrors.Error
		ids, err = preallocateTx(ctx, tx, tenantID, objectType, count)
		return err
	})
	if dberr != nil {
		return nil, dberr
	}
	return ids, nil
}

func preallocateTx(ctx context.Context, tx *sql.Tx, tenantID types.TenantId, objectType types.ObjectType, count int) ([]uuid.UUID, apperrors.Error) {
	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		if err := insertObjectTx(ctx, tx, tenantID, id, objectType, false); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// SavePreallocated writes the first version against a reserved id. The id
// must exist, be unsaved, and carry the same object type it was reserved
// with.
func (om *objectManager) SavePreallocated(ctx context.Context, tag *metadata.Tag) apperrors.Error {
	tenantID, aerr := tenantFromContext(ctx)
	if aerr != nil {
		return aerr
	}
	return withWriteRetry(ctx, func() apperrors.Error {
		return runInTx(ctx, om.conn(), func(tx *sql.Tx) apperrors.Error {
			return savePreallocatedTx(ctx, tx, tenantID, tag)
		})
	})
}

func savePreallocatedTx(ctx context.Context, tx *sql.Tx, tenantID types.TenantId, tag *metadata.Tag) apperrors.Error {
	obj, err := lockObjectTx(ctx, tx, tenantID, tag.Header.ObjectID)
	if err != nil {
		return err
	}
	if obj.Saved {
		return dberror.ErrAlreadyExists.Msg("preallocated object already written")
	}
	if obj.ObjectType != tag.Header.ObjectType {
		return dberror.ErrWrongType.Msg("object was preallocated as " + string(obj.ObjectType))
	}
	if tag.Header.ObjectVersion == 0 {
		tag.Header.ObjectVersion = 1
	}
	if tag.Header.TagVersion == 0 {
		tag.Header.TagVersion = 1
	}
	if tag.Header.ObjectVersion != 1 || tag.Header.TagVersion != 1 {
		return dberror.ErrInvalidInput.Msg("first write against a preallocated id must be version 1, tag 1")
	}
	markQuery := `
		UPDATE object
		SET saved = TRUE
		WHERE object_id = $1 AND tenant_id = $2;
	`
	if _, execErr := tx.ExecContext(ctx, markQuery, tag.Header.ObjectID, tenantID); execErr != nil {
		log.Ctx(ctx).Error().Err(execErr).Msg("failed to mark object saved")
		return dberror.ErrDatabase.Err(execErr)
	}
	return insertFirstVersionTx(ctx, tx, tenantID, tag)
}
