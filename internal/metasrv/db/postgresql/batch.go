package postgresql

import (
	"context"
	"database/sql"

	"github.com/meridian-data/meridian/internal/common/apperrors"
	"github.com/meridian-data/meridian/internal/metasrv/db/dberror"
	"github.com/meridian-data/meridian/internal/metasrv/db/models"
)

// SaveBatchUpdate executes one bundle in a single transaction: either every
// section lands or none does. Sections run in declaration order, so a bundle
// can preallocate ids, write objects against them, and point config entries
// at the results atomically.
func (om *objectManager) SaveBatchUpdate(ctx context.Context, batch *models.BatchUpdate) apperrors.Error {
	tenantID, aerr := tenantFromContext(ctx)
	if aerr != nil {
		return aerr
	}
	if batch == nil || batch.IsEmpty() {
		return dberror.ErrInvalidInput.Msg("empty batch")
	}
	return withWriteRetry(ctx, func() apperrors.Error {
		return runInTx(ctx, om.conn(), func(tx *sql.Tx) apperrors.Error {
			for _, req := range batch.Preallocate {
				if req.Count < 1 {
					return dberror.ErrInvalidInput.Msg("preallocation count must be >= 1")
				}
				ids, err := preallocateTx(ctx, tx, tenantID, req.ObjectType, req.Count)
				if err != nil {
					return err
				}
				req.ObjectIDs = ids
			}
			for _, tag := range batch.NewObjects {
				if err := saveNewObjectTx(ctx, tx, tenantID, tag); err != nil {
					return err
				}
			}
			for _, tag := range batch.Preallocated {
				if err := savePreallocatedTx(ctx, tx, tenantID, tag); err != nil {
					return err
				}
			}
			for _, tag := range batch.NewVersions {
				if err := saveNewVersionTx(ctx, tx, tenantID, tag); err != nil {
					return err
				}
			}
			for _, tag := range batch.NewTags {
				if err := saveNewTagTx(ctx, tx, tenantID, tag); err != nil {
					return err
				}
			}
			for _, write := range batch.ConfigEntries {
				var err apperrors.Error
				if write.Replace {
					err = updateConfigEntryTx(ctx, tx, tenantID, write.Entry)
				} else {
					err = createConfigEntryTx(ctx, tx, tenantID, write.Entry)
				}
				if err != nil {
					return err
				}
			}
			for _, ref := range batch.Tombstones {
				if _, err := tombstoneConfigEntryTx(ctx, tx, tenantID, ref.ConfigClass, ref.ConfigKey); err != nil {
					return err
				}
			}
			return nil
		})
	})
}
