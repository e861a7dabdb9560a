// Package postgresql is the PostgreSQL implementation of the metadata store
// DAL: objects, versions, tags, attributes, the config directory, search,
// and the atomic batch pipeline.
package postgresql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/avast/retry-go/v4"
	"github.com/golang/snappy"
	"github.com/jackc/pgconn"
	"github.com/rs/zerolog/log"

	"github.com/meridian-data/meridian/internal/common/apperrors"
	"github.com/meridian-data/meridian/internal/metasrv/db/config"
	"github.com/meridian-data/meridian/internal/metasrv/db/dberror"
	"github.com/meridian-data/meridian/internal/metasrv/db/dbmanager"
	"github.com/meridian-data/meridian/internal/metasrv/metacommon"
	"github.com/meridian-data/meridian/pkg/metadata"
	"github.com/meridian-data/meridian/pkg/types"
)

type meridianMetaDb struct {
	mm *metadataManager
	om *objectManager
	cm *configManager
	xm *connectionManager
}

func NewMeridianMetaDb(c dbmanager.ScopedConn) (*metadataManager, *objectManager, *configManager, *connectionManager) {
	h := &meridianMetaDb{}
	h.mm = newMetadataManager(c)
	h.om = newObjectManager(c)
	h.cm = newConfigManager(c)
	h.xm = newConnectionManager(c)
	h.cm.om = h.om
	return h.mm, h.om, h.cm, h.xm
}

type metadataManager struct {
	c dbmanager.ScopedConn
}

func newMetadataManager(c dbmanager.ScopedConn) *metadataManager {
	return &metadataManager{c: c}
}

func (mm *metadataManager) conn() *sql.Conn {
	return mm.c.Conn()
}

type objectManager struct {
	c dbmanager.ScopedConn
}

func newObjectManager(c dbmanager.ScopedConn) *objectManager {
	return &objectManager{c: c}
}

func (om *objectManager) conn() *sql.Conn {
	return om.c.Conn()
}

type configManager struct {
	c  dbmanager.ScopedConn
	om *objectManager
}

func newConfigManager(c dbmanager.ScopedConn) *configManager {
	return &configManager{c: c}
}

func (cm *configManager) conn() *sql.Conn {
	return cm.c.Conn()
}

type connectionManager struct {
	c dbmanager.ScopedConn
}

func newConnectionManager(c dbmanager.ScopedConn) *connectionManager {
	return &connectionManager{c: c}
}

func (xm *connectionManager) AddScopes(ctx context.Context, scopes map[string]string) error {
	return xm.c.AddScopes(ctx, scopes)
}

func (xm *connectionManager) DropScopes(ctx context.Context, scopes []string) error {
	return xm.c.DropScopes(ctx, scopes)
}

func (xm *connectionManager) AddScope(ctx context.Context, scope, value string) error {
	return xm.c.AddScope(ctx, scope, value)
}

func (xm *connectionManager) DropScope(ctx context.Context, scope string) error {
	return xm.c.DropScope(ctx, scope)
}

func (xm *connectionManager) DropAllScopes(ctx context.Context) error {
	return xm.c.DropAllScopes(ctx)
}

func (xm *connectionManager) Close(ctx context.Context) {
	xm.c.Close(ctx)
}

func tenantFromContext(ctx context.Context) (types.TenantId, apperrors.Error) {
	tenantID := metacommon.TenantIdFromContext(ctx)
	if tenantID == "" {
		log.Ctx(ctx).Error().Msg("missing tenant ID in context")
		return "", dberror.ErrMissingTenantID
	}
	return tenantID, nil
}

// runInTx runs fn in a transaction on conn, committing on nil and rolling
// back otherwise.
func runInTx(ctx context.Context, conn *sql.Conn, fn func(tx *sql.Tx) apperrors.Error) apperrors.Error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to begin transaction")
		return dberror.ErrDatabase.Err(err)
	}
	if dberr := fn(tx); dberr != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			log.Ctx(ctx).Error().Err(rollbackErr).Msg("failed to rollback transaction")
		}
		return dberr
	}
	if err := tx.Commit(); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to commit transaction")
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func pgConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == "23505"
}

func isFkViolation(err error) bool {
	return pgErrorCode(err) == "23503"
}

// isRetryableTxError matches serialization failures (40001), deadlocks
// (40P01) and lock timeouts (55P03), the cases where rerunning the whole
// transaction can succeed.
func isRetryableTxError(err error) bool {
	switch pgErrorCode(err) {
	case "40001", "40P01", "55P03":
		return true
	}
	return false
}

const writeRetryAttempts = 3

// withWriteRetry reruns fn on transient transaction failures. The retry
// budget is small; once spent, the failure surfaces as a Conflict so the
// client can decide whether to resubmit.
func withWriteRetry(ctx context.Context, fn func() apperrors.Error) apperrors.Error {
	err := retry.Do(
		func() error {
			if dberr := fn(); dberr != nil {
				return dberr
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(writeRetryAttempts),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryableTxError),
	)
	if err == nil {
		return nil
	}
	if isRetryableTxError(err) {
		log.Ctx(ctx).Warn().Err(err).Msg("write retry budget exhausted")
		return dberror.ErrConflict.Err(err)
	}
	var dberr apperrors.Error
	if errors.As(err, &dberr) {
		return dberr
	}
	return dberror.ErrDatabase.Err(err)
}

// encodeDefinition flattens a definition payload for the bytea column,
// snappy-compressing when enabled.
func encodeDefinition(def *metadata.ObjectDefinition) (format string, body []byte) {
	if def == nil {
		return "", nil
	}
	body = def.Body
	if config.CompressDefinitions {
		body = snappy.Encode(nil, def.Body)
	}
	return def.Format, body
}

func decodeDefinition(ctx context.Context, format string, body []byte) (*metadata.ObjectDefinition, apperrors.Error) {
	if format == "" && body == nil {
		return nil, nil
	}
	if config.CompressDefinitions {
		raw, err := snappy.Decode(nil, body)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to uncompress definition")
			return nil, dberror.ErrDatabase.Err(err)
		}
		body = raw
	}
	return &metadata.ObjectDefinition{Format: format, Body: body}, nil
}
