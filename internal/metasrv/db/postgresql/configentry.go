package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jackc/pgtype"
	"github.com/rs/zerolog/log"

	"github.com/meridian-data/meridian/internal/common/apperrors"
	"github.com/meridian-data/meridian/internal/metasrv/db/dberror"
	"github.com/meridian-data/meridian/internal/metasrv/db/models"
	"github.com/meridian-data/meridian/pkg/metadata"
	"github.com/meridian-data/meridian/pkg/types"
)

// CreateConfigEntry writes version 1 of a directory key, or the next version
// when the key's latest entry is a tombstone. A live key fails AlreadyExists.
func (cm *configManager) CreateConfigEntry(ctx context.Context, entry *metadata.ConfigEntry) apperrors.Error {
	tenantID, aerr := tenantFromContext(ctx)
	if aerr != nil {
		return aerr
	}
	return withWriteRetry(ctx, func() apperrors.Error {
		return runInTx(ctx, cm.conn(), func(tx *sql.Tx) apperrors.Error {
			return createConfigEntryTx(ctx, tx, tenantID, entry)
		})
	})
}

// UpdateConfigEntry appends the next version of a live key.
func (cm *configManager) UpdateConfigEntry(ctx context.Context, entry *metadata.ConfigEntry) apperrors.Error {
	tenantID, aerr := tenantFromContext(ctx)
	if aerr != nil {
		return aerr
	}
	return withWriteRetry(ctx, func() apperrors.Error {
		return runInTx(ctx, cm.conn(), func(tx *sql.Tx) apperrors.Error {
			return updateConfigEntryTx(ctx, tx, tenantID, entry)
		})
	})
}

// DeleteConfigEntry appends a tombstone for a live key and returns it.
// History stays in place; a later create revives the key with the next
// version number.
func (cm *configManager) DeleteConfigEntry(ctx context.Context, configClass, configKey string) (*metadata.ConfigEntry, apperrors.Error) {
	tenantID, aerr := tenantFromContext(ctx)
	if aerr != nil {
		return nil, aerr
	}
	var tombstone *metadata.ConfigEntry
	aerr = withWriteRetry(ctx, func() apperrors.Error {
		return runInTx(ctx, cm.conn(), func(tx *sql.Tx) apperrors.Error {
			var err apperrors.Error
			tombstone, err = tombstoneConfigEntryTx(ctx, tx, tenantID, configClass, configKey)
			return err
		})
	})
	if aerr != nil {
		return nil, aerr
	}
	return tombstone, nil
}

func createConfigEntryTx(ctx context.Context, tx *sql.Tx, tenantID types.TenantId, entry *metadata.ConfigEntry) apperrors.Error {
	latest, err := lockLatestConfigEntryTx(ctx, tx, tenantID, entry.ConfigClass, entry.ConfigKey)
	if err != nil {
		return err
	}
	if latest != nil && !latest.Deleted {
		return dberror.ErrAlreadyExists.Msg("config entry already exists")
	}
	version := 1
	if latest != nil {
		version = latest.ConfigVersion + 1
		if err := clearLatestConfigTx(ctx, tx, tenantID, entry.ConfigClass, entry.ConfigKey); err != nil {
			return err
		}
	}
	entry.ConfigVersion = version
	entry.Deleted = false
	return insertConfigEntryTx(ctx, tx, tenantID, entry)
}

func updateConfigEntryTx(ctx context.Context, tx *sql.Tx, tenantID types.TenantId, entry *metadata.ConfigEntry) apperrors.Error {
	latest, err := lockLatestConfigEntryTx(ctx, tx, tenantID, entry.ConfigClass, entry.ConfigKey)
	if err != nil {
		return err
	}
	if latest == nil || latest.Deleted {
		return dberror.ErrNotFound.Msg("config entry not found")
	}
	if err := clearLatestConfigTx(ctx, tx, tenantID, entry.ConfigClass, entry.ConfigKey); err != nil {
		return err
	}
	entry.ConfigVersion = latest.ConfigVersion + 1
	entry.Deleted = false
	return insertConfigEntryTx(ctx, tx, tenantID, entry)
}

func tombstoneConfigEntryTx(ctx context.Context, tx *sql.Tx, tenantID types.TenantId, configClass, configKey string) (*metadata.ConfigEntry, apperrors.Error) {
	latest, err := lockLatestConfigEntryTx(ctx, tx, tenantID, configClass, configKey)
	if err != nil {
		return nil, err
	}
	if latest == nil || latest.Deleted {
		return nil, dberror.ErrNotFound.Msg("config entry not found")
	}
	if err := clearLatestConfigTx(ctx, tx, tenantID, configClass, configKey); err != nil {
		return nil, err
	}
	// The tombstone keeps the prior details so history reads stay coherent.
	tombstone := &metadata.ConfigEntry{
		ConfigClass:   configClass,
		ConfigKey:     configKey,
		ConfigVersion: latest.ConfigVersion + 1,
		Deleted:       true,
		Details:       latest.Details,
	}
	if err := insertConfigEntryTx(ctx, tx, tenantID, tombstone); err != nil {
		return nil, err
	}
	return tombstone, nil
}

// lockLatestConfigEntryTx reads the latest revision of a key under FOR
// UPDATE, serializing directory writers per key. Returns nil when the key
// has never been written.
func lockLatestConfigEntryTx(ctx context.Context, tx *sql.Tx, tenantID types.TenantId, configClass, configKey string) (*metadata.ConfigEntry, apperrors.Error) {
	query := `
		SELECT config_class, config_key, config_version, config_timestamp, is_latest, deleted, details
		FROM config_entry
		WHERE tenant_id = $1 AND config_class = $2 AND config_key = $3 AND is_latest
		FOR UPDATE;
	`
	row := tx.QueryRowContext(ctx, query, tenantID, configClass, configKey)
	entry, err := scanConfigEntry(ctx, row)
	if err != nil {
		if err == errNoConfigEntry {
			return nil, nil
		}
		return nil, dberror.ErrDatabase.Err(err)
	}
	return entry, nil
}

func clearLatestConfigTx(ctx context.Context, tx *sql.Tx, tenantID types.TenantId, configClass, configKey string) apperrors.Error {
	query := `
		UPDATE config_entry
		SET is_latest = FALSE
		WHERE tenant_id = $1 AND config_class = $2 AND config_key = $3 AND is_latest;
	`
	if _, err := tx.ExecContext(ctx, query, tenantID, configClass, configKey); err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

func insertConfigEntryTx(ctx context.Context, tx *sql.Tx, tenantID types.TenantId, entry *metadata.ConfigEntry) apperrors.Error {
	details, err := marshalConfigDetails(entry.Details)
	if err != nil {
		return dberror.ErrInvalidInput.Err(err)
	}
	entry.ConfigTimestamp = storeNow()
	entry.IsLatest = true
	query := `
		INSERT INTO config_entry (tenant_id, config_class, config_key, config_version, config_timestamp, is_latest, deleted, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, execErr := tx.ExecContext(ctx, query,
		tenantID, entry.ConfigClass, entry.ConfigKey, entry.ConfigVersion,
		entry.ConfigTimestamp, entry.IsLatest, entry.Deleted, details)
	if execErr != nil {
		if isUniqueViolation(execErr) {
			return dberror.ErrAlreadyExists.Msg("config entry version already exists")
		}
		if isFkViolation(execErr) {
			return dberror.ErrNotFound.Msg("tenant not found")
		}
		log.Ctx(ctx).Error().Err(execErr).Msg("failed to insert config entry")
		return dberror.ErrDatabase.Err(execErr)
	}
	return nil
}

// GetConfigEntry returns the latest live revision of a key. Tombstoned and
// never-written keys are both NotFound.
func (cm *configManager) GetConfigEntry(ctx context.Context, configClass, configKey string) (*metadata.ConfigEntry, apperrors.Error) {
	tenantID, aerr := tenantFromContext(ctx)
	if aerr != nil {
		return nil, aerr
	}
	query := `
		SELECT config_class, config_key, config_version, config_timestamp, is_latest, deleted, details
		FROM config_entry
		WHERE tenant_id = $1 AND config_class = $2 AND config_key = $3 AND is_latest;
	`
	row := cm.conn().QueryRowContext(ctx, query, tenantID, configClass, configKey)
	entry, err := scanConfigEntry(ctx, row)
	if err != nil {
		if err == errNoConfigEntry {
			return nil, dberror.ErrNotFound.Msg("config entry not found")
		}
		return nil, dberror.ErrDatabase.Err(err)
	}
	if entry.Deleted {
		return nil, dberror.ErrNotFound.Msg("config entry not found")
	}
	return entry, nil
}

// ListConfigEntries returns the latest revision of every key in a class,
// skipping tombstones unless includeDeleted is set.
func (cm *configManager) ListConfigEntries(ctx context.Context, configClass string, includeDeleted bool) ([]*metadata.ConfigEntry, apperrors.Error) {
	tenantID, aerr := tenantFromContext(ctx)
	if aerr != nil {
		return nil, aerr
	}
	query := `
		SELECT config_class, config_key, config_version, config_timestamp, is_latest, deleted, details
		FROM config_entry
		WHERE tenant_id = $1 AND config_class = $2 AND is_latest
	`
	if !includeDeleted {
		query += ` AND NOT deleted`
	}
	query += ` ORDER BY config_key;`

	rows, err := cm.conn().QueryContext(ctx, query, tenantID, configClass)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to list config entries")
		return nil, dberror.ErrDatabase.Err(err)
	}
	defer rows.Close()

	var entries []*metadata.ConfigEntry
	for rows.Next() {
		entry, err := scanConfigEntry(ctx, rows)
		if err != nil {
			return nil, dberror.ErrDatabase.Err(err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	return entries, nil
}

var errNoConfigEntry = sql.ErrNoRows

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfigEntry(ctx context.Context, row rowScanner) (*metadata.ConfigEntry, error) {
	m := &models.ConfigEntry{}
	err := row.Scan(&m.ConfigClass, &m.ConfigKey, &m.ConfigVersion,
		&m.ConfigTimestamp, &m.IsLatest, &m.Deleted, &m.Details)
	if err != nil {
		return nil, err
	}
	entry := &metadata.ConfigEntry{
		ConfigClass:     m.ConfigClass,
		ConfigKey:       m.ConfigKey,
		ConfigVersion:   m.ConfigVersion,
		ConfigTimestamp: m.ConfigTimestamp,
		IsLatest:        m.IsLatest,
		Deleted:         m.Deleted,
	}
	if m.Details.Status == pgtype.Present {
		if err := json.Unmarshal(m.Details.Bytes, &entry.Details); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to decode config entry details")
			return nil, err
		}
	}
	return entry, nil
}

func marshalConfigDetails(details metadata.ConfigEntryDetails) (pgtype.JSONB, error) {
	raw, err := json.Marshal(details)
	if err != nil {
		return pgtype.JSONB{Status: pgtype.Null}, err
	}
	return pgtype.JSONB{Bytes: raw, Status: pgtype.Present}, nil
}
