package postgresql

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog/log"
)

// schemaDDL creates the metadata store tables. Statements are idempotent so
// bootstrap can be rerun against an existing database.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS tenant (
		tenant_id VARCHAR(32) PRIMARY KEY,
		info JSONB,
		created_at TIMESTAMPTZ DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS object (
		object_id UUID NOT NULL,
		tenant_id VARCHAR(32) NOT NULL REFERENCES tenant(tenant_id),
		object_type VARCHAR(16) NOT NULL,
		saved BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ DEFAULT now(),
		PRIMARY KEY (object_id, tenant_id)
	)`,
	`CREATE TABLE IF NOT EXISTS object_version (
		object_id UUID NOT NULL,
		tenant_id VARCHAR(32) NOT NULL,
		version_num INTEGER NOT NULL CHECK (version_num > 0),
		object_timestamp TIMESTAMPTZ NOT NULL,
		is_latest BOOLEAN NOT NULL,
		definition_format VARCHAR(64),
		definition BYTEA,
		created_at TIMESTAMPTZ DEFAULT now(),
		PRIMARY KEY (object_id, version_num, tenant_id),
		FOREIGN KEY (object_id, tenant_id) REFERENCES object(object_id, tenant_id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS object_version_latest_idx
		ON object_version (tenant_id, object_id) WHERE is_latest`,
	`CREATE TABLE IF NOT EXISTS tag (
		object_id UUID NOT NULL,
		tenant_id VARCHAR(32) NOT NULL,
		version_num INTEGER NOT NULL,
		tag_num INTEGER NOT NULL CHECK (tag_num > 0),
		tag_timestamp TIMESTAMPTZ NOT NULL,
		is_latest BOOLEAN NOT NULL,
		created_at TIMESTAMPTZ DEFAULT now(),
		PRIMARY KEY (object_id, version_num, tag_num, tenant_id),
		FOREIGN KEY (object_id, version_num, tenant_id) REFERENCES object_version(object_id, version_num, tenant_id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS tag_latest_idx
		ON tag (tenant_id, object_id, version_num) WHERE is_latest`,
	`CREATE TABLE IF NOT EXISTS tag_attr (
		object_id UUID NOT NULL,
		tenant_id VARCHAR(32) NOT NULL,
		version_num INTEGER NOT NULL,
		tag_num INTEGER NOT NULL,
		attr_name VARCHAR(256) NOT NULL,
		attr_type VARCHAR(16) NOT NULL,
		attr_index INTEGER NOT NULL DEFAULT 0,
		value_boolean BOOLEAN,
		value_integer BIGINT,
		value_float DOUBLE PRECISION,
		value_decimal NUMERIC,
		value_string TEXT,
		value_date DATE,
		value_datetime TIMESTAMPTZ,
		PRIMARY KEY (object_id, version_num, tag_num, attr_name, attr_index, tenant_id),
		FOREIGN KEY (object_id, version_num, tag_num, tenant_id) REFERENCES tag(object_id, version_num, tag_num, tenant_id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS tag_attr_name_idx
		ON tag_attr (tenant_id, attr_name)`,
	`CREATE TABLE IF NOT EXISTS config_entry (
		tenant_id VARCHAR(32) NOT NULL REFERENCES tenant(tenant_id),
		config_class VARCHAR(64) NOT NULL,
		config_key VARCHAR(128) NOT NULL,
		config_version INTEGER NOT NULL CHECK (config_version > 0),
		config_timestamp TIMESTAMPTZ NOT NULL,
		is_latest BOOLEAN NOT NULL,
		deleted BOOLEAN NOT NULL DEFAULT FALSE,
		details JSONB,
		created_at TIMESTAMPTZ DEFAULT now(),
		PRIMARY KEY (tenant_id, config_class, config_key, config_version)
	)`,
	`CREATE INDEX IF NOT EXISTS config_entry_latest_idx
		ON config_entry (tenant_id, config_class, config_key) WHERE is_latest`,
}

// InitSchema creates the store schema on the given database. Used by the
// server's --init-db bootstrap and by test setup.
func InitSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaDDL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to apply schema statement")
			return err
		}
	}
	return nil
}
