package models

import (
	"time"

	"github.com/jackc/pgtype"
	"github.com/meridian-data/meridian/pkg/types"
)

/*
  Table "public.config_entry"
      Column      |           Type           | Collation | Nullable | Default
------------------+--------------------------+-----------+----------+---------
 tenant_id        | character varying(32)    |           | not null |
 config_class     | character varying(64)    |           | not null |
 config_key       | character varying(128)   |           | not null |
 config_version   | integer                  |           | not null |
 config_timestamp | timestamp with time zone |           | not null |
 is_latest        | boolean                  |           | not null |
 deleted          | boolean                  |           | not null | false
 details          | jsonb                    |           |          |
 created_at       | timestamp with time zone |           |          | now()
Indexes:
    "config_entry_pkey" PRIMARY KEY, btree (tenant_id, config_class, config_key, config_version)
    "config_entry_latest_idx" btree (tenant_id, config_class, config_key) WHERE is_latest
Check constraints:
    "config_entry_config_version_check" CHECK (config_version > 0)
Foreign-key constraints:
    "config_entry_tenant_id_fkey" FOREIGN KEY (tenant_id) REFERENCES tenant(tenant_id)
*/

// ConfigEntry is a versioned row in the config directory. Deletes append a
// tombstone (deleted = true) rather than removing history; a re-create after
// a tombstone continues the version sequence.
type ConfigEntry struct {
	TenantID        types.TenantId `db:"tenant_id"`
	ConfigClass     string         `db:"config_class"`
	ConfigKey       string         `db:"config_key"`
	ConfigVersion   int            `db:"config_version"`
	ConfigTimestamp time.Time      `db:"config_timestamp"`
	IsLatest        bool           `db:"is_latest"`
	Deleted         bool           `db:"deleted"`
	Details         pgtype.JSONB   `db:"details"`
	CreatedAt       time.Time      `db:"created_at"`
}
