package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/meridian-data/meridian/pkg/types"
)

/*
  Table "public.object_version"
      Column       |           Type           | Collation | Nullable | Default
-------------------+--------------------------+-----------+----------+---------
 object_id         | uuid                     |           | not null |
 tenant_id         | character varying(32)    |           | not null |
 version_num       | integer                  |           | not null |
 object_timestamp  | timestamp with time zone |           | not null |
 is_latest         | boolean                  |           | not null |
 definition_format | character varying(64)    |           |          |
 definition        | bytea                    |           |          |
 created_at        | timestamp with time zone |           |          | now()
Indexes:
    "object_version_pkey" PRIMARY KEY, btree (object_id, version_num, tenant_id)
    "object_version_latest_idx" btree (tenant_id, object_id) WHERE is_latest
Check constraints:
    "object_version_version_num_check" CHECK (version_num > 0)
Foreign-key constraints:
    "object_version_object_id_tenant_id_fkey" FOREIGN KEY (object_id, tenant_id) REFERENCES object(object_id, tenant_id) ON DELETE CASCADE
*/

// ObjectVersion holds one immutable snapshot of an object's definition. The
// definition column may be snappy-compressed depending on server config; the
// DAL transparently round-trips either form.
type ObjectVersion struct {
	ObjectID         uuid.UUID      `db:"object_id"`
	TenantID         types.TenantId `db:"tenant_id"`
	VersionNum       int            `db:"version_num"`
	ObjectTimestamp  time.Time      `db:"object_timestamp"`
	IsLatest         bool           `db:"is_latest"`
	DefinitionFormat string         `db:"definition_format"`
	Definition       []byte         `db:"definition"`
	CreatedAt        time.Time      `db:"created_at"`
}
