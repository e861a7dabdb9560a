package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/meridian-data/meridian/pkg/types"
)

/*
  Table "public.object"
   Column    |           Type           | Collation | Nullable | Default
-------------+--------------------------+-----------+----------+---------
 object_id   | uuid                     |           | not null |
 tenant_id   | character varying(32)    |           | not null |
 object_type | character varying(16)    |           | not null |
 saved       | boolean                  |           | not null | true
 created_at  | timestamp with time zone |           |          | now()
Indexes:
    "object_pkey" PRIMARY KEY, btree (object_id, tenant_id)
Foreign-key constraints:
    "object_tenant_id_fkey" FOREIGN KEY (tenant_id) REFERENCES tenant(tenant_id)
*/

// Object is the identity row for a metadata object. Preallocated ids are
// written with saved = false; they stay invisible to reads and search until
// the first version lands and flips the flag.
type Object struct {
	ObjectID   uuid.UUID        `db:"object_id"`
	TenantID   types.TenantId   `db:"tenant_id"`
	ObjectType types.ObjectType `db:"object_type"`
	Saved      bool             `db:"saved"`
	CreatedAt  time.Time        `db:"created_at"`
}
