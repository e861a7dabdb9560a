package models

import (
	"time"

	"github.com/jackc/pgtype"
	"github.com/meridian-data/meridian/pkg/types"
)

/*
  Table "public.tenant"
   Column   |           Type           | Collation | Nullable | Default
------------+--------------------------+-----------+----------+---------
 tenant_id  | character varying(32)    |           | not null |
 info       | jsonb                    |           |          |
 created_at | timestamp with time zone |           |          | now()
Indexes:
    "tenant_pkey" PRIMARY KEY, btree (tenant_id)
*/

// Tenant model definition
type Tenant struct {
	TenantID  types.TenantId `db:"tenant_id"`
	Info      pgtype.JSONB   `db:"info"`
	CreatedAt time.Time      `db:"created_at"`
}
