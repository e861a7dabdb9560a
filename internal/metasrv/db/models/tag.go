package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/meridian-data/meridian/pkg/types"
)

/*
  Table "public.tag"
    Column     |           Type           | Collation | Nullable | Default
---------------+--------------------------+-----------+----------+---------
 object_id     | uuid                     |           | not null |
 tenant_id     | character varying(32)    |           | not null |
 version_num   | integer                  |           | not null |
 tag_num       | integer                  |           | not null |
 tag_timestamp | timestamp with time zone |           | not null |
 is_latest     | boolean                  |           | not null |
 created_at    | timestamp with time zone |           |          | now()
Indexes:
    "tag_pkey" PRIMARY KEY, btree (object_id, version_num, tag_num, tenant_id)
    "tag_latest_idx" btree (tenant_id, object_id, version_num) WHERE is_latest
Check constraints:
    "tag_tag_num_check" CHECK (tag_num > 0)
Foreign-key constraints:
    "tag_object_id_version_num_tenant_id_fkey" FOREIGN KEY (object_id, version_num, tenant_id) REFERENCES object_version(object_id, version_num, tenant_id) ON DELETE CASCADE
*/

// Tag is one attribute-set revision of an object version. is_latest marks the
// newest tag within its version.
type Tag struct {
	ObjectID     uuid.UUID      `db:"object_id"`
	TenantID     types.TenantId `db:"tenant_id"`
	VersionNum   int            `db:"version_num"`
	TagNum       int            `db:"tag_num"`
	TagTimestamp time.Time      `db:"tag_timestamp"`
	IsLatest     bool           `db:"is_latest"`
	CreatedAt    time.Time      `db:"created_at"`
}

/*
  Table "public.tag_attr"
     Column     |           Type           | Collation | Nullable | Default
----------------+--------------------------+-----------+----------+---------
 object_id      | uuid                     |           | not null |
 tenant_id      | character varying(32)    |           | not null |
 version_num    | integer                  |           | not null |
 tag_num        | integer                  |           | not null |
 attr_name      | character varying(256)   |           | not null |
 attr_type      | character varying(16)    |           | not null |
 attr_index     | integer                  |           | not null | 0
 value_boolean  | boolean                  |           |          |
 value_integer  | bigint                   |           |          |
 value_float    | double precision         |           |          |
 value_decimal  | numeric                  |           |          |
 value_string   | text                     |           |          |
 value_date     | date                     |           |          |
 value_datetime | timestamp with time zone |           |          |
Indexes:
    "tag_attr_pkey" PRIMARY KEY, btree (object_id, version_num, tag_num, attr_name, attr_index, tenant_id)
    "tag_attr_name_idx" btree (tenant_id, attr_name)
Foreign-key constraints:
    "tag_attr_tag_fkey" FOREIGN KEY (object_id, version_num, tag_num, tenant_id) REFERENCES tag(object_id, version_num, tag_num, tenant_id) ON DELETE CASCADE
*/

// TagAttr is the normalized attribute row. Scalars live at attr_index 0;
// array elements at 1..n with attr_type holding the element type. Exactly one
// value_* column is non-NULL per row, chosen by attr_type.
type TagAttr struct {
	ObjectID   uuid.UUID      `db:"object_id"`
	TenantID   types.TenantId `db:"tenant_id"`
	VersionNum int            `db:"version_num"`
	TagNum     int            `db:"tag_num"`
	AttrName   string         `db:"attr_name"`
	AttrType   string         `db:"attr_type"`
	AttrIndex  int            `db:"attr_index"`

	ValueBoolean  *bool      `db:"value_boolean"`
	ValueInteger  *int64     `db:"value_integer"`
	ValueFloat    *float64   `db:"value_float"`
	ValueDecimal  *string    `db:"value_decimal"`
	ValueString   *string    `db:"value_string"`
	ValueDate     *time.Time `db:"value_date"`
	ValueDatetime *time.Time `db:"value_datetime"`
}
