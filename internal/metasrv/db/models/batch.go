package models

import (
	"github.com/google/uuid"

	"github.com/meridian-data/meridian/pkg/metadata"
	"github.com/meridian-data/meridian/pkg/types"
)

// PreallocateRequest reserves Count object ids of one type. The DAL fills
// ObjectIDs on success.
type PreallocateRequest struct {
	ObjectType types.ObjectType
	Count      int
	ObjectIDs  []uuid.UUID
}

// ConfigEntryWrite carries one config directory mutation. Replace false is a
// create (fails if the key is live), true is an update (requires a live
// prior entry).
type ConfigEntryWrite struct {
	Entry   *metadata.ConfigEntry
	Replace bool
}

// ConfigEntryRef names a directory key for tombstoning.
type ConfigEntryRef struct {
	ConfigClass string
	ConfigKey   string
}

// BatchUpdate is the unit of atomic multi-item writes. Sections execute in
// declaration order inside a single transaction; any failure rolls back the
// whole bundle. Saved tags and preallocated ids are written back in place.
type BatchUpdate struct {
	Preallocate   []*PreallocateRequest
	NewObjects    []*metadata.Tag
	Preallocated  []*metadata.Tag // first writes against previously reserved ids
	NewVersions   []*metadata.Tag
	NewTags       []*metadata.Tag
	ConfigEntries []*ConfigEntryWrite
	Tombstones    []ConfigEntryRef
}

// IsEmpty reports whether the bundle carries no work.
func (b *BatchUpdate) IsEmpty() bool {
	return len(b.Preallocate) == 0 && len(b.NewObjects) == 0 && len(b.Preallocated) == 0 &&
		len(b.NewVersions) == 0 && len(b.NewTags) == 0 &&
		len(b.ConfigEntries) == 0 && len(b.Tombstones) == 0
}
