package metadata

import (
	"time"

	"github.com/meridian-data/meridian/pkg/types"
)

// ConfigEntryDetails is the payload of a config directory entry: a selector
// onto the underlying object, denormalized with the object's type and an
// optional caller-defined sub-type used for list filtering.
type ConfigEntryDetails struct {
	Selector   TagSelector      `json:"objectSelector"`
	ObjectType types.ObjectType `json:"objectType"`
	SubType    string           `json:"subType,omitempty"`
}

// ConfigEntry is one revision of a key in the class-scoped config directory.
// The directory is append-only: updates and deletes add new revisions with a
// bumped ConfigVersion, deletes marked by the tombstone flag.
type ConfigEntry struct {
	ConfigClass     string             `json:"configClass"`
	ConfigKey       string             `json:"configKey"`
	ConfigVersion   int                `json:"configVersion"`
	ConfigTimestamp time.Time          `json:"configTimestamp"`
	IsLatest        bool               `json:"isLatest"`
	Deleted         bool               `json:"deleted"`
	Details         ConfigEntryDetails `json:"details"`
}
