package metadata

import (
	"time"

	"github.com/google/uuid"

	"github.com/meridian-data/meridian/pkg/types"
)

// ReservedAttrPrefix marks attribute names owned by the platform. Only
// trusted (server-originated) code paths may write them.
const ReservedAttrPrefix = "trac_"

// Controlled audit attributes injected by the service layer on every write.
const (
	AttrCreateTime     = ReservedAttrPrefix + "create_time"
	AttrCreateUserID   = ReservedAttrPrefix + "create_user_id"
	AttrCreateUserName = ReservedAttrPrefix + "create_user_name"
	AttrUpdateTime     = ReservedAttrPrefix + "update_time"
	AttrUpdateUserID   = ReservedAttrPrefix + "update_user_id"
	AttrUpdateUserName = ReservedAttrPrefix + "update_user_name"
)

// TagHeader is the identity projection of a tag: object, version and tag
// coordinates plus their timestamps and latest markers. The latest flags are
// maintained by the DAL and never settable by clients.
type TagHeader struct {
	ObjectType      types.ObjectType `json:"objectType"`
	ObjectID        uuid.UUID        `json:"objectId"`
	ObjectVersion   int              `json:"objectVersion"`
	ObjectTimestamp time.Time        `json:"objectTimestamp"`
	TagVersion      int              `json:"tagVersion"`
	TagTimestamp    time.Time        `json:"tagTimestamp"`
	IsLatestObject  bool             `json:"isLatestObject"`
	IsLatestTag     bool             `json:"isLatestTag"`
}

// ObjectDefinition is the opaque content payload of an object version. The
// store never interprets the body; Format is a caller-chosen content tag.
type ObjectDefinition struct {
	Format string `json:"format"`
	Body   []byte `json:"body,omitempty"`
}

// Tag is a full metadata record: header, definition payload and attribute
// map. Search results carry a nil Definition.
type Tag struct {
	Header     TagHeader        `json:"header"`
	Definition *ObjectDefinition `json:"definition,omitempty"`
	Attrs      map[string]Value `json:"attrs"`
}

// CloneAttrs returns a shallow copy of the attribute map (values are
// immutable, so sharing them is safe).
func (t *Tag) CloneAttrs() map[string]Value {
	attrs := make(map[string]Value, len(t.Attrs))
	for k, v := range t.Attrs {
		attrs[k] = v
	}
	return attrs
}

// Selector returns the explicit selector that re-resolves to exactly this
// tag.
func (t *Tag) Selector() TagSelector {
	ov := t.Header.ObjectVersion
	tv := t.Header.TagVersion
	return TagSelector{
		ObjectType:    t.Header.ObjectType,
		ObjectID:      t.Header.ObjectID,
		ObjectVersion: &ov,
		TagVersion:    &tv,
	}
}

// WithoutDefinition returns a copy of the tag with the payload cleared, the
// shape search results are returned in.
func (t *Tag) WithoutDefinition() *Tag {
	return &Tag{Header: t.Header, Attrs: t.Attrs}
}
