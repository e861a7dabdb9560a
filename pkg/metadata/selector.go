package metadata

import (
	"time"

	"github.com/google/uuid"

	"github.com/meridian-data/meridian/pkg/types"
)

// TagSelector identifies a single tag. ObjectType and ObjectID are always
// required. Each axis (object version, tag version) is targeted by exactly
// one of: an explicit number, an as-of time, or "latest". An axis with no
// criterion set defaults to latest.
//
// As-of comparisons are inclusive: a time equal to a row's timestamp
// matches that row; a time before the earliest row is NotFound.
type TagSelector struct {
	ObjectType types.ObjectType `json:"objectType"`
	ObjectID   uuid.UUID        `json:"objectId"`

	ObjectVersion *int       `json:"objectVersion,omitempty"`
	ObjectAsOf    *time.Time `json:"objectAsOf,omitempty"`
	LatestObject  bool       `json:"latestObject,omitempty"`

	TagVersion *int       `json:"tagVersion,omitempty"`
	TagAsOf    *time.Time `json:"tagAsOf,omitempty"`
	LatestTag  bool       `json:"latestTag,omitempty"`
}

// LatestSelector targets the current latest tag of the latest version.
func LatestSelector(objectType types.ObjectType, objectID uuid.UUID) TagSelector {
	return TagSelector{
		ObjectType:   objectType,
		ObjectID:     objectID,
		LatestObject: true,
		LatestTag:    true,
	}
}

// VersionCriterion says how one axis of a selector is resolved.
type VersionCriterion struct {
	Explicit *int
	AsOf     *time.Time
	Latest   bool
}

// ObjectCriterion returns the normalized object-version criterion. Unset
// defaults to latest.
func (s TagSelector) ObjectCriterion() VersionCriterion {
	c := VersionCriterion{Explicit: s.ObjectVersion, AsOf: s.ObjectAsOf, Latest: s.LatestObject}
	if c.Explicit == nil && c.AsOf == nil {
		c.Latest = true
	}
	return c
}

// TagCriterion returns the normalized tag-version criterion. Unset defaults
// to latest.
func (s TagSelector) TagCriterion() VersionCriterion {
	c := VersionCriterion{Explicit: s.TagVersion, AsOf: s.TagAsOf, Latest: s.LatestTag}
	if c.Explicit == nil && c.AsOf == nil {
		c.Latest = true
	}
	return c
}

func (c VersionCriterion) validate(axis string) error {
	n := 0
	if c.Explicit != nil {
		n++
		if *c.Explicit < 1 {
			return ErrInvalidSelector.Msg(axis + " version must be >= 1")
		}
	}
	if c.AsOf != nil {
		n++
	}
	if c.Latest {
		n++
	}
	if n > 1 {
		return ErrInvalidSelector.Msg("conflicting criteria for " + axis + " version")
	}
	return nil
}

// Validate checks structural well-formedness: a known object type, a
// non-nil object id, and at most one criterion per axis.
func (s TagSelector) Validate() error {
	if !s.ObjectType.IsValid() {
		return ErrInvalidSelector.Msg("missing or unknown object type")
	}
	if s.ObjectID == uuid.Nil {
		return ErrInvalidSelector.Msg("missing object id")
	}
	if err := (VersionCriterion{Explicit: s.ObjectVersion, AsOf: s.ObjectAsOf, Latest: s.LatestObject}).validate("object"); err != nil {
		return err
	}
	if err := (VersionCriterion{Explicit: s.TagVersion, AsOf: s.TagAsOf, Latest: s.LatestTag}).validate("tag"); err != nil {
		return err
	}
	return nil
}
