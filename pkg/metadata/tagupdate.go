package metadata

import "strings"

// TagOperation names one declarative mutation of a tag's attributes.
type TagOperation string

const (
	// TagOpUnset is the zero value; it is treated as CREATE_OR_REPLACE_ATTR.
	TagOpUnset           TagOperation = ""
	TagOpCreateAttr      TagOperation = "CREATE_ATTR"
	TagOpReplaceAttr     TagOperation = "REPLACE_ATTR"
	TagOpAppendAttr      TagOperation = "APPEND_ATTR"
	TagOpDeleteAttr      TagOperation = "DELETE_ATTR"
	TagOpClearAllAttr    TagOperation = "CLEAR_ALL_ATTR"
	TagOpCreateOrReplace TagOperation = "CREATE_OR_REPLACE_ATTR"
	TagOpCreateOrAppend  TagOperation = "CREATE_OR_APPEND_ATTR"
)

// TagUpdate is one entry in an ordered update list. Value is unused for
// DELETE_ATTR and CLEAR_ALL_ATTR.
type TagUpdate struct {
	Operation TagOperation `json:"operation,omitempty"`
	AttrName  string       `json:"attrName,omitempty"`
	Value     *Value       `json:"value,omitempty"`
}

// ApplyTagUpdates applies the update list left to right over the given
// attribute map and returns the resulting map. The input is never modified;
// on the first precondition failure the whole list is rejected with a
// BadUpdate error and no partial effect.
func ApplyTagUpdates(attrs map[string]Value, updates []TagUpdate) (map[string]Value, error) {
	out := make(map[string]Value, len(attrs)+len(updates))
	for k, v := range attrs {
		out[k] = v
	}
	for i := range updates {
		if err := applyOne(out, &updates[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func applyOne(attrs map[string]Value, u *TagUpdate) error {
	op := u.Operation
	if op == TagOpUnset {
		op = TagOpCreateOrReplace
	}

	if op == TagOpClearAllAttr {
		for name := range attrs {
			if !strings.HasPrefix(name, ReservedAttrPrefix) {
				delete(attrs, name)
			}
		}
		return nil
	}

	if u.AttrName == "" {
		return ErrBadUpdate.Msg("tag update is missing an attribute name")
	}
	existing, present := attrs[u.AttrName]

	switch op {
	case TagOpDeleteAttr:
		if !present {
			return ErrBadUpdate.Msg("DELETE_ATTR: attribute not present: " + u.AttrName)
		}
		delete(attrs, u.AttrName)
		return nil

	case TagOpCreateAttr:
		if present {
			return ErrBadUpdate.Msg("CREATE_ATTR: attribute already present: " + u.AttrName)
		}
		return setAttr(attrs, u)

	case TagOpReplaceAttr:
		if !present {
			return ErrBadUpdate.Msg("REPLACE_ATTR: attribute not present: " + u.AttrName)
		}
		return replaceAttr(attrs, u, existing)

	case TagOpAppendAttr:
		if !present {
			return ErrBadUpdate.Msg("APPEND_ATTR: attribute not present: " + u.AttrName)
		}
		return appendAttr(attrs, u, existing)

	case TagOpCreateOrReplace:
		if !present {
			return setAttr(attrs, u)
		}
		return replaceAttr(attrs, u, existing)

	case TagOpCreateOrAppend:
		if !present {
			return setAttr(attrs, u)
		}
		return appendAttr(attrs, u, existing)
	}

	return ErrBadUpdate.Msg("unknown tag operation: " + string(u.Operation))
}

func setAttr(attrs map[string]Value, u *TagUpdate) error {
	v, err := updateValue(u)
	if err != nil {
		return err
	}
	attrs[u.AttrName] = v
	return nil
}

// replaceAttr overwrites an existing attribute. The replacement must keep
// the attribute's shape: scalar stays scalar, array stays array, and the
// element type never changes.
func replaceAttr(attrs map[string]Value, u *TagUpdate, existing Value) error {
	v, err := updateValue(u)
	if err != nil {
		return err
	}
	if v.IsArray() != existing.IsArray() || v.Type().ElemType() != existing.Type().ElemType() {
		return ErrBadUpdate.Msg("REPLACE_ATTR: type mismatch for attribute " + u.AttrName)
	}
	attrs[u.AttrName] = v
	return nil
}

// appendAttr appends the update's element(s) to an existing attribute,
// promoting a scalar to a single-element array first.
func appendAttr(attrs map[string]Value, u *TagUpdate, existing Value) error {
	v, err := updateValue(u)
	if err != nil {
		return err
	}
	if v.Type().ElemType() != existing.Type().ElemType() {
		return ErrBadUpdate.Msg("APPEND_ATTR: element type mismatch for attribute " + u.AttrName)
	}
	base, err := existing.Single()
	if err != nil {
		return ErrBadUpdate.Msg("APPEND_ATTR: attribute cannot become an array: " + u.AttrName).Err(err)
	}
	add, err := v.Single()
	if err != nil {
		return ErrBadUpdate.Msg("APPEND_ATTR: value cannot be appended: " + u.AttrName).Err(err)
	}
	merged, err := ArrayValue(base.Type().ElemType(), append(base.Items(), add.Items()...))
	if err != nil {
		return ErrBadUpdate.Err(err)
	}
	attrs[u.AttrName] = merged
	return nil
}

func updateValue(u *TagUpdate) (Value, error) {
	if u.Value == nil || !u.Value.IsValid() {
		return Value{}, ErrBadUpdate.Msg("tag update is missing a value for attribute " + u.AttrName)
	}
	if err := u.Value.Type().Validate(); err != nil {
		return Value{}, ErrBadUpdate.Err(err)
	}
	// Empty arrays are not storable; an attribute with no elements is
	// expressed by deleting it.
	if u.Value.IsArray() && len(u.Value.Items()) == 0 {
		return Value{}, ErrBadUpdate.Msg("empty array value for attribute " + u.AttrName)
	}
	return *u.Value, nil
}
