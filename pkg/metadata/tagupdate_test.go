package metadata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upd(op TagOperation, name string, v Value) TagUpdate {
	return TagUpdate{Operation: op, AttrName: name, Value: &v}
}

func TestApplyTagUpdatesBasics(t *testing.T) {
	attrs, err := ApplyTagUpdates(nil, []TagUpdate{
		upd(TagOpCreateAttr, "state", StringValue("raw")),
		upd(TagOpUnset, "rows", IntValue(10)),
	})
	require.NoError(t, err)
	assert.Equal(t, "raw", attrs["state"].Str())
	assert.Equal(t, int64(10), attrs["rows"].Int())

	// Updates apply left to right over the prior map
	next, err := ApplyTagUpdates(attrs, []TagUpdate{
		upd(TagOpReplaceAttr, "state", StringValue("clean")),
		{Operation: TagOpDeleteAttr, AttrName: "rows"},
	})
	require.NoError(t, err)
	assert.Equal(t, "clean", next["state"].Str())
	_, present := next["rows"]
	assert.False(t, present)

	// The input map is never modified
	assert.Equal(t, "raw", attrs["state"].Str())
	assert.Equal(t, int64(10), attrs["rows"].Int())
}

func TestApplyTagUpdatesPreconditions(t *testing.T) {
	attrs := map[string]Value{"state": StringValue("raw")}

	_, err := ApplyTagUpdates(attrs, []TagUpdate{
		upd(TagOpCreateAttr, "state", StringValue("dup")),
	})
	assert.ErrorIs(t, err, ErrBadUpdate, "CREATE_ATTR on existing attribute")

	_, err = ApplyTagUpdates(attrs, []TagUpdate{
		upd(TagOpReplaceAttr, "missing", StringValue("x")),
	})
	assert.ErrorIs(t, err, ErrBadUpdate, "REPLACE_ATTR on missing attribute")

	_, err = ApplyTagUpdates(attrs, []TagUpdate{
		{Operation: TagOpDeleteAttr, AttrName: "missing"},
	})
	assert.ErrorIs(t, err, ErrBadUpdate, "DELETE_ATTR on missing attribute")

	_, err = ApplyTagUpdates(attrs, []TagUpdate{
		upd(TagOpReplaceAttr, "state", IntValue(1)),
	})
	assert.ErrorIs(t, err, ErrBadUpdate, "REPLACE_ATTR cannot change the type")

	_, err = ApplyTagUpdates(attrs, []TagUpdate{
		{Operation: TagOpCreateOrReplace, AttrName: "x"},
	})
	assert.ErrorIs(t, err, ErrBadUpdate, "missing value")

	_, err = ApplyTagUpdates(attrs, []TagUpdate{
		upd(TagOpCreateOrReplace, "", StringValue("x")),
	})
	assert.ErrorIs(t, err, ErrBadUpdate, "missing attribute name")

	// An empty array is not a storable value; removal is DELETE_ATTR
	empty, aerr := ArrayValue(BasicTypeString, nil)
	require.NoError(t, aerr)
	_, err = ApplyTagUpdates(attrs, []TagUpdate{
		upd(TagOpCreateAttr, "tags", empty),
	})
	assert.ErrorIs(t, err, ErrBadUpdate, "empty array value")
}

func TestApplyTagUpdatesAllOrNothing(t *testing.T) {
	attrs := map[string]Value{"keep": StringValue("v")}
	_, err := ApplyTagUpdates(attrs, []TagUpdate{
		upd(TagOpCreateAttr, "added", StringValue("x")),
		upd(TagOpReplaceAttr, "missing", StringValue("boom")),
	})
	require.ErrorIs(t, err, ErrBadUpdate)
	// The failed list left no partial effect behind.
	assert.Len(t, attrs, 1)
}

func TestAppendPromotesScalars(t *testing.T) {
	attrs := map[string]Value{"colors": StringValue("red")}

	next, err := ApplyTagUpdates(attrs, []TagUpdate{
		upd(TagOpAppendAttr, "colors", StringValue("green")),
	})
	require.NoError(t, err)
	colors := next["colors"]
	require.True(t, colors.IsArray())
	require.Len(t, colors.Items(), 2)
	assert.Equal(t, "red", colors.Items()[0].Str())
	assert.Equal(t, "green", colors.Items()[1].Str())

	// Appending an array concatenates
	more, err := ArrayValue(BasicTypeString, []Value{StringValue("blue"), StringValue("cyan")})
	require.NoError(t, err)
	next, err = ApplyTagUpdates(next, []TagUpdate{
		upd(TagOpAppendAttr, "colors", more),
	})
	require.NoError(t, err)
	assert.Len(t, next["colors"].Items(), 4)

	// Element type mismatch
	_, err = ApplyTagUpdates(next, []TagUpdate{
		upd(TagOpAppendAttr, "colors", IntValue(1)),
	})
	assert.ErrorIs(t, err, ErrBadUpdate)

	// CREATE_OR_APPEND creates when absent, appends when present
	next, err = ApplyTagUpdates(next, []TagUpdate{
		upd(TagOpCreateOrAppend, "sizes", IntValue(1)),
		upd(TagOpCreateOrAppend, "sizes", IntValue(2)),
	})
	require.NoError(t, err)
	sizes := next["sizes"]
	require.True(t, sizes.IsArray())
	assert.Len(t, sizes.Items(), 2)
}

func TestClearAllAttrKeepsReservedNames(t *testing.T) {
	attrs := map[string]Value{
		"state":          StringValue("raw"),
		"rows":           IntValue(10),
		AttrCreateUserID: StringValue("u-1"),
		AttrUpdateTime:   DatetimeValue(time.Now()),
	}
	next, err := ApplyTagUpdates(attrs, []TagUpdate{
		{Operation: TagOpClearAllAttr},
		upd(TagOpCreateAttr, "state", StringValue("reset")),
	})
	require.NoError(t, err)
	assert.Equal(t, "reset", next["state"].Str())
	_, present := next["rows"]
	assert.False(t, present)
	assert.Equal(t, "u-1", next[AttrCreateUserID].Str(), "reserved attrs survive CLEAR_ALL_ATTR")
	_, present = next[AttrUpdateTime]
	assert.True(t, present)
}
