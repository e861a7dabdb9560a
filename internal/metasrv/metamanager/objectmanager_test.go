package metamanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-data/meridian/internal/metasrv/db/dberror"
	"github.com/meridian-data/meridian/pkg/metadata"
	"github.com/meridian-data/meridian/pkg/types"
)

func TestCreateObjectStampsAudit(t *testing.T) {
	ctx, cleanup := newServiceCtx(t, "TSVCAUDIT", true)
	defer cleanup()

	tag, err := CreateObject(ctx, &CreateObjectRequest{
		ObjectType: types.ObjectTypeData,
		Definition: jsonDef(`{"kind":"dataset"}`),
		TagUpdates: []metadata.TagUpdate{setStr("dataset.class", "telemetry")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, tag.Header.ObjectVersion)
	assert.Equal(t, 1, tag.Header.TagVersion)

	assert.Equal(t, "u-100", tag.Attrs[metadata.AttrCreateUserID].Str())
	assert.Equal(t, "jordan", tag.Attrs[metadata.AttrCreateUserName].Str())
	assert.False(t, tag.Attrs[metadata.AttrCreateTime].Time().IsZero())
	assert.Equal(t, tag.Attrs[metadata.AttrCreateTime], tag.Attrs[metadata.AttrUpdateTime])

	// Round-trip includes the stamps
	loaded, err := ReadObject(ctx, metadata.LatestSelector(types.ObjectTypeData, tag.Header.ObjectID))
	require.NoError(t, err)
	assert.Equal(t, "u-100", loaded.Attrs[metadata.AttrCreateUserID].Str())
	assert.Equal(t, "telemetry", loaded.Attrs["dataset.class"].Str())
}

func TestWritePolicyForPublicCallers(t *testing.T) {
	ctx, cleanup := newServiceCtx(t, "TSVCPOLICY", false)
	defer cleanup()

	// Restricted object type
	_, err := CreateObject(ctx, &CreateObjectRequest{
		ObjectType: types.ObjectTypeData,
		Definition: jsonDef(`{}`),
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// Reserved attribute name
	_, err = CreateObject(ctx, &CreateObjectRequest{
		ObjectType: types.ObjectTypeSchema,
		Definition: jsonDef(`{}`),
		TagUpdates: []metadata.TagUpdate{setStr(metadata.AttrCreateUserID, "spoofed")},
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// Bad attribute grammar
	_, err = CreateObject(ctx, &CreateObjectRequest{
		ObjectType: types.ObjectTypeSchema,
		Definition: jsonDef(`{}`),
		TagUpdates: []metadata.TagUpdate{setStr("9bad name", "x")},
	})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	// Preallocation is a trusted operation even for public types
	_, err = PreallocateIds(ctx, &PreallocateIdsRequest{
		ObjectType: types.ObjectTypeSchema,
		Count:      1,
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// Public-writable type goes through, audit stamped server-side
	tag, err := CreateObject(ctx, &CreateObjectRequest{
		ObjectType: types.ObjectTypeSchema,
		Definition: jsonDef(`{"fields":[]}`),
		TagUpdates: []metadata.TagUpdate{setStr("schema.name", "orders")},
	})
	require.NoError(t, err)
	assert.Equal(t, "u-100", tag.Attrs[metadata.AttrCreateUserID].Str())
}

func TestUpdateObjectInheritsAndRefreshes(t *testing.T) {
	ctx, cleanup := newServiceCtx(t, "TSVCUPDOBJ", true)
	defer cleanup()

	v1, err := CreateObject(ctx, &CreateObjectRequest{
		ObjectType: types.ObjectTypeData,
		Definition: jsonDef(`{"rows":10}`),
		TagUpdates: []metadata.TagUpdate{setStr("state", "raw"), setInt("rows", 10)},
	})
	require.NoError(t, err)

	v2, err := UpdateObject(ctx, &UpdateObjectRequest{
		PriorVersion: metadata.LatestSelector(types.ObjectTypeData, v1.Header.ObjectID),
		Definition:   jsonDef(`{"rows":25}`),
		TagUpdates:   []metadata.TagUpdate{setStr("state", "clean"), setInt("rows", 25)},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Header.ObjectVersion)
	assert.Equal(t, 1, v2.Header.TagVersion)
	assert.Equal(t, "clean", v2.Attrs["state"].Str())

	// Create stamps carry over, update stamps move forward
	assert.Equal(t, v1.Attrs[metadata.AttrCreateTime], v2.Attrs[metadata.AttrCreateTime])
	assert.True(t, v2.Attrs[metadata.AttrUpdateTime].Time().After(v1.Attrs[metadata.AttrUpdateTime].Time()) ||
		v2.Attrs[metadata.AttrUpdateTime].Time().Equal(v1.Attrs[metadata.AttrUpdateTime].Time()))

	// Stale prior: selecting v1 explicitly yields version 2, which already
	// exists
	one := 1
	_, err = UpdateObject(ctx, &UpdateObjectRequest{
		PriorVersion: metadata.TagSelector{
			ObjectType:    types.ObjectTypeData,
			ObjectID:      v1.Header.ObjectID,
			ObjectVersion: &one,
		},
		Definition: jsonDef(`{}`),
	})
	assert.ErrorIs(t, err, dberror.ErrAlreadyExists)
}

func TestUpdateTagKeepsVersion(t *testing.T) {
	ctx, cleanup := newServiceCtx(t, "TSVCUPDTAG", true)
	defer cleanup()

	v1, err := CreateObject(ctx, &CreateObjectRequest{
		ObjectType: types.ObjectTypeData,
		Definition: jsonDef(`{}`),
		TagUpdates: []metadata.TagUpdate{setStr("state", "raw")},
	})
	require.NoError(t, err)

	t2, err := UpdateTag(ctx, &UpdateTagRequest{
		PriorTag:   metadata.LatestSelector(types.ObjectTypeData, v1.Header.ObjectID),
		TagUpdates: []metadata.TagUpdate{setStr("state", "validated")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, t2.Header.ObjectVersion)
	assert.Equal(t, 2, t2.Header.TagVersion)
	assert.Equal(t, "validated", t2.Attrs["state"].Str())

	// Definition is untouched by a tag update
	loaded, err := ReadObject(ctx, metadata.LatestSelector(types.ObjectTypeData, v1.Header.ObjectID))
	require.NoError(t, err)
	assert.Equal(t, v1.Definition.Body, loaded.Definition.Body)
	assert.Equal(t, 2, loaded.Header.TagVersion)
}

func TestPreallocateAndClaim(t *testing.T) {
	ctx, cleanup := newServiceCtx(t, "TSVCPREALLOC", true)
	defer cleanup()

	ids, err := PreallocateIds(ctx, &PreallocateIdsRequest{
		ObjectType: types.ObjectTypeJob,
		Count:      3,
	})
	require.NoError(t, err)
	require.Len(t, ids, 3)

	// Reserved but unwritten ids do not resolve
	_, err = ReadObject(ctx, metadata.LatestSelector(types.ObjectTypeJob, ids[0]))
	assert.ErrorIs(t, err, dberror.ErrNotFound)

	tag, err := CreatePreallocated(ctx, &CreatePreallocatedRequest{
		ObjectID:   ids[0],
		ObjectType: types.ObjectTypeJob,
		Definition: jsonDef(`{"job":"import"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, ids[0], tag.Header.ObjectID)

	// Type must match the reservation
	_, err = CreatePreallocated(ctx, &CreatePreallocatedRequest{
		ObjectID:   ids[1],
		ObjectType: types.ObjectTypeData,
		Definition: jsonDef(`{}`),
	})
	assert.ErrorIs(t, err, dberror.ErrWrongType)
}

func TestReadBatchPositional(t *testing.T) {
	ctx, cleanup := newServiceCtx(t, "TSVCRDBATCH", true)
	defer cleanup()

	a, err := CreateObject(ctx, &CreateObjectRequest{
		ObjectType: types.ObjectTypeData,
		Definition: jsonDef(`{}`),
		TagUpdates: []metadata.TagUpdate{setStr("name", "a")},
	})
	require.NoError(t, err)
	b, err := CreateObject(ctx, &CreateObjectRequest{
		ObjectType: types.ObjectTypeData,
		Definition: jsonDef(`{}`),
		TagUpdates: []metadata.TagUpdate{setStr("name", "b")},
	})
	require.NoError(t, err)

	tags, err := ReadBatch(ctx, []metadata.TagSelector{
		metadata.LatestSelector(types.ObjectTypeData, b.Header.ObjectID),
		metadata.LatestSelector(types.ObjectTypeData, a.Header.ObjectID),
	})
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "b", tags[0].Attrs["name"].Str())
	assert.Equal(t, "a", tags[1].Attrs["name"].Str())

	_, err = ReadBatch(ctx, nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestSearchThroughService(t *testing.T) {
	ctx, cleanup := newServiceCtx(t, "TSVCSEARCH", true)
	defer cleanup()

	_, err := CreateObject(ctx, &CreateObjectRequest{
		ObjectType: types.ObjectTypeData,
		Definition: jsonDef(`{}`),
		TagUpdates: []metadata.TagUpdate{setStr("state", "clean")},
	})
	require.NoError(t, err)

	results, err := Search(ctx, metadata.SearchParameters{
		ObjectType: types.ObjectTypeData,
		Search:     metadata.TermExpr("state", metadata.BasicTypeString, metadata.SearchOpEQ, metadata.StringValue("clean")),
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Nil(t, results[0].Definition)

	// Invalid expressions are rejected before touching the store
	_, err = Search(ctx, metadata.SearchParameters{
		ObjectType: types.ObjectTypeData,
		Search:     metadata.TermExpr("state", metadata.BasicTypeString, metadata.SearchOpGT, metadata.StringValue("x")),
	})
	assert.ErrorIs(t, err, metadata.ErrInvalidSearch)
}
