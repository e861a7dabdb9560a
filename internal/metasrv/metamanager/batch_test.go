package metamanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-data/meridian/internal/metasrv/db/dberror"
	"github.com/meridian-data/meridian/pkg/metadata"
	"github.com/meridian-data/meridian/pkg/types"
)

func TestWriteBatchBundlesEverything(t *testing.T) {
	ctx, cleanup := newServiceCtx(t, "TSVCBATCH", true)
	defer cleanup()

	existing, err := CreateObject(ctx, &CreateObjectRequest{
		ObjectType: types.ObjectTypeData,
		Definition: jsonDef(`{}`),
		TagUpdates: []metadata.TagUpdate{setStr("state", "raw")},
	})
	require.NoError(t, err)

	rsp, err := WriteBatch(ctx, &WriteBatchRequest{
		PreallocateIds: []*PreallocateIdsRequest{
			{ObjectType: types.ObjectTypeJob, Count: 2},
		},
		CreateObjects: []*CreateObjectRequest{
			{
				ObjectType: types.ObjectTypeModel,
				Definition: jsonDef(`{"algo":"gbm"}`),
				TagUpdates: []metadata.TagUpdate{setStr("model.name", "churn")},
			},
		},
		UpdateObjects: []*UpdateObjectRequest{
			{
				PriorVersion: metadata.LatestSelector(types.ObjectTypeData, existing.Header.ObjectID),
				Definition:   jsonDef(`{"rows":1}`),
				TagUpdates:   []metadata.TagUpdate{setStr("state", "clean")},
			},
		},
		CreateConfigs: []*CreateConfigRequest{
			{
				ConfigClass: types.ConfigClassResources,
				ConfigKey:   "BATCH_STORE",
				ObjectType:  types.ObjectTypeResource,
				SubType:     "bucket",
				Definition:  jsonDef(`{}`),
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, rsp.PreallocatedIds, 1)
	require.Len(t, rsp.PreallocatedIds[0], 2)
	require.Len(t, rsp.CreatedObjects, 1)
	require.Len(t, rsp.UpdatedObjects, 1)
	require.Len(t, rsp.CreatedConfigs, 1)
	assert.Equal(t, 2, rsp.UpdatedObjects[0].Header.ObjectVersion)

	// Everything from the bundle resolves afterwards
	got, err := ReadObject(ctx, metadata.LatestSelector(types.ObjectTypeData, existing.Header.ObjectID))
	require.NoError(t, err)
	assert.Equal(t, "clean", got.Attrs["state"].Str())

	cfg, err := ReadConfigObject(ctx, ConfigRef{ConfigClass: types.ConfigClassResources, ConfigKey: "BATCH_STORE"})
	require.NoError(t, err)
	assert.Equal(t, rsp.CreatedConfigs[0].Tag.Header.ObjectID, cfg.Tag.Header.ObjectID)

	// A follow-up bundle claims a reserved id and tombstones the key
	rsp2, err := WriteBatch(ctx, &WriteBatchRequest{
		CreatePreallocated: []*CreatePreallocatedRequest{
			{
				ObjectID:   rsp.PreallocatedIds[0][0],
				ObjectType: types.ObjectTypeJob,
				Definition: jsonDef(`{"job":"train"}`),
			},
		},
		DeleteConfigs: []ConfigRef{
			{ConfigClass: types.ConfigClassResources, ConfigKey: "BATCH_STORE"},
		},
	})
	require.NoError(t, err)
	require.Len(t, rsp2.CreatedPreallocated, 1)

	_, err = ReadConfigObject(ctx, ConfigRef{ConfigClass: types.ConfigClassResources, ConfigKey: "BATCH_STORE"})
	assert.ErrorIs(t, err, dberror.ErrNotFound)
}

func TestWriteBatchIsAtomic(t *testing.T) {
	ctx, cleanup := newServiceCtx(t, "TSVCBATCHATOM", true)
	defer cleanup()

	good := &CreateObjectRequest{
		ObjectType: types.ObjectTypeData,
		Definition: jsonDef(`{}`),
		TagUpdates: []metadata.TagUpdate{setStr("name", "keeper")},
	}
	// Duplicate config keys in one bundle collide inside the transaction
	cfg := &CreateConfigRequest{
		ConfigClass: types.ConfigClassResources,
		ConfigKey:   "DUP_KEY",
		ObjectType:  types.ObjectTypeResource,
		Definition:  jsonDef(`{}`),
	}
	rsp, err := WriteBatch(ctx, &WriteBatchRequest{
		CreateObjects: []*CreateObjectRequest{good},
		CreateConfigs: []*CreateConfigRequest{cfg, cfg},
	})
	require.Error(t, err)
	assert.Nil(t, rsp)

	// The good object did not land
	results, err := Search(ctx, metadata.SearchParameters{
		ObjectType: types.ObjectTypeData,
		Search:     metadata.TermExpr("name", metadata.BasicTypeString, metadata.SearchOpEQ, metadata.StringValue("keeper")),
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestWriteBatchRejectsEmptyAndUntrustedConfig(t *testing.T) {
	ctx, cleanup := newServiceCtx(t, "TSVCBATCHPOL", false)
	defer cleanup()

	_, err := WriteBatch(ctx, &WriteBatchRequest{})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = WriteBatch(ctx, &WriteBatchRequest{
		DeleteConfigs: []ConfigRef{{ConfigClass: types.ConfigClassResources, ConfigKey: "X"}},
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}
