package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-data/meridian/internal/metasrv/db/dberror"
	"github.com/meridian-data/meridian/internal/metasrv/db/models"
	"github.com/meridian-data/meridian/pkg/metadata"
	"github.com/meridian-data/meridian/pkg/types"
)

func TestSaveBatchUpdate(t *testing.T) {
	ctx, cleanup := newTenantDb(t, "TBATCH1")
	defer cleanup()

	obj := newTagFor(types.ObjectTypeData, map[string]metadata.Value{"state": metadata.StringValue("raw")})
	cfgObj := newTagFor(types.ObjectTypeResource, nil)
	prealloc := &models.PreallocateRequest{ObjectType: types.ObjectTypeFlow, Count: 2}

	batch := &models.BatchUpdate{
		Preallocate: []*models.PreallocateRequest{prealloc},
		NewObjects:  []*metadata.Tag{obj, cfgObj},
		ConfigEntries: []*models.ConfigEntryWrite{
			{Entry: newConfigEntry("BATCH_KEY", cfgObj.Header.ObjectID)},
		},
	}
	require.NoError(t, DB(ctx).SaveBatchUpdate(ctx, batch))
	require.Len(t, prealloc.ObjectIDs, 2)

	// Everything landed
	_, err := DB(ctx).LoadTag(ctx, metadata.LatestSelector(types.ObjectTypeData, obj.Header.ObjectID))
	require.NoError(t, err)
	entry, err := DB(ctx).GetConfigEntry(ctx, types.ConfigClassResources, "BATCH_KEY")
	require.NoError(t, err)
	assert.Equal(t, cfgObj.Header.ObjectID, entry.Details.Selector.ObjectID)

	// A follow-up bundle writes against the reserved ids and tombstones the key
	first := newTagFor(types.ObjectTypeFlow, map[string]metadata.Value{"name": metadata.StringValue("ingest")})
	first.Header.ObjectID = prealloc.ObjectIDs[0]
	followUp := &models.BatchUpdate{
		Preallocated: []*metadata.Tag{first},
		Tombstones:   []models.ConfigEntryRef{{ConfigClass: types.ConfigClassResources, ConfigKey: "BATCH_KEY"}},
	}
	require.NoError(t, DB(ctx).SaveBatchUpdate(ctx, followUp))

	_, err = DB(ctx).LoadTag(ctx, metadata.LatestSelector(types.ObjectTypeFlow, prealloc.ObjectIDs[0]))
	require.NoError(t, err)
	_, err = DB(ctx).GetConfigEntry(ctx, types.ConfigClassResources, "BATCH_KEY")
	assert.ErrorIs(t, err, dberror.ErrNotFound)
}

func TestSaveBatchUpdateIsAtomic(t *testing.T) {
	ctx, cleanup := newTenantDb(t, "TBATCH2")
	defer cleanup()

	good := newTagFor(types.ObjectTypeData, map[string]metadata.Value{"n": metadata.IntValue(1)})
	// The second item targets a version that cannot exist yet, failing the
	// whole bundle.
	bad := newTagFor(types.ObjectTypeData, nil)
	bad.Header.ObjectVersion = 5

	batch := &models.BatchUpdate{
		NewObjects:  []*metadata.Tag{good},
		NewVersions: []*metadata.Tag{bad},
	}
	err := DB(ctx).SaveBatchUpdate(ctx, batch)
	require.Error(t, err)

	// Nothing from the bundle is visible.
	_, err = DB(ctx).LoadTag(ctx, metadata.LatestSelector(types.ObjectTypeData, good.Header.ObjectID))
	assert.ErrorIs(t, err, dberror.ErrNotFound)

	// An empty bundle is rejected.
	assert.ErrorIs(t, DB(ctx).SaveBatchUpdate(ctx, &models.BatchUpdate{}), dberror.ErrInvalidInput)
}
