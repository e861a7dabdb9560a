package db

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-data/meridian/internal/metasrv/db/dberror"
	"github.com/meridian-data/meridian/pkg/metadata"
	"github.com/meridian-data/meridian/pkg/types"
)

func newConfigEntry(key string, objectID uuid.UUID) *metadata.ConfigEntry {
	return &metadata.ConfigEntry{
		ConfigClass: types.ConfigClassResources,
		ConfigKey:   key,
		Details: metadata.ConfigEntryDetails{
			Selector:   metadata.LatestSelector(types.ObjectTypeResource, objectID),
			ObjectType: types.ObjectTypeResource,
			SubType:    "bucket",
		},
	}
}

func TestConfigEntryLifecycle(t *testing.T) {
	ctx, cleanup := newTenantDb(t, "TCFGLIFE")
	defer cleanup()

	obj := newTagFor(types.ObjectTypeResource, map[string]metadata.Value{"kind": metadata.StringValue("s3")})
	require.NoError(t, DB(ctx).SaveNewObject(ctx, obj))

	entry := newConfigEntry("PRIMARY_STORAGE", obj.Header.ObjectID)
	require.NoError(t, DB(ctx).CreateConfigEntry(ctx, entry))
	assert.Equal(t, 1, entry.ConfigVersion)
	assert.True(t, entry.IsLatest)

	// Create on a live key fails
	again := newConfigEntry("PRIMARY_STORAGE", obj.Header.ObjectID)
	assert.ErrorIs(t, DB(ctx).CreateConfigEntry(ctx, again), dberror.ErrAlreadyExists)

	got, err := DB(ctx).GetConfigEntry(ctx, types.ConfigClassResources, "PRIMARY_STORAGE")
	require.NoError(t, err)
	assert.Equal(t, 1, got.ConfigVersion)
	assert.Equal(t, obj.Header.ObjectID, got.Details.Selector.ObjectID)
	assert.Equal(t, "bucket", got.Details.SubType)

	// Update bumps the version
	update := newConfigEntry("PRIMARY_STORAGE", obj.Header.ObjectID)
	update.Details.SubType = "archive"
	require.NoError(t, DB(ctx).UpdateConfigEntry(ctx, update))
	assert.Equal(t, 2, update.ConfigVersion)

	got, err = DB(ctx).GetConfigEntry(ctx, types.ConfigClassResources, "PRIMARY_STORAGE")
	require.NoError(t, err)
	assert.Equal(t, 2, got.ConfigVersion)
	assert.Equal(t, "archive", got.Details.SubType)

	// Delete tombstones; reads stop resolving
	tomb, err := DB(ctx).DeleteConfigEntry(ctx, types.ConfigClassResources, "PRIMARY_STORAGE")
	require.NoError(t, err)
	assert.True(t, tomb.Deleted)
	assert.Equal(t, 3, tomb.ConfigVersion)

	_, err = DB(ctx).GetConfigEntry(ctx, types.ConfigClassResources, "PRIMARY_STORAGE")
	assert.ErrorIs(t, err, dberror.ErrNotFound)

	// Update and delete against the tombstone are NotFound
	assert.ErrorIs(t, DB(ctx).UpdateConfigEntry(ctx, newConfigEntry("PRIMARY_STORAGE", obj.Header.ObjectID)), dberror.ErrNotFound)
	_, err = DB(ctx).DeleteConfigEntry(ctx, types.ConfigClassResources, "PRIMARY_STORAGE")
	assert.ErrorIs(t, err, dberror.ErrNotFound)

	// Re-create revives the key, continuing the version sequence
	revived := newConfigEntry("PRIMARY_STORAGE", obj.Header.ObjectID)
	require.NoError(t, DB(ctx).CreateConfigEntry(ctx, revived))
	assert.Equal(t, 4, revived.ConfigVersion)
	assert.False(t, revived.Deleted)
}

func TestListConfigEntries(t *testing.T) {
	ctx, cleanup := newTenantDb(t, "TCFGLIST")
	defer cleanup()

	obj := newTagFor(types.ObjectTypeResource, nil)
	require.NoError(t, DB(ctx).SaveNewObject(ctx, obj))

	for _, key := range []string{"ALPHA", "BETA", "GAMMA"} {
		require.NoError(t, DB(ctx).CreateConfigEntry(ctx, newConfigEntry(key, obj.Header.ObjectID)))
	}
	_, err := DB(ctx).DeleteConfigEntry(ctx, types.ConfigClassResources, "BETA")
	require.NoError(t, err)

	entries, err := DB(ctx).ListConfigEntries(ctx, types.ConfigClassResources, false)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "ALPHA", entries[0].ConfigKey)
	assert.Equal(t, "GAMMA", entries[1].ConfigKey)

	entries, err = DB(ctx).ListConfigEntries(ctx, types.ConfigClassResources, true)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Other classes are isolated
	entries, err = DB(ctx).ListConfigEntries(ctx, types.ConfigClassConfig, true)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
