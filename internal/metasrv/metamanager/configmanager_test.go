package metamanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-data/meridian/internal/metasrv/db/dberror"
	"github.com/meridian-data/meridian/pkg/metadata"
	"github.com/meridian-data/meridian/pkg/types"
)

func TestConfigObjectLifecycle(t *testing.T) {
	ctx, cleanup := newServiceCtx(t, "TSVCCFG", true)
	defer cleanup()

	created, err := CreateConfigObject(ctx, &CreateConfigRequest{
		ConfigClass: types.ConfigClassResources,
		ConfigKey:   "PRIMARY_STORAGE",
		ObjectType:  types.ObjectTypeResource,
		SubType:     "bucket",
		Definition:  jsonDef(`{"protocol":"S3"}`),
		TagUpdates:  []metadata.TagUpdate{setStr("region", "eu-west-1")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, created.Entry.ConfigVersion)
	assert.Equal(t, 1, created.Tag.Header.ObjectVersion)

	// Key resolves to the object it was written with
	got, err := ReadConfigObject(ctx, ConfigRef{ConfigClass: types.ConfigClassResources, ConfigKey: "PRIMARY_STORAGE"})
	require.NoError(t, err)
	assert.Equal(t, created.Tag.Header.ObjectID, got.Tag.Header.ObjectID)
	assert.Equal(t, "eu-west-1", got.Tag.Attrs["region"].Str())
	assert.Equal(t, "bucket", got.Entry.Details.SubType)

	// Update writes the next object version and bumps the entry
	updated, err := UpdateConfigObject(ctx, &UpdateConfigRequest{
		ConfigClass: types.ConfigClassResources,
		ConfigKey:   "PRIMARY_STORAGE",
		Definition:  jsonDef(`{"protocol":"S3","versioning":true}`),
		TagUpdates:  []metadata.TagUpdate{setStr("region", "eu-central-1")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Entry.ConfigVersion)
	assert.Equal(t, 2, updated.Tag.Header.ObjectVersion)
	assert.Equal(t, created.Tag.Header.ObjectID, updated.Tag.Header.ObjectID)

	got, err = ReadConfigObject(ctx, ConfigRef{ConfigClass: types.ConfigClassResources, ConfigKey: "PRIMARY_STORAGE"})
	require.NoError(t, err)
	assert.Equal(t, "eu-central-1", got.Tag.Attrs["region"].Str())
	assert.Equal(t, 2, got.Tag.Header.ObjectVersion)

	// Delete tombstones the key; the object stays reachable by selector
	tomb, err := DeleteConfigObject(ctx, ConfigRef{ConfigClass: types.ConfigClassResources, ConfigKey: "PRIMARY_STORAGE"})
	require.NoError(t, err)
	assert.True(t, tomb.Deleted)

	_, err = ReadConfigObject(ctx, ConfigRef{ConfigClass: types.ConfigClassResources, ConfigKey: "PRIMARY_STORAGE"})
	assert.ErrorIs(t, err, dberror.ErrNotFound)

	obj, err := ReadObject(ctx, metadata.LatestSelector(types.ObjectTypeResource, created.Tag.Header.ObjectID))
	require.NoError(t, err)
	assert.Equal(t, 2, obj.Header.ObjectVersion)
}

func TestConfigWritesRequireTrust(t *testing.T) {
	ctx, cleanup := newServiceCtx(t, "TSVCCFGTRUST", false)
	defer cleanup()

	_, err := CreateConfigObject(ctx, &CreateConfigRequest{
		ConfigClass: types.ConfigClassResources,
		ConfigKey:   "SNEAKY",
		ObjectType:  types.ObjectTypeResource,
		Definition:  jsonDef(`{}`),
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = DeleteConfigObject(ctx, ConfigRef{ConfigClass: types.ConfigClassResources, ConfigKey: "SNEAKY"})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestListConfigEntriesFiltering(t *testing.T) {
	ctx, cleanup := newServiceCtx(t, "TSVCCFGLIST", true)
	defer cleanup()

	seed := []struct {
		key     string
		objType types.ObjectType
		subType string
	}{
		{"BUCKET_A", types.ObjectTypeResource, "bucket"},
		{"BUCKET_B", types.ObjectTypeResource, "bucket"},
		{"QUEUE_A", types.ObjectTypeResource, "queue"},
	}
	for _, s := range seed {
		_, err := CreateConfigObject(ctx, &CreateConfigRequest{
			ConfigClass: types.ConfigClassResources,
			ConfigKey:   s.key,
			ObjectType:  s.objType,
			SubType:     s.subType,
			Definition:  jsonDef(`{}`),
		})
		require.NoError(t, err)
	}

	entries, err := ListConfigEntries(ctx, types.ConfigClassResources, types.ObjectTypeInvalid, "", false)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	entries, err = ListConfigEntries(ctx, types.ConfigClassResources, types.ObjectTypeResource, "bucket", false)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "BUCKET_A", entries[0].ConfigKey)
	assert.Equal(t, "BUCKET_B", entries[1].ConfigKey)

	// Tombstoned entries stay out of the default listing
	_, err = DeleteConfigObject(ctx, ConfigRef{ConfigClass: types.ConfigClassResources, ConfigKey: "QUEUE_A"})
	require.NoError(t, err)
	entries, err = ListConfigEntries(ctx, types.ConfigClassResources, types.ObjectTypeInvalid, "", false)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	entries, err = ListConfigEntries(ctx, types.ConfigClassResources, types.ObjectTypeInvalid, "", true)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	_, err = ListConfigEntries(ctx, "bad class!", types.ObjectTypeInvalid, "", false)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestResourceKeyGrammar(t *testing.T) {
	ctx, cleanup := newServiceCtx(t, "TSVCCFGKEY", true)
	defer cleanup()

	// Resource keys follow the stricter uppercase grammar
	_, err := CreateConfigObject(ctx, &CreateConfigRequest{
		ConfigClass: types.ConfigClassResources,
		ConfigKey:   "main-store",
		ObjectType:  types.ObjectTypeResource,
		Definition:  jsonDef(`{}`),
	})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	// The same key is fine in an ordinary config class
	_, err = CreateConfigObject(ctx, &CreateConfigRequest{
		ConfigClass: types.ConfigClassConfig,
		ConfigKey:   "main-store",
		ObjectType:  types.ObjectTypeConfig,
		Definition:  jsonDef(`{}`),
	})
	require.NoError(t, err)
}

func TestReadConfigBatchPositional(t *testing.T) {
	ctx, cleanup := newServiceCtx(t, "TSVCCFGBATCH", true)
	defer cleanup()

	for _, key := range []string{"STORE_A", "STORE_B"} {
		_, err := CreateConfigObject(ctx, &CreateConfigRequest{
			ConfigClass: types.ConfigClassResources,
			ConfigKey:   key,
			ObjectType:  types.ObjectTypeResource,
			Definition:  jsonDef(`{}`),
			TagUpdates:  []metadata.TagUpdate{setStr("name", key)},
		})
		require.NoError(t, err)
	}

	// Results come back in request order
	objs, err := ReadConfigBatch(ctx, []ConfigRef{
		{ConfigClass: types.ConfigClassResources, ConfigKey: "STORE_B"},
		{ConfigClass: types.ConfigClassResources, ConfigKey: "STORE_A"},
	})
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, "STORE_B", objs[0].Entry.ConfigKey)
	assert.Equal(t, "STORE_B", objs[0].Tag.Attrs["name"].Str())
	assert.Equal(t, "STORE_A", objs[1].Entry.ConfigKey)

	// One missing key fails the whole read
	_, err = ReadConfigBatch(ctx, []ConfigRef{
		{ConfigClass: types.ConfigClassResources, ConfigKey: "STORE_A"},
		{ConfigClass: types.ConfigClassResources, ConfigKey: "MISSING"},
	})
	assert.ErrorIs(t, err, dberror.ErrNotFound)

	_, err = ReadConfigBatch(ctx, nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestPlatformInfoAndClientConfig(t *testing.T) {
	info := GetPlatformInfo()
	assert.NotEmpty(t, info.ServerVersion)
	assert.NotEmpty(t, info.ApiVersion)

	props, err := ClientConfig("meridian-web")
	require.NoError(t, err)
	assert.NotNil(t, props)

	_, err = ClientConfig("Not An App")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
