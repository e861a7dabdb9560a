package metamanager

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-data/meridian/internal/common/apperrors"
	"github.com/meridian-data/meridian/internal/metasrv/config"
	"github.com/meridian-data/meridian/internal/metasrv/db"
	"github.com/meridian-data/meridian/internal/metasrv/db/models"
	"github.com/meridian-data/meridian/internal/metasrv/metacommon"
	"github.com/meridian-data/meridian/internal/metasrv/notify"
	"github.com/meridian-data/meridian/pkg/metadata"
	"github.com/meridian-data/meridian/pkg/types"
)

// Config entries form a keyed directory over regular metadata objects. The
// directory rows and the objects they point at are written in one atomic
// bundle, so a key never dangles. Config writes come in over the trusted
// surface only.

type CreateConfigRequest struct {
	ConfigClass string                     `json:"configClass" validate:"required"`
	ConfigKey   string                     `json:"configKey" validate:"required"`
	ObjectType  types.ObjectType           `json:"objectType" validate:"required"`
	SubType     string                     `json:"subType,omitempty"`
	Definition  *metadata.ObjectDefinition `json:"definition" validate:"required"`
	TagUpdates  []metadata.TagUpdate       `json:"tagUpdates,omitempty"`
}

type UpdateConfigRequest struct {
	ConfigClass string                     `json:"configClass" validate:"required"`
	ConfigKey   string                     `json:"configKey" validate:"required"`
	SubType     string                     `json:"subType,omitempty"`
	Definition  *metadata.ObjectDefinition `json:"definition" validate:"required"`
	TagUpdates  []metadata.TagUpdate       `json:"tagUpdates,omitempty"`
}

type ConfigRef struct {
	ConfigClass string `json:"configClass" validate:"required"`
	ConfigKey   string `json:"configKey" validate:"required"`
}

// ConfigObject pairs a directory entry with the resolved object it points
// at.
type ConfigObject struct {
	Entry *metadata.ConfigEntry `json:"entry"`
	Tag   *metadata.Tag         `json:"tag"`
}

func requireTrusted(ctx context.Context) apperrors.Error {
	if !metacommon.IsTrustedContext(ctx) {
		return ErrPermissionDenied.Msg("config entries are writable only over the trusted surface")
	}
	return nil
}

// checkConfigNames validates a directory coordinate. Keys in the resources
// class follow the stricter resource-key grammar.
func checkConfigNames(configClass, configKey string) apperrors.Error {
	if !metacommon.IsValidConfigName(configClass) {
		return ErrInvalidRequest.Msg("invalid config class: " + configClass)
	}
	if configClass == types.ConfigClassResources {
		if !metacommon.IsValidResourceKey(configKey) {
			return ErrInvalidRequest.Msg("invalid resource key: " + configKey)
		}
		return nil
	}
	if !metacommon.IsValidConfigName(configKey) {
		return ErrInvalidRequest.Msg("invalid config key: " + configKey)
	}
	return nil
}

// CreateConfigObject writes a new object and a directory entry pointing at
// it, atomically. Creating over a live key fails; creating over a tombstone
// revives the key.
func CreateConfigObject(ctx context.Context, req *CreateConfigRequest) (*ConfigObject, apperrors.Error) {
	if apErr := requireTrusted(ctx); apErr != nil {
		return nil, apErr
	}
	if err := validate.Struct(req); err != nil {
		return nil, ErrInvalidRequest.Err(err)
	}
	if apErr := checkConfigNames(req.ConfigClass, req.ConfigKey); apErr != nil {
		return nil, apErr
	}
	tag, apErr := buildNewTag(ctx, req.ObjectType, req.Definition, req.TagUpdates)
	if apErr != nil {
		return nil, apErr
	}
	// The id is assigned here rather than in the DAL so the entry's
	// selector can reference it inside the same bundle.
	tag.Header.ObjectID = uuid.New()
	entry := configEntryFor(req.ConfigClass, req.ConfigKey, req.SubType, tag)

	batch := &models.BatchUpdate{
		NewObjects:    []*metadata.Tag{tag},
		ConfigEntries: []*models.ConfigEntryWrite{{Entry: entry}},
	}
	if err := db.DB(ctx).SaveBatchUpdate(ctx, batch); err != nil {
		return nil, err
	}
	publishBatchNotices(ctx, batch)
	return &ConfigObject{Entry: entry, Tag: tag}, nil
}

// UpdateConfigObject writes the next version of the keyed object and bumps
// the directory entry to point at it, atomically.
func UpdateConfigObject(ctx context.Context, req *UpdateConfigRequest) (*ConfigObject, apperrors.Error) {
	if apErr := requireTrusted(ctx); apErr != nil {
		return nil, apErr
	}
	if err := validate.Struct(req); err != nil {
		return nil, ErrInvalidRequest.Err(err)
	}
	if apErr := checkConfigNames(req.ConfigClass, req.ConfigKey); apErr != nil {
		return nil, apErr
	}
	prior, apErr := db.DB(ctx).GetConfigEntry(ctx, req.ConfigClass, req.ConfigKey)
	if apErr != nil {
		return nil, apErr
	}
	priorTag, apErr := db.DB(ctx).LoadTag(ctx, prior.Details.Selector)
	if apErr != nil {
		return nil, apErr
	}
	attrs, err := metadata.ApplyTagUpdates(priorTag.Attrs, req.TagUpdates)
	if err != nil {
		return nil, asAppError(err)
	}
	injectUpdateAudit(ctx, attrs, time.Now().UTC())

	tag := &metadata.Tag{
		Header: metadata.TagHeader{
			ObjectType:    priorTag.Header.ObjectType,
			ObjectID:      priorTag.Header.ObjectID,
			ObjectVersion: priorTag.Header.ObjectVersion + 1,
			TagVersion:    1,
		},
		Definition: req.Definition,
		Attrs:      attrs,
	}
	subType := req.SubType
	if subType == "" {
		subType = prior.Details.SubType
	}
	entry := configEntryFor(req.ConfigClass, req.ConfigKey, subType, tag)

	batch := &models.BatchUpdate{
		NewVersions:   []*metadata.Tag{tag},
		ConfigEntries: []*models.ConfigEntryWrite{{Entry: entry, Replace: true}},
	}
	if err := db.DB(ctx).SaveBatchUpdate(ctx, batch); err != nil {
		return nil, err
	}
	publishBatchNotices(ctx, batch)
	return &ConfigObject{Entry: entry, Tag: tag}, nil
}

// DeleteConfigObject tombstones the directory entry. The underlying object
// and its history stay readable by direct selector.
func DeleteConfigObject(ctx context.Context, ref ConfigRef) (*metadata.ConfigEntry, apperrors.Error) {
	if apErr := requireTrusted(ctx); apErr != nil {
		return nil, apErr
	}
	if apErr := checkConfigNames(ref.ConfigClass, ref.ConfigKey); apErr != nil {
		return nil, apErr
	}
	entry, apErr := db.DB(ctx).DeleteConfigEntry(ctx, ref.ConfigClass, ref.ConfigKey)
	if apErr != nil {
		return nil, apErr
	}
	notify.ConfigWritten(metacommon.TenantIdFromContext(ctx), ref.ConfigClass, ref.ConfigKey, true)
	return entry, nil
}

// ReadConfigObject resolves a key to its entry and the object it points at.
func ReadConfigObject(ctx context.Context, ref ConfigRef) (*ConfigObject, apperrors.Error) {
	if apErr := checkConfigNames(ref.ConfigClass, ref.ConfigKey); apErr != nil {
		return nil, apErr
	}
	entry, apErr := db.DB(ctx).GetConfigEntry(ctx, ref.ConfigClass, ref.ConfigKey)
	if apErr != nil {
		return nil, apErr
	}
	tag, apErr := db.DB(ctx).LoadTag(ctx, entry.Details.Selector)
	if apErr != nil {
		return nil, apErr
	}
	return &ConfigObject{Entry: entry, Tag: tag}, nil
}

// ReadConfigBatch resolves a list of keys positionally; any missing key
// fails the whole read.
func ReadConfigBatch(ctx context.Context, refs []ConfigRef) ([]*ConfigObject, apperrors.Error) {
	if len(refs) == 0 {
		return nil, ErrInvalidRequest.Msg("empty config key list")
	}
	out := make([]*ConfigObject, 0, len(refs))
	for _, ref := range refs {
		obj, apErr := ReadConfigObject(ctx, ref)
		if apErr != nil {
			return nil, apErr
		}
		out = append(out, obj)
	}
	return out, nil
}

// ListConfigEntries lists the entries of a class, optionally filtered by
// the pointed-at object type and sub-type. Tombstoned entries are skipped
// unless includeDeleted is set.
func ListConfigEntries(ctx context.Context, configClass string, objectType types.ObjectType, subType string, includeDeleted bool) ([]*metadata.ConfigEntry, apperrors.Error) {
	if !metacommon.IsValidConfigName(configClass) {
		return nil, ErrInvalidRequest.Msg("invalid config class: " + configClass)
	}
	entries, apErr := db.DB(ctx).ListConfigEntries(ctx, configClass, includeDeleted)
	if apErr != nil {
		return nil, apErr
	}
	if objectType == types.ObjectTypeInvalid && subType == "" {
		return entries, nil
	}
	filtered := entries[:0]
	for _, e := range entries {
		if objectType != types.ObjectTypeInvalid && e.Details.ObjectType != objectType {
			continue
		}
		if subType != "" && e.Details.SubType != subType {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered, nil
}

// ClientConfig returns the per-application client properties from server
// config. Unknown applications get an empty map, not an error.
func ClientConfig(application string) (map[string]string, apperrors.Error) {
	if !metacommon.IsValidApplicationCode(application) {
		return nil, ErrInvalidRequest.Msg("invalid application code: " + application)
	}
	props := config.Config().ClientConfig[application]
	if props == nil {
		props = map[string]string{}
	}
	return props, nil
}

// PlatformInfo describes the running server.
type PlatformInfo struct {
	ServerVersion string `json:"serverVersion"`
	ApiVersion    string `json:"apiVersion"`
	Environment   string `json:"environment"`
}

func GetPlatformInfo() *PlatformInfo {
	return &PlatformInfo{
		ServerVersion: config.ServerVersion,
		ApiVersion:    config.ApiVersion,
		Environment:   config.Config().Environment,
	}
}

func configEntryFor(configClass, configKey, subType string, tag *metadata.Tag) *metadata.ConfigEntry {
	return &metadata.ConfigEntry{
		ConfigClass: configClass,
		ConfigKey:   configKey,
		Details: metadata.ConfigEntryDetails{
			Selector:   tag.Selector(),
			ObjectType: tag.Header.ObjectType,
			SubType:    subType,
		},
	}
}
