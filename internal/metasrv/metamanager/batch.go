package metamanager

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-data/meridian/internal/common/apperrors"
	"github.com/meridian-data/meridian/internal/metasrv/db"
	"github.com/meridian-data/meridian/internal/metasrv/db/models"
	"github.com/meridian-data/meridian/internal/metasrv/metacommon"
	"github.com/meridian-data/meridian/internal/metasrv/notify"
	"github.com/meridian-data/meridian/pkg/metadata"
)

// WriteBatchRequest bundles heterogeneous writes into one atomic commit.
// Either every item lands or none does. Prior versions for the update
// sections are resolved before the commit; version monotonicity inside the
// commit still catches concurrent writers.
type WriteBatchRequest struct {
	PreallocateIds     []*PreallocateIdsRequest     `json:"preallocateIds,omitempty"`
	CreateObjects      []*CreateObjectRequest       `json:"createObjects,omitempty"`
	CreatePreallocated []*CreatePreallocatedRequest `json:"createPreallocated,omitempty"`
	UpdateObjects      []*UpdateObjectRequest       `json:"updateObjects,omitempty"`
	UpdateTags         []*UpdateTagRequest          `json:"updateTags,omitempty"`
	CreateConfigs      []*CreateConfigRequest       `json:"createConfigs,omitempty"`
	UpdateConfigs      []*UpdateConfigRequest       `json:"updateConfigs,omitempty"`
	DeleteConfigs      []ConfigRef                  `json:"deleteConfigs,omitempty"`
}

func (r *WriteBatchRequest) isEmpty() bool {
	return len(r.PreallocateIds) == 0 && len(r.CreateObjects) == 0 &&
		len(r.CreatePreallocated) == 0 && len(r.UpdateObjects) == 0 &&
		len(r.UpdateTags) == 0 && len(r.CreateConfigs) == 0 &&
		len(r.UpdateConfigs) == 0 && len(r.DeleteConfigs) == 0
}

// WriteBatchResponse mirrors the request positionally. Written tags carry
// the store-assigned versions and timestamps.
type WriteBatchResponse struct {
	PreallocatedIds     [][]uuid.UUID   `json:"preallocatedIds,omitempty"`
	CreatedObjects      []*metadata.Tag `json:"createdObjects,omitempty"`
	CreatedPreallocated []*metadata.Tag `json:"createdPreallocated,omitempty"`
	UpdatedObjects      []*metadata.Tag `json:"updatedObjects,omitempty"`
	UpdatedTags         []*metadata.Tag `json:"updatedTags,omitempty"`
	CreatedConfigs      []*ConfigObject `json:"createdConfigs,omitempty"`
	UpdatedConfigs      []*ConfigObject `json:"updatedConfigs,omitempty"`
	DeletedConfigs      []ConfigRef     `json:"deletedConfigs,omitempty"`
}

// WriteBatch assembles the bundle, commits it in one transaction, and
// reports everything written.
func WriteBatch(ctx context.Context, req *WriteBatchRequest) (*WriteBatchResponse, apperrors.Error) {
	if req == nil || req.isEmpty() {
		return nil, ErrInvalidRequest.Msg("empty write bundle")
	}

	batch := &models.BatchUpdate{}
	rsp := &WriteBatchResponse{}
	now := time.Now().UTC()

	if len(req.PreallocateIds) > 0 || len(req.CreatePreallocated) > 0 {
		if apErr := requireTrustedWriter(ctx); apErr != nil {
			return nil, apErr
		}
	}

	for _, p := range req.PreallocateIds {
		if err := validate.Struct(p); err != nil {
			return nil, ErrInvalidRequest.Err(err)
		}
		if apErr := checkWritePolicy(ctx, p.ObjectType, nil); apErr != nil {
			return nil, apErr
		}
		batch.Preallocate = append(batch.Preallocate, &models.PreallocateRequest{
			ObjectType: p.ObjectType,
			Count:      p.Count,
		})
	}

	for _, c := range req.CreateObjects {
		if err := validate.Struct(c); err != nil {
			return nil, ErrInvalidRequest.Err(err)
		}
		tag, apErr := buildNewTag(ctx, c.ObjectType, c.Definition, c.TagUpdates)
		if apErr != nil {
			return nil, apErr
		}
		batch.NewObjects = append(batch.NewObjects, tag)
		rsp.CreatedObjects = append(rsp.CreatedObjects, tag)
	}

	for _, c := range req.CreatePreallocated {
		if err := validate.Struct(c); err != nil {
			return nil, ErrInvalidRequest.Err(err)
		}
		tag, apErr := buildNewTag(ctx, c.ObjectType, c.Definition, c.TagUpdates)
		if apErr != nil {
			return nil, apErr
		}
		tag.Header.ObjectID = c.ObjectID
		batch.Preallocated = append(batch.Preallocated, tag)
		rsp.CreatedPreallocated = append(rsp.CreatedPreallocated, tag)
	}

	for _, u := range req.UpdateObjects {
		if err := validate.Struct(u); err != nil {
			return nil, ErrInvalidRequest.Err(err)
		}
		prior, apErr := resolvePrior(ctx, u.PriorVersion, u.TagUpdates)
		if apErr != nil {
			return nil, apErr
		}
		attrs, err := metadata.ApplyTagUpdates(prior.Attrs, u.TagUpdates)
		if err != nil {
			return nil, asAppError(err)
		}
		injectUpdateAudit(ctx, attrs, now)
		tag := &metadata.Tag{
			Header: metadata.TagHeader{
				ObjectType:    prior.Header.ObjectType,
				ObjectID:      prior.Header.ObjectID,
				ObjectVersion: prior.Header.ObjectVersion + 1,
				TagVersion:    1,
			},
			Definition: u.Definition,
			Attrs:      attrs,
		}
		batch.NewVersions = append(batch.NewVersions, tag)
		rsp.UpdatedObjects = append(rsp.UpdatedObjects, tag)
	}

	for _, u := range req.UpdateTags {
		if err := validate.Struct(u); err != nil {
			return nil, ErrInvalidRequest.Err(err)
		}
		prior, apErr := resolvePrior(ctx, u.PriorTag, u.TagUpdates)
		if apErr != nil {
			return nil, apErr
		}
		attrs, err := metadata.ApplyTagUpdates(prior.Attrs, u.TagUpdates)
		if err != nil {
			return nil, asAppError(err)
		}
		injectUpdateAudit(ctx, attrs, now)
		tag := &metadata.Tag{
			Header: metadata.TagHeader{
				ObjectType:    prior.Header.ObjectType,
				ObjectID:      prior.Header.ObjectID,
				ObjectVersion: prior.Header.ObjectVersion,
			},
			Attrs: attrs,
		}
		batch.NewTags = append(batch.NewTags, tag)
		rsp.UpdatedTags = append(rsp.UpdatedTags, tag)
	}

	if apErr := addConfigSections(ctx, req, batch, rsp); apErr != nil {
		return nil, apErr
	}

	if err := db.DB(ctx).SaveBatchUpdate(ctx, batch); err != nil {
		return nil, err
	}

	for _, p := range batch.Preallocate {
		rsp.PreallocatedIds = append(rsp.PreallocatedIds, p.ObjectIDs)
	}
	publishBatchNotices(ctx, batch)
	return rsp, nil
}

func addConfigSections(ctx context.Context, req *WriteBatchRequest, batch *models.BatchUpdate, rsp *WriteBatchResponse) apperrors.Error {
	if len(req.CreateConfigs) == 0 && len(req.UpdateConfigs) == 0 && len(req.DeleteConfigs) == 0 {
		return nil
	}
	if apErr := requireTrusted(ctx); apErr != nil {
		return apErr
	}
	now := time.Now().UTC()

	for _, c := range req.CreateConfigs {
		if err := validate.Struct(c); err != nil {
			return ErrInvalidRequest.Err(err)
		}
		if apErr := checkConfigNames(c.ConfigClass, c.ConfigKey); apErr != nil {
			return apErr
		}
		tag, apErr := buildNewTag(ctx, c.ObjectType, c.Definition, c.TagUpdates)
		if apErr != nil {
			return apErr
		}
		tag.Header.ObjectID = uuid.New()
		entry := configEntryFor(c.ConfigClass, c.ConfigKey, c.SubType, tag)
		batch.NewObjects = append(batch.NewObjects, tag)
		batch.ConfigEntries = append(batch.ConfigEntries, &models.ConfigEntryWrite{Entry: entry})
		rsp.CreatedConfigs = append(rsp.CreatedConfigs, &ConfigObject{Entry: entry, Tag: tag})
	}

	for _, u := range req.UpdateConfigs {
		if err := validate.Struct(u); err != nil {
			return ErrInvalidRequest.Err(err)
		}
		if apErr := checkConfigNames(u.ConfigClass, u.ConfigKey); apErr != nil {
			return apErr
		}
		prior, apErr := db.DB(ctx).GetConfigEntry(ctx, u.ConfigClass, u.ConfigKey)
		if apErr != nil {
			return apErr
		}
		priorTag, apErr := db.DB(ctx).LoadTag(ctx, prior.Details.Selector)
		if apErr != nil {
			return apErr
		}
		attrs, err := metadata.ApplyTagUpdates(priorTag.Attrs, u.TagUpdates)
		if err != nil {
			return asAppError(err)
		}
		injectUpdateAudit(ctx, attrs, now)
		tag := &metadata.Tag{
			Header: metadata.TagHeader{
				ObjectType:    priorTag.Header.ObjectType,
				ObjectID:      priorTag.Header.ObjectID,
				ObjectVersion: priorTag.Header.ObjectVersion + 1,
				TagVersion:    1,
			},
			Definition: u.Definition,
			Attrs:      attrs,
		}
		subType := u.SubType
		if subType == "" {
			subType = prior.Details.SubType
		}
		entry := configEntryFor(u.ConfigClass, u.ConfigKey, subType, tag)
		batch.NewVersions = append(batch.NewVersions, tag)
		batch.ConfigEntries = append(batch.ConfigEntries, &models.ConfigEntryWrite{Entry: entry, Replace: true})
		rsp.UpdatedConfigs = append(rsp.UpdatedConfigs, &ConfigObject{Entry: entry, Tag: tag})
	}

	for _, d := range req.DeleteConfigs {
		if apErr := checkConfigNames(d.ConfigClass, d.ConfigKey); apErr != nil {
			return apErr
		}
		batch.Tombstones = append(batch.Tombstones, models.ConfigEntryRef{
			ConfigClass: d.ConfigClass,
			ConfigKey:   d.ConfigKey,
		})
		rsp.DeletedConfigs = append(rsp.DeletedConfigs, d)
	}
	return nil
}

func publishBatchNotices(ctx context.Context, batch *models.BatchUpdate) {
	tenantID := metacommon.TenantIdFromContext(ctx)
	var headers []metadata.TagHeader
	for _, group := range [][]*metadata.Tag{batch.NewObjects, batch.Preallocated, batch.NewVersions, batch.NewTags} {
		for _, tag := range group {
			headers = append(headers, tag.Header)
		}
	}
	notify.ObjectsWritten(tenantID, headers)
	for _, w := range batch.ConfigEntries {
		notify.ConfigWritten(tenantID, w.Entry.ConfigClass, w.Entry.ConfigKey, false)
	}
	for _, t := range batch.Tombstones {
		notify.ConfigWritten(tenantID, t.ConfigClass, t.ConfigKey, true)
	}
}
