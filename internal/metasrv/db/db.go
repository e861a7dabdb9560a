package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/meridian-data/meridian/internal/common/apperrors"
	"github.com/meridian-data/meridian/internal/metasrv/db/dbmanager"
	"github.com/meridian-data/meridian/internal/metasrv/db/models"
	"github.com/meridian-data/meridian/internal/metasrv/db/postgresql"
	"github.com/meridian-data/meridian/pkg/metadata"
	"github.com/meridian-data/meridian/pkg/types"
)

// DB_ wraps a scoped connection to the metadata store. The managers are
// separate interfaces so each can be wrapped independently, e.g. to put a
// cache in front of ObjectManager.

type MetadataManager interface {
	// Tenant
	CreateTenant(ctx context.Context, tenantID types.TenantId) apperrors.Error
	GetTenant(ctx context.Context, tenantID types.TenantId) (*models.Tenant, apperrors.Error)
	DeleteTenant(ctx context.Context, tenantID types.TenantId) apperrors.Error
	ListTenants(ctx context.Context) ([]*models.Tenant, apperrors.Error)
}

type ObjectManager interface {
	// Writes. Each call is one transaction; timestamps and latest markers
	// are assigned by the store and written back into the passed tag.
	SaveNewObject(ctx context.Context, tag *metadata.Tag) apperrors.Error
	SaveNewVersion(ctx context.Context, tag *metadata.Tag) apperrors.Error
	SaveNewTag(ctx context.Context, tag *metadata.Tag) apperrors.Error
	PreallocateObjectIds(ctx context.Context, objectType types.ObjectType, count int) ([]uuid.UUID, apperrors.Error)
	SavePreallocated(ctx context.Context, tag *metadata.Tag) apperrors.Error
	SaveBatchUpdate(ctx context.Context, batch *models.BatchUpdate) apperrors.Error

	// Reads
	LoadTag(ctx context.Context, selector metadata.TagSelector) (*metadata.Tag, apperrors.Error)
	LoadTags(ctx context.Context, selectors []metadata.TagSelector) ([]*metadata.Tag, apperrors.Error)
	Search(ctx context.Context, params metadata.SearchParameters) ([]*metadata.Tag, apperrors.Error)
}

type ConfigManager interface {
	CreateConfigEntry(ctx context.Context, entry *metadata.ConfigEntry) apperrors.Error
	UpdateConfigEntry(ctx context.Context, entry *metadata.ConfigEntry) apperrors.Error
	DeleteConfigEntry(ctx context.Context, configClass, configKey string) (*metadata.ConfigEntry, apperrors.Error)
	GetConfigEntry(ctx context.Context, configClass, configKey string) (*metadata.ConfigEntry, apperrors.Error)
	ListConfigEntries(ctx context.Context, configClass string, includeDeleted bool) ([]*metadata.ConfigEntry, apperrors.Error)
}

type ConnectionManager interface {
	// Scope Management
	AddScopes(ctx context.Context, scopes map[string]string) error
	DropScopes(ctx context.Context, scopes []string) error
	AddScope(ctx context.Context, scope, value string) error
	DropScope(ctx context.Context, scope string) error
	DropAllScopes(ctx context.Context) error

	// Close the connection to the database.
	Close(ctx context.Context)
}

type DB_ interface {
	MetadataManager
	ObjectManager
	ConfigManager
	ConnectionManager
}

const (
	Scope_TenantId string = "meridian.curr_tenantid"
)

var configuredScopes = []string{
	Scope_TenantId,
}

var pool dbmanager.ScopedDb

// Init opens the connection pool. Call once at startup, after config load.
func Init(ctx context.Context) error {
	pg := dbmanager.NewScopedDb(ctx, "postgresql", configuredScopes)
	if pg == nil {
		return errors.New("unable to create db pool")
	}
	pool = pg
	return nil
}

func Conn(ctx context.Context) (dbmanager.ScopedConn, error) {
	if pool == nil {
		return nil, errors.New("db pool not initialized")
	}
	conn, err := pool.Conn(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("unable to get db connection")
		return nil, err
	}
	return conn, nil
}

type ctxDbKeyType string

const ctxDbKey ctxDbKeyType = "MeridianMetaDb"

// ConnCtx obtains a connection from the pool and stashes it in the context.
// The caller owns the connection and must Close it via DB(ctx).
func ConnCtx(ctx context.Context) (context.Context, error) {
	conn, err := Conn(ctx)
	if err != nil {
		return ctx, err
	}
	return context.WithValue(ctx, ctxDbKey, conn), nil
}

type meridianMetaDb struct {
	MetadataManager
	ObjectManager
	ConfigManager
	ConnectionManager
}

func DB(ctx context.Context) DB_ {
	if conn, ok := ctx.Value(ctxDbKey).(dbmanager.ScopedConn); ok {
		mm, om, cm, xm := postgresql.NewMeridianMetaDb(conn)
		return &meridianMetaDb{
			MetadataManager:   mm,
			ObjectManager:     om,
			ConfigManager:     cm,
			ConnectionManager: xm,
		}
	}
	log.Ctx(ctx).Error().Msg("unable to get db connection from context")
	return nil
}
