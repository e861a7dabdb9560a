package metamanager

import (
	"context"

	"github.com/meridian-data/meridian/internal/common/apperrors"
	"github.com/meridian-data/meridian/internal/metasrv/db"
	"github.com/meridian-data/meridian/internal/metasrv/db/models"
	"github.com/meridian-data/meridian/internal/metasrv/metacommon"
	"github.com/meridian-data/meridian/pkg/types"
)

// Tenant administration. Mutations are trusted-surface only; listing is a
// public read.

func CreateTenant(ctx context.Context, tenantID types.TenantId) apperrors.Error {
	if apErr := requireTrusted(ctx); apErr != nil {
		return apErr
	}
	if !metacommon.IsValidTenantCode(string(tenantID)) {
		return ErrInvalidRequest.Msg("invalid tenant code: " + string(tenantID))
	}
	return db.DB(ctx).CreateTenant(ctx, tenantID)
}

// DeleteTenant removes an empty tenant. Tenants that still hold objects are
// rejected by the store.
func DeleteTenant(ctx context.Context, tenantID types.TenantId) apperrors.Error {
	if apErr := requireTrusted(ctx); apErr != nil {
		return apErr
	}
	if !metacommon.IsValidTenantCode(string(tenantID)) {
		return ErrInvalidRequest.Msg("invalid tenant code: " + string(tenantID))
	}
	return db.DB(ctx).DeleteTenant(ctx, tenantID)
}

func ListTenants(ctx context.Context) ([]*models.Tenant, apperrors.Error) {
	return db.DB(ctx).ListTenants(ctx)
}
