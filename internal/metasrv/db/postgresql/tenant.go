package postgresql

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog/log"

	"github.com/meridian-data/meridian/internal/common/apperrors"
	"github.com/meridian-data/meridian/internal/metasrv/db/dberror"
	"github.com/meridian-data/meridian/internal/metasrv/db/models"
	"github.com/meridian-data/meridian/pkg/types"
)

func (mm *metadataManager) CreateTenant(ctx context.Context, tenantID types.TenantId) apperrors.Error {
	if tenantID == "" {
		return dberror.ErrMissingTenantID
	}
	query := `
		INSERT INTO tenant (tenant_id)
		VALUES ($1);
	`
	_, err := mm.conn().ExecContext(ctx, query, tenantID)
	if err != nil {
		if isUniqueViolation(err) {
			log.Ctx(ctx).Info().Str("tenant_id", string(tenantID)).Msg("tenant already exists")
			return dberror.ErrAlreadyExists.Msg("tenant already exists")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to insert tenant")
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

func (mm *metadataManager) GetTenant(ctx context.Context, tenantID types.TenantId) (*models.Tenant, apperrors.Error) {
	if tenantID == "" {
		return nil, dberror.ErrMissingTenantID
	}
	query := `
		SELECT tenant_id, info, created_at
		FROM tenant
		WHERE tenant_id = $1;
	`
	row := mm.conn().QueryRowContext(ctx, query, tenantID)
	tenant := &models.Tenant{}
	err := row.Scan(&tenant.TenantID, &tenant.Info, &tenant.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Ctx(ctx).Info().Str("tenant_id", string(tenantID)).Msg("tenant not found")
			return nil, dberror.ErrNotFound.Msg("tenant not found")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to retrieve tenant")
		return nil, dberror.ErrDatabase.Err(err)
	}
	return tenant, nil
}

func (mm *metadataManager) DeleteTenant(ctx context.Context, tenantID types.TenantId) apperrors.Error {
	if tenantID == "" {
		return dberror.ErrMissingTenantID
	}
	query := `
		DELETE FROM tenant
		WHERE tenant_id = $1;
	`
	_, err := mm.conn().ExecContext(ctx, query, tenantID)
	if err != nil {
		if isFkViolation(err) {
			return dberror.ErrInvalidInput.Msg("tenant still holds objects")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to delete tenant")
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

func (mm *metadataManager) ListTenants(ctx context.Context) ([]*models.Tenant, apperrors.Error) {
	query := `
		SELECT tenant_id, info, created_at
		FROM tenant
		ORDER BY tenant_id;
	`
	rows, err := mm.conn().QueryContext(ctx, query)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to list tenants")
		return nil, dberror.ErrDatabase.Err(err)
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		tenant := &models.Tenant{}
		if err := rows.Scan(&tenant.TenantID, &tenant.Info, &tenant.CreatedAt); err != nil {
			return nil, dberror.ErrDatabase.Err(err)
		}
		tenants = append(tenants, tenant)
	}
	if err := rows.Err(); err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	return tenants, nil
}
