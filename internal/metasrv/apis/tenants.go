package apis

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-data/meridian/internal/common/httpx"
	"github.com/meridian-data/meridian/internal/metasrv/metamanager"
	"github.com/meridian-data/meridian/pkg/types"
)

type createTenantReq struct {
	TenantId string `json:"tenantId"`
}

func createTenant(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	req := &createTenantReq{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}
	if err := metamanager.CreateTenant(ctx, types.TenantId(req.TenantId)); err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   "/tenants/" + req.TenantId,
		Response:   req,
	}, nil
}

func deleteTenant(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	tenantID := types.TenantId(chi.URLParam(r, "tenantId"))
	if err := metamanager.DeleteTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: nil}, nil
}

func listTenants(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	tenants, err := metamanager.ListTenants(ctx)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: tenants}, nil
}
