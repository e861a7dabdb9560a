// Package apis wires the HTTP surface of the metadata service. The same
// handler set is mounted twice: once for the public surface and once for
// the trusted surface, which unlocks restricted object types, reserved
// attributes, config writes, and tenant administration.
package apis

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-data/meridian/internal/common/httpx"
	"github.com/meridian-data/meridian/internal/metasrv/db"
	"github.com/meridian-data/meridian/internal/metasrv/metacommon"
	"github.com/meridian-data/meridian/pkg/types"
)

const (
	HeaderTenant   = "X-Meridian-Tenant"
	HeaderUserID   = "X-Meridian-User-Id"
	HeaderUserName = "X-Meridian-User"
)

var objectHandlers = []httpx.ResponseHandlerParam{
	{Method: http.MethodPost, Path: "/objects", Handler: createObject},
	{Method: http.MethodPost, Path: "/objects/preallocate", Handler: preallocateIds},
	{Method: http.MethodPost, Path: "/objects/create-preallocated", Handler: createPreallocated},
	{Method: http.MethodPost, Path: "/objects/update-version", Handler: updateObject},
	{Method: http.MethodPost, Path: "/objects/update-tag", Handler: updateTag},
	{Method: http.MethodPost, Path: "/objects/read", Handler: readObject},
	{Method: http.MethodPost, Path: "/objects/read-batch", Handler: readBatch},
	{Method: http.MethodPost, Path: "/search", Handler: searchObjects},
	{Method: http.MethodPost, Path: "/batch", Handler: writeBatch},

	{Method: http.MethodPost, Path: "/config/read-batch", Handler: readConfigBatch},
	{Method: http.MethodGet, Path: "/config/{configClass}", Handler: listConfigEntries},
	{Method: http.MethodGet, Path: "/config/{configClass}/{configKey}", Handler: readConfigObject},
	{Method: http.MethodPost, Path: "/config/{configClass}/{configKey}", Handler: createConfigObject},
	{Method: http.MethodPut, Path: "/config/{configClass}/{configKey}", Handler: updateConfigObject},
	{Method: http.MethodDelete, Path: "/config/{configClass}/{configKey}", Handler: deleteConfigObject},
}

var tenantHandlers = []httpx.ResponseHandlerParam{
	{Method: http.MethodPost, Path: "/tenants", Handler: createTenant},
	{Method: http.MethodGet, Path: "/tenants", Handler: listTenants},
	{Method: http.MethodDelete, Path: "/tenants/{tenantId}", Handler: deleteTenant},
}

// Router builds the tenant-scoped API surface. Trusted toggles the caller's
// trust level for every request on the mount.
func Router(trusted bool) chi.Router {
	r := chi.NewRouter()
	r.Use(loadCallerContext(trusted))
	r.Use(loadTenantContext)
	r.Use(db.LoadScopedDBMiddleware)
	r.Use(setTenantScope)
	for _, h := range objectHandlers {
		r.Method(h.Method, h.Path, httpx.WrapHttpRsp(h.Handler))
	}
	return r
}

// AdminRouter serves tenant administration. Mounted on the trusted surface
// only; requests carry no tenant header.
func AdminRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(loadCallerContext(true))
	r.Use(db.LoadScopedDBMiddleware)
	for _, h := range tenantHandlers {
		r.Method(h.Method, h.Path, httpx.WrapHttpRsp(h.Handler))
	}
	return r
}

func loadCallerContext(trusted bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := &metacommon.Caller{
				UserID:   r.Header.Get(HeaderUserID),
				UserName: r.Header.Get(HeaderUserName),
				Trusted:  trusted,
			}
			ctx := metacommon.SetCallerInContext(r.Context(), caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func loadTenantContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID := r.Header.Get(HeaderTenant)
		if !metacommon.IsValidTenantCode(tenantID) {
			httpx.ErrInvalidTenant().Send(w)
			return
		}
		ctx := metacommon.SetTenantIdInContext(r.Context(), types.TenantId(tenantID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// setTenantScope pins the connection's tenant GUC so row-level policies see
// the same tenant the DAL queries with.
func setTenantScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tenantID := metacommon.TenantIdFromContext(ctx)
		if err := db.DB(ctx).AddScope(ctx, db.Scope_TenantId, tenantID.String()); err != nil {
			httpx.ErrApplicationError("unable to scope request").Send(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
