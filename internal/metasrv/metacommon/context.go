// Package metacommon provides context management and naming rules shared
// across the metadata service: tenant scoping, caller identity, and the
// identifier grammars enforced at the API boundary.
package metacommon

import (
	"context"

	"github.com/meridian-data/meridian/pkg/types"
)

type ctxKeyType string

const (
	ctxTenantIdKey ctxKeyType = "MetaTenantId"
	ctxCallerKey   ctxKeyType = "MetaCaller"
)

// Caller identifies the authenticated principal behind a request. Trusted
// callers are server-originated (platform jobs, internal services) and may
// write reserved attributes and restricted object types.
type Caller struct {
	UserID   string
	UserName string
	Trusted  bool
}

func SetTenantIdInContext(ctx context.Context, tenantId types.TenantId) context.Context {
	return context.WithValue(ctx, ctxTenantIdKey, tenantId)
}

func TenantIdFromContext(ctx context.Context) types.TenantId {
	if tenantId, ok := ctx.Value(ctxTenantIdKey).(types.TenantId); ok {
		return tenantId
	}
	return ""
}

func SetCallerInContext(ctx context.Context, caller *Caller) context.Context {
	return context.WithValue(ctx, ctxCallerKey, caller)
}

func CallerFromContext(ctx context.Context) *Caller {
	if caller, ok := ctx.Value(ctxCallerKey).(*Caller); ok {
		return caller
	}
	return nil
}

// IsTrustedContext reports whether the request came in over the trusted
// surface. Absent caller information means not trusted.
func IsTrustedContext(ctx context.Context) bool {
	if caller := CallerFromContext(ctx); caller != nil {
		return caller.Trusted
	}
	return false
}
