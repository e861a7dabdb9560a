package metamanager

import (
	"context"
	"os"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"

	"github.com/meridian-data/meridian/internal/metasrv/db"
	"github.com/meridian-data/meridian/internal/metasrv/metacommon"
	"github.com/meridian-data/meridian/pkg/metadata"
	"github.com/meridian-data/meridian/pkg/types"
)

func TestMain(m *testing.M) {
	ctx := log.Logger.WithContext(context.Background())
	if err := db.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("unable to initialize db pool")
	}
	os.Exit(m.Run())
}

// newServiceCtx provisions a throwaway tenant and returns a context with a
// scoped connection and caller identity attached.
func newServiceCtx(t *testing.T, tenantID types.TenantId, trusted bool) (context.Context, func()) {
	t.Helper()
	parent := log.Logger.WithContext(context.Background())
	ctx, err := db.ConnCtx(parent)
	require.NoError(t, err)
	ctx = metacommon.SetTenantIdInContext(ctx, tenantID)
	require.NoError(t, db.DB(ctx).CreateTenant(ctx, tenantID))
	ctx = metacommon.SetCallerInContext(ctx, &metacommon.Caller{
		UserID:   "u-100",
		UserName: "jordan",
		Trusted:  trusted,
	})
	return ctx, func() {
		db.DB(ctx).DeleteTenant(ctx, tenantID)
		db.DB(ctx).Close(ctx)
	}
}

func jsonDef(body string) *metadata.ObjectDefinition {
	return &metadata.ObjectDefinition{Format: "application/json", Body: []byte(body)}
}

func setStr(name, s string) metadata.TagUpdate {
	v := metadata.StringValue(s)
	return metadata.TagUpdate{AttrName: name, Value: &v}
}

func setInt(name string, n int64) metadata.TagUpdate {
	v := metadata.IntValue(n)
	return metadata.TagUpdate{AttrName: name, Value: &v}
}
