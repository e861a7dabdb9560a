package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-data/meridian/internal/metasrv/apis"
	"github.com/meridian-data/meridian/internal/metasrv/db"
	"github.com/meridian-data/meridian/internal/metasrv/metacommon"
	"github.com/meridian-data/meridian/pkg/types"
)

func TestMain(m *testing.M) {
	ctx := log.Logger.WithContext(context.Background())
	if err := db.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("unable to initialize db pool")
	}
	os.Exit(m.Run())
}

func executeTestRequest(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	s, err := CreateNewServer()
	require.NoError(t, err, "create new server")
	s.MountHandlers()

	rr := httptest.NewRecorder()
	s.Router.ServeHTTP(rr, req)
	return rr
}

func setRequestBodyAndHeader(t *testing.T, req *http.Request, data any) {
	t.Helper()
	var jsonData []byte
	if s, ok := data.(string); ok && json.Valid([]byte(s)) {
		jsonData = []byte(s)
	} else {
		var err error
		jsonData, err = json.Marshal(data)
		require.NoError(t, err, "marshal request body")
	}
	req.Body = io.NopCloser(bytes.NewReader(jsonData))
	req.ContentLength = int64(len(jsonData))
	req.Header.Set("Content-Type", "application/json")
}

func setTenantHeaders(req *http.Request, tenantID string) {
	req.Header.Set(apis.HeaderTenant, tenantID)
	req.Header.Set(apis.HeaderUserID, "u-100")
	req.Header.Set(apis.HeaderUserName, "jordan")
}

// provisionTenant creates a throwaway tenant directly against the store.
func provisionTenant(t *testing.T, tenantID types.TenantId) func() {
	t.Helper()
	parent := log.Logger.WithContext(context.Background())
	ctx, err := db.ConnCtx(parent)
	require.NoError(t, err)
	ctx = metacommon.SetTenantIdInContext(ctx, tenantID)
	require.NoError(t, db.DB(ctx).CreateTenant(ctx, tenantID))
	return func() {
		db.DB(ctx).DeleteTenant(ctx, tenantID)
		db.DB(ctx).Close(ctx)
	}
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), out), "decode response: %s", rr.Body.String())
}

func checkJSONHeader(t *testing.T, h http.Header) {
	assert.Equal(t, "application/json", h.Get("Content-Type"))
}
