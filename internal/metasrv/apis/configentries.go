package apis

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-data/meridian/internal/common/httpx"
	"github.com/meridian-data/meridian/internal/metasrv/metamanager"
	"github.com/meridian-data/meridian/pkg/metadata"
	"github.com/meridian-data/meridian/pkg/types"
)

func configRefFromURL(r *http.Request) metamanager.ConfigRef {
	return metamanager.ConfigRef{
		ConfigClass: chi.URLParam(r, "configClass"),
		ConfigKey:   chi.URLParam(r, "configKey"),
	}
}

func createConfigObject(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	ref := configRefFromURL(r)
	req := &metamanager.CreateConfigRequest{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}
	req.ConfigClass = ref.ConfigClass
	req.ConfigKey = ref.ConfigKey
	obj, err := metamanager.CreateConfigObject(ctx, req)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   configLocation(ref),
		Response:   obj,
	}, nil
}

func updateConfigObject(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	ref := configRefFromURL(r)
	req := &metamanager.UpdateConfigRequest{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}
	req.ConfigClass = ref.ConfigClass
	req.ConfigKey = ref.ConfigKey
	obj, err := metamanager.UpdateConfigObject(ctx, req)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: obj}, nil
}

func deleteConfigObject(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	entry, err := metamanager.DeleteConfigObject(ctx, configRefFromURL(r))
	if err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: entry}, nil
}

func readConfigObject(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	obj, err := metamanager.ReadConfigObject(ctx, configRefFromURL(r))
	if err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: obj}, nil
}

func readConfigBatch(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	var refs []metamanager.ConfigRef
	if err := httpx.GetRequestData(r, &refs); err != nil {
		return nil, err
	}
	objs, err := metamanager.ReadConfigBatch(ctx, refs)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: objs}, nil
}

func listConfigEntries(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	configClass := chi.URLParam(r, "configClass")
	q := r.URL.Query()
	entries, err := metamanager.ListConfigEntries(ctx, configClass,
		types.ObjectType(q.Get("objectType")), q.Get("subType"),
		q.Get("includeDeleted") == "true")
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*metadata.ConfigEntry{}
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: entries}, nil
}

func configLocation(ref metamanager.ConfigRef) string {
	return "/config/" + ref.ConfigClass + "/" + ref.ConfigKey
}
