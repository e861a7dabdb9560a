package apis

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/meridian-data/meridian/internal/common/httpx"
	"github.com/meridian-data/meridian/internal/metasrv/metamanager"
	"github.com/meridian-data/meridian/pkg/metadata"
)

func createObject(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	req := &metamanager.CreateObjectRequest{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}
	tag, err := metamanager.CreateObject(ctx, req)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   objectLocation(tag),
		Response:   tag,
	}, nil
}

func updateObject(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	req := &metamanager.UpdateObjectRequest{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}
	tag, err := metamanager.UpdateObject(ctx, req)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   objectLocation(tag),
		Response:   tag,
	}, nil
}

func updateTag(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	req := &metamanager.UpdateTagRequest{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}
	tag, err := metamanager.UpdateTag(ctx, req)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   objectLocation(tag),
		Response:   tag,
	}, nil
}

func preallocateIds(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	req := &metamanager.PreallocateIdsRequest{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}
	ids, err := metamanager.PreallocateIds(ctx, req)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   &preallocateRsp{ObjectIds: ids},
	}, nil
}

type preallocateRsp struct {
	ObjectIds []uuid.UUID `json:"objectIds"`
}

func createPreallocated(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	req := &metamanager.CreatePreallocatedRequest{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}
	tag, err := metamanager.CreatePreallocated(ctx, req)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   objectLocation(tag),
		Response:   tag,
	}, nil
}

func readObject(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	selector := metadata.TagSelector{}
	if err := httpx.GetRequestData(r, &selector); err != nil {
		return nil, err
	}
	tag, err := metamanager.ReadObject(ctx, selector)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: tag}, nil
}

func readBatch(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	var selectors []metadata.TagSelector
	if err := httpx.GetRequestData(r, &selectors); err != nil {
		return nil, err
	}
	tags, err := metamanager.ReadBatch(ctx, selectors)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: tags}, nil
}

func writeBatch(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	req := &metamanager.WriteBatchRequest{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}
	rsp, err := metamanager.WriteBatch(ctx, req)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: rsp}, nil
}

func objectLocation(tag *metadata.Tag) string {
	return "/objects/" + tag.Header.ObjectID.String()
}
