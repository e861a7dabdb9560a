package apis

import (
	"net/http"

	"github.com/meridian-data/meridian/internal/common/httpx"
	"github.com/meridian-data/meridian/internal/metasrv/metamanager"
	"github.com/meridian-data/meridian/pkg/metadata"
)

func searchObjects(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	params := metadata.SearchParameters{}
	if err := httpx.GetRequestData(r, &params); err != nil {
		return nil, err
	}
	results, err := metamanager.Search(ctx, params)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []*metadata.Tag{}
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: results}, nil
}
