// Package server assembles the metadata service: middleware, the public and
// trusted API surfaces, and the unscoped info endpoints.
package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/meridian-data/meridian/internal/common/httpx"
	"github.com/meridian-data/meridian/internal/common/logtrace"
	commonmiddleware "github.com/meridian-data/meridian/internal/common/middleware"
	"github.com/meridian-data/meridian/internal/metasrv/apis"
	"github.com/meridian-data/meridian/internal/metasrv/config"
	"github.com/meridian-data/meridian/internal/metasrv/db"
	"github.com/meridian-data/meridian/internal/metasrv/metamanager"
)

type MetaServer struct {
	Router *chi.Mux
}

func CreateNewServer() (*MetaServer, error) {
	s := &MetaServer{}
	s.Router = chi.NewRouter()
	return s, nil
}

func (s *MetaServer) MountHandlers() {
	s.Router.Use(commonmiddleware.RequestLogger)
	s.Router.Use(commonmiddleware.PanicHandler)
	if config.Config().HandleCORS {
		s.Router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "Content-Length", "Authorization",
				apis.HeaderTenant, apis.HeaderUserID, apis.HeaderUserName},
			MaxAge: 300,
		}))
	}

	// The public surface carries untrusted callers; the trusted surface is
	// meant to sit behind the platform's internal network boundary.
	s.Router.Mount("/api", apis.Router(false))
	s.Router.Mount("/trusted", apis.Router(true))
	s.Router.Mount("/admin", apis.AdminRouter())

	s.Router.Get("/info", s.getPlatformInfo)
	s.Router.Get("/client-config/{application}", s.getClientConfig)
	s.Router.With(db.LoadScopedDBMiddleware).Get("/tenants", s.listTenants)

	if logtrace.IsTraceEnabled() {
		walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			fmt.Printf("%s %s\n", method, route)
			return nil
		}
		if err := chi.Walk(s.Router, walkFunc); err != nil {
			log.Error().Err(err).Msg("unable to walk routes")
		}
	}
}

func (s *MetaServer) getPlatformInfo(w http.ResponseWriter, r *http.Request) {
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, metamanager.GetPlatformInfo())
}

func (s *MetaServer) getClientConfig(w http.ResponseWriter, r *http.Request) {
	application := chi.URLParam(r, "application")
	props, err := metamanager.ClientConfig(application)
	if err != nil {
		httpx.SendError(w, err)
		return
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, props)
}

func (s *MetaServer) listTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := metamanager.ListTenants(r.Context())
	if err != nil {
		httpx.SendError(w, err)
		return
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, tenants)
}
