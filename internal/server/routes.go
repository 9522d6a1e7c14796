package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/metisguard/metis/internal/api/v1"
	"github.com/metisguard/metis/internal/api/ws"
	"github.com/metisguard/metis/internal/auth"
	"github.com/metisguard/metis/internal/governance"
	"github.com/metisguard/metis/internal/hub"
)

func registerAuthRoutes(api huma.API, authSvc *auth.Service) {
	v1.RegisterAuthRoutes(api, authSvc)
}

func registerReportRoutes(api huma.API, engine *governance.Engine, violationHub *hub.Hub) {
	v1.RegisterActionRoutes(api, engine)
	v1.RegisterViolationRoutes(api, engine)
	v1.RegisterStatusRoutes(api, violationHub)
}

func registerAdminRoutes(api huma.API, engine *governance.Engine) {
	v1.RegisterAgentRoutes(api, engine)
}

func registerWSRoutes(r chi.Router, handler *ws.Handler) {
	r.Get("/violations", handler.ServeViolations)
}
