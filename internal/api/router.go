// Package api serves the inspection API of a held harness run.
//
// @title Migration Harness API
// @version 1.0
// @description Status of harness runs recorded in the tracking database.
// @BasePath /api/v1
package api

import (
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "migration-harness/docs"
	"migration-harness/internal/api/handler"
	"migration-harness/pkg/router"
)

// NewRouter returns a router serving the run endpoints and their docs.
func NewRouter(source handler.RunSource, log logrus.FieldLogger) *router.Router {
	r := router.New(log)
	RegisterRoutes(r, handler.NewRunHandler(source))
	r.Handle("/swagger/", httpSwagger.WrapHandler)
	return r
}

func RegisterRoutes(r *router.Router, h *handler.RunHandler) {
	r.GET("/api/v1/runs", h.ListRuns)
	r.GET("/api/v1/runs/*/stages", h.GetRunStages)
	r.GET("/api/v1/runs/*/errors", h.GetRunErrors)
	r.GET("/api/v1/runs/*/report", h.GetRunReport)
	r.GET("/api/v1/runs/*", h.GetRun)
}
