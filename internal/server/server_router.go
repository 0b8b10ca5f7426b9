package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func buildRouter(d *dashboard) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// UI
	r.Get("/", d.uiHandler)
	r.Get("/login", d.loginHandler)

	// Health/info
	r.Get("/healthz", healthzHandler)
	r.Get("/api/v1/server-info", serverInfoHandler)

	// Dashboard
	r.Get("/api/v1/dashboard", d.dashboardHandler)
	r.Get("/api/v1/queues/{queueID}/iterations/{iterationID}/failure-logs", d.failureLogsHandler)

	// Reporters
	r.Post("/api/v1/iterations", d.reportIterationHandler)
	r.Post("/api/v1/queues/{queueID}/pending", d.pendingRevisionsHandler)
	r.Post("/api/v1/queues/{queueID}/load-more", d.loadMoreHandler)

	return r
}
