package httpapi

import (
	"context"
	"net/http"

	"jobcrawl-engine/internal/logger"
)

// NewMux returns the raw mux without middleware.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	hh := HealthHandler{Store: d.Store}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	// Jobs
	jh := JobsHandler{Store: d.Store}
	mux.HandleFunc("/jobs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.List,
	}))

	// Config (read-only)
	ch := ConfigHandler{Cfg: d.Cfg, UserCfgPath: d.UserCfgPath}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
	}))
	mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Validate,
	}))

	// Crawl
	base := d.BaseCtx
	if base == nil {
		base = context.Background()
	}
	crh := CrawlHandler{Crawler: d.Crawler, BaseCtx: base}
	mux.HandleFunc("/crawl/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: crh.Status,
	}))
	mux.HandleFunc("/crawl/run", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: crh.Run,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	return mux
}

// NewHandler is NewMux behind the standard middleware chain.
func NewHandler(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = logger.NewNoOp()
	}
	log = log.WithComponent("http")
	return Chain(NewMux(d), RequestID, Recover(log), AccessLog(log), Cors)
}
