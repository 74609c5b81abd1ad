package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dispatch-routing-service/internal/api/handlers"
	"dispatch-routing-service/internal/platform/metrics"
	"dispatch-routing-service/internal/ports"
	"dispatch-routing-service/internal/services"
)

// Deps collects the services the HTTP surface exposes.
type Deps struct {
	Stops         ports.StopStore
	Queue         *services.GeocodeQueue
	Worker        *services.GeocodeWorker
	Scanner       *services.BackfillScanner
	Engine        *services.RouteSuggestionEngine
	Assembler     *services.DispatchViewAssembler
	DefaultTenant string
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(deps Deps) http.Handler {
	mux := http.NewServeMux()

	stopHandler := &handlers.StopHandler{Stops: deps.Stops, DefaultTenant: deps.DefaultTenant}
	geocodeHandler := &handlers.GeocodeHandler{
		Queue:         deps.Queue,
		Worker:        deps.Worker,
		Scanner:       deps.Scanner,
		DefaultTenant: deps.DefaultTenant,
	}
	routeHandler := &handlers.RouteHandler{Engine: deps.Engine, DefaultTenant: deps.DefaultTenant}
	dispatchHandler := &handlers.DispatchHandler{Assembler: deps.Assembler, DefaultTenant: deps.DefaultTenant}

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/v1/stops", stopHandler.List)
	mux.HandleFunc("/v1/stops/sequence", stopHandler.SetSequence)
	mux.HandleFunc("/v1/geocode/enqueue", geocodeHandler.Enqueue)
	mux.HandleFunc("/v1/geocode/seed", geocodeHandler.Seed)
	mux.HandleFunc("/v1/geocode/process", geocodeHandler.Process)
	mux.HandleFunc("/v1/geocode/sweep", geocodeHandler.Sweep)
	mux.HandleFunc("/v1/routes/suggestion", routeHandler.Suggest)
	mux.HandleFunc("/v1/dispatch/board", dispatchHandler.Board)

	metrics.RegisterDefault()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return loggingMiddleware(mux)
}
