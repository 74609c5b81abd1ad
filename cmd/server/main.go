package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	_ "github.com/jackc/pgx/v5/stdlib"

	"dispatch-routing-service/internal/adapters/cache"
	"dispatch-routing-service/internal/adapters/ors"
	"dispatch-routing-service/internal/adapters/repositories"
	"dispatch-routing-service/internal/api"
	"dispatch-routing-service/internal/config"
	"dispatch-routing-service/internal/platform/db"
	"dispatch-routing-service/internal/ports"
	"dispatch-routing-service/internal/scheduler"
	"dispatch-routing-service/internal/services"
)

// main is the application composition root.
// It wires concrete adapters (Postgres, Redis, ORS) behind ports and starts
// the HTTP server plus the periodic sweep scheduler.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	var (
		stopStore ports.StopStore
		jobStore  ports.GeocodeJobStore
	)
	if cfg.DatabaseURL != "" {
		pg, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatal(err)
		}
		defer pg.Close()

		if err := repositories.InitSchema(pg); err != nil {
			log.Fatal(err)
		}

		stopStore = repositories.NewPostgresStopStore(pg)
		jobStore = repositories.NewPostgresJobStore(pg)
		log.Println("Storage: postgres")
	} else {
		// In-memory stores for local runs without a database.
		mem := repositories.NewMemory()
		stopStore = mem
		jobStore = mem
		log.Println("Storage: in-memory (set DATABASE_URL for postgres)")
	}

	var geocodeCache ports.GeocodeCache
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal(err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		geocodeCache = cache.NewRedisGeocodeCache(rdb)
		log.Println("Geocode cache: redis")
	}

	// Provider adapters degrade gracefully: without credentials the worker
	// retries jobs later and the suggestion engine emits straight lines.
	var geocoder ports.Geocoder
	if cfg.ORSAPIKey != "" {
		client, err := ors.NewClient(cfg.ORSAPIKey)
		if err != nil {
			log.Fatal(err)
		}
		geocoder = ors.NewGeocoder(client)
	} else {
		log.Println("ORS_API_KEY unset: geocode jobs will be retried until a provider is configured")
	}

	var directions ports.DirectionsProvider
	if cfg.DirectionsAPIKey != "" {
		client, err := ors.NewClient(cfg.DirectionsAPIKey)
		if err != nil {
			log.Fatal(err)
		}
		directions = ors.NewDirections(client)
	} else {
		log.Println("DIRECTIONS_API_KEY unset: route geometry degrades to straight lines")
	}

	queue := &services.GeocodeQueue{Jobs: jobStore}
	worker := &services.GeocodeWorker{
		Stops:        stopStore,
		Jobs:         jobStore,
		Geocoder:     geocoder,
		Cache:        geocodeCache,
		ProviderName: ors.ProviderName,
	}
	scanner := &services.BackfillScanner{Stops: stopStore, Queue: queue, Worker: worker}
	engine := &services.RouteSuggestionEngine{Stops: stopStore, Directions: directions}
	assembler := &services.DispatchViewAssembler{Stops: stopStore}

	router := api.NewRouter(api.Deps{
		Stops:         stopStore,
		Queue:         queue,
		Worker:        worker,
		Scanner:       scanner,
		Engine:        engine,
		Assembler:     assembler,
		DefaultTenant: cfg.DefaultTenant,
	})

	if cfg.SweepSchedule != "" && cfg.DefaultTenant != "" {
		sweeper, err := scheduler.New(
			cfg.SweepSchedule, scanner,
			[]string{cfg.DefaultTenant},
			cfg.SweepSeedLimit, cfg.SweepProcessLimit,
		)
		if err != nil {
			log.Fatal(err)
		}
		sweeper.Start()
		defer sweeper.Stop()
		log.Printf("Sweep scheduler running schedule=%q", cfg.SweepSchedule)
	}

	// Timeouts are tuned for cold-cache directions calls (external API latency).
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Server listening addr=:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
