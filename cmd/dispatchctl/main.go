package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	_ "github.com/jackc/pgx/v5/stdlib"

	"dispatch-routing-service/internal/adapters/cache"
	"dispatch-routing-service/internal/adapters/ors"
	"dispatch-routing-service/internal/adapters/repositories"
	"dispatch-routing-service/internal/config"
	"dispatch-routing-service/internal/platform/db"
	"dispatch-routing-service/internal/ports"
	"dispatch-routing-service/internal/services"
)

// dispatchctl runs the geocoding pipeline and route suggestions from the
// command line against the same storage the server uses.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	cfg     config.Config
	scanner *services.BackfillScanner
	worker  *services.GeocodeWorker
	queue   *services.GeocodeQueue
	engine  *services.RouteSuggestionEngine

	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	a := &app{cfg: cfg}

	pg, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, pg.Close)

	stopStore := repositories.NewPostgresStopStore(pg)
	jobStore := repositories.NewPostgresJobStore(pg)

	var geocodeCache ports.GeocodeCache
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		rdb := redis.NewClient(opts)
		a.closers = append(a.closers, rdb.Close)
		geocodeCache = cache.NewRedisGeocodeCache(rdb)
	}

	var geocoder ports.Geocoder
	if cfg.ORSAPIKey != "" {
		client, err := ors.NewClient(cfg.ORSAPIKey)
		if err != nil {
			a.Close()
			return nil, err
		}
		geocoder = ors.NewGeocoder(client)
	}

	var directions ports.DirectionsProvider
	if cfg.DirectionsAPIKey != "" {
		client, err := ors.NewClient(cfg.DirectionsAPIKey)
		if err != nil {
			a.Close()
			return nil, err
		}
		directions = ors.NewDirections(client)
	}

	a.queue = &services.GeocodeQueue{Jobs: jobStore}
	a.worker = &services.GeocodeWorker{
		Stops:        stopStore,
		Jobs:         jobStore,
		Geocoder:     geocoder,
		Cache:        geocodeCache,
		ProviderName: ors.ProviderName,
	}
	a.scanner = &services.BackfillScanner{Stops: stopStore, Queue: a.queue, Worker: a.worker}
	a.engine = &services.RouteSuggestionEngine{Stops: stopStore, Directions: directions}

	return a, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dispatchctl",
		Short:         "Operate the geocoding pipeline and route suggestions",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	var tenant string
	root.PersistentFlags().StringVar(&tenant, "tenant", "", "tenant id (defaults to DEFAULT_TENANT)")

	resolveTenant := func(cfg config.Config) (string, error) {
		t := tenant
		if t == "" {
			t = cfg.DefaultTenant
		}
		if t == "" {
			return "", fmt.Errorf("tenant is required (flag --tenant or DEFAULT_TENANT)")
		}
		return t, nil
	}

	var seedLimit int
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Scan recent stops and enqueue missing or stale geocodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			t, err := resolveTenant(a.cfg)
			if err != nil {
				return err
			}

			report, err := a.scanner.Seed(cmd.Context(), t, seedLimit)
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
	seedCmd.Flags().IntVar(&seedLimit, "limit", 25, "max jobs to enqueue")

	var processLimit int
	processCmd := &cobra.Command{
		Use:   "process",
		Short: "Claim and execute due geocode jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			t, err := resolveTenant(a.cfg)
			if err != nil {
				return err
			}

			report, err := a.worker.ProcessDue(cmd.Context(), t, processLimit)
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
	processCmd.Flags().IntVar(&processLimit, "limit", 25, "max jobs to process")

	var sweepSeed, sweepProcess int
	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run a seed pass followed by a worker pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			t, err := resolveTenant(a.cfg)
			if err != nil {
				return err
			}

			report, err := a.scanner.Sweep(cmd.Context(), t, sweepSeed, sweepProcess)
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
	sweepCmd.Flags().IntVar(&sweepSeed, "seed-limit", 25, "max jobs to enqueue")
	sweepCmd.Flags().IntVar(&sweepProcess, "process-limit", 25, "max jobs to process")

	var enqueueForce bool
	var enqueueReason string
	enqueueCmd := &cobra.Command{
		Use:   "enqueue <stop-id>",
		Short: "Queue a geocode job for one stop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			t, err := resolveTenant(a.cfg)
			if err != nil {
				return err
			}

			job, err := a.queue.Enqueue(cmd.Context(), t, args[0], enqueueReason, enqueueForce)
			if err != nil {
				return err
			}
			return printJSON(job)
		},
	}
	enqueueCmd.Flags().BoolVar(&enqueueForce, "force", false, "reset an existing active job")
	enqueueCmd.Flags().StringVar(&enqueueReason, "reason", "manual", "enqueue reason tag")

	var suggestDate string
	var suggestMax int
	suggestCmd := &cobra.Command{
		Use:   "suggest",
		Short: "Compute a route suggestion for a service date",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			t, err := resolveTenant(a.cfg)
			if err != nil {
				return err
			}
			if suggestDate == "" {
				return fmt.Errorf("--date is required")
			}

			suggestion, err := a.engine.Suggest(cmd.Context(), services.SuggestRequest{
				Filter: ports.StopFilter{
					TenantID:    t,
					ServiceDate: suggestDate,
				},
				MaxStops: suggestMax,
			})
			if err != nil {
				return err
			}

			fmt.Printf("order: %v\n", suggestion.OrderedStopIDs)
			if len(suggestion.UnmappedIDs) > 0 {
				fmt.Printf("unmapped: %v\n", suggestion.UnmappedIDs)
			}
			if len(suggestion.SkippedStopIDs) > 0 {
				fmt.Printf("skipped: %v\n", suggestion.SkippedStopIDs)
			}
			fmt.Printf("geometry: %d points provider=%s\n", len(suggestion.Geometry), suggestion.GeometryProvider)
			if suggestion.TotalDistanceMeters != nil && suggestion.TotalDurationSeconds != nil {
				fmt.Printf("totals: %.0fm %.0fs\n", *suggestion.TotalDistanceMeters, *suggestion.TotalDurationSeconds)
			}
			return nil
		},
	}
	suggestCmd.Flags().StringVar(&suggestDate, "date", "", "service date (YYYY-MM-DD)")
	suggestCmd.Flags().IntVar(&suggestMax, "max-stops", 0, "stop-count cap (0 for default)")

	root.AddCommand(seedCmd, processCmd, sweepCmd, enqueueCmd, suggestCmd)
	return root
}
