package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/redis/go-redis/v9"

	"github.com/soclabs/copilot/internal/analysis"
	"github.com/soclabs/copilot/internal/auth"
	"github.com/soclabs/copilot/internal/cases"
	"github.com/soclabs/copilot/internal/config"
	"github.com/soclabs/copilot/internal/handlers"
	"github.com/soclabs/copilot/internal/locks"
	"github.com/soclabs/copilot/internal/logging"
	"github.com/soclabs/copilot/internal/messaging"
	"github.com/soclabs/copilot/internal/repository"
	"github.com/soclabs/copilot/internal/scheduler"
	"github.com/soclabs/copilot/internal/search"
	"github.com/soclabs/copilot/internal/server"
	"github.com/soclabs/copilot/internal/service"
	"github.com/soclabs/copilot/internal/shipper"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	migrationsPath := flag.String("migrations", "migrations", "path to migration files")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(logger)

	connString := cfg.Database.Postgres.DSN()

	// Run database migrations
	log.Println("Running database migrations...")
	m, err := migrate.New("file://"+*migrationsPath, connString)
	if err != nil {
		log.Fatalf("Failed to initialize migrations: %v", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	repo, err := repository.NewPostgresRepository(context.Background(), connString)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer repo.Close()

	searchClient, err := search.NewClient(search.Config{
		URL:      cfg.OpenSearch.URL,
		Username: cfg.OpenSearch.Username,
		Password: cfg.OpenSearch.Password,
		Insecure: cfg.OpenSearch.Insecure,
	})
	if err != nil {
		log.Fatalf("Failed to connect to OpenSearch: %v", err)
	}
	markers := search.NewMarkers(searchClient, cfg.Cases.URL)

	redisOpt, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("Invalid redis URL: %v", err)
	}
	redisClient := redis.NewClient(redisOpt)
	defer redisClient.Close()
	{
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			cancel()
			log.Fatalf("Redis connection failed: %v", err)
		}
		cancel()
	}

	runLock := locks.NewRunLockWithClient(redisClient)
	passState := analysis.NewPassState(redisClient, cfg.Redis.StateTTL)

	var bus messaging.Publisher
	if cfg.NATS.Enabled {
		natsClient, err := messaging.NewClient(messaging.Config{
			URL:           cfg.NATS.URL,
			Name:          "copilot",
			MaxReconnects: cfg.NATS.MaxReconnects,
			ReconnectWait: cfg.NATS.ReconnectWait,
			Timeout:       5 * time.Second,
		})
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer natsClient.Close()
		bus = natsClient
	}
	ship := shipper.NewPublisher(bus)

	caseClient := cases.NewClient(cfg.Cases.URL, cfg.Cases.APIKey)

	registry := analysis.NewRegistry(
		&analysis.WazuhAdapter{FailureThreshold: cfg.Analysis.WazuhFailureThreshold},
		&analysis.SuricataAdapter{SignatureThreshold: cfg.Analysis.SuricataSignatureThreshold},
		&analysis.Office365Adapter{FailureThreshold: cfg.Analysis.O365FailureThreshold},
		&analysis.SAPSiemAdapter{DistinctUserThreshold: cfg.Analysis.SAPDistinctUserThreshold, State: passState},
	)

	orch := analysis.NewOrchestrator(
		searchClient,
		markers,
		repo,
		cases.NewResolver(caseClient),
		cases.NewBuilder(caseClient),
		runLock,
		ship,
		analysis.Options{
			BatchSize:    cfg.Analysis.BatchSize,
			MaxPages:     cfg.Analysis.MaxPages,
			Lookback:     cfg.Analysis.Lookback,
			WorkerBatch:  cfg.Analysis.WorkerBatch,
			LockTTL:      cfg.Analysis.LockTTL,
			MarkExcluded: cfg.Analysis.MarkExcluded,
		},
	)

	svc := service.NewService(repo, orch, registry)

	var tm *auth.TokenManager
	if cfg.Auth.JWTSecret != "" {
		tm = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	} else {
		log.Println("WARNING: auth.jwt_secret not set, admin API is unauthenticated")
	}

	router := server.NewRouter(handlers.NewHandler(svc), tm)

	// One scheduled job per registered source.
	jobs := make([]*scheduler.Job, 0, len(registry.Names()))
	for _, name := range registry.Names() {
		adapter, _ := registry.Get(name)
		jobs = append(jobs, &scheduler.Job{
			Name:     fmt.Sprintf("analysis-%s", name),
			Interval: cfg.Analysis.Interval,
			Run: func(ctx context.Context) {
				reports := orch.RunAll(ctx, adapter)
				for _, r := range reports {
					if r == nil {
						continue
					}
					log.Printf("analysis %s/%s: created=%d updated=%d failed=%d excluded=%d remaining=%d",
						r.Source, r.Customer, r.AlertsCreated, r.AlertsUpdated,
						r.AlertsFailed, r.EventsExcluded, r.AlertsRemaining)
				}
			},
		})
	}
	sched := scheduler.NewScheduler(jobs...)

	schedCtx, schedCancel := context.WithCancel(context.Background())
	defer schedCancel()
	go sched.Start(schedCtx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("CoPilot service listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped gracefully")
}
