package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"vehicle-financing/internal/api"
	"vehicle-financing/internal/common/auth"
	commonaws "vehicle-financing/internal/common/aws"
	"vehicle-financing/internal/common/camunda"
	"vehicle-financing/internal/common/config"
	"vehicle-financing/internal/common/database"
	"vehicle-financing/internal/common/logger"
	"vehicle-financing/internal/common/observability"
	"vehicle-financing/internal/common/validation"
	"vehicle-financing/internal/core/eligibility"
	"vehicle-financing/internal/core/loan"
	"vehicle-financing/internal/core/valuation"
	"vehicle-financing/internal/loanprocess"
	"vehicle-financing/internal/notification"
	"vehicle-financing/internal/repository/postgres"
	"vehicle-financing/internal/search"
	"vehicle-financing/internal/vinlookup"

	createloan "vehicle-financing/internal/workers/loan/create-loan-application"
	reviewloan "vehicle-financing/internal/workers/loan/review-loan-application"
	simval "vehicle-financing/internal/workers/vehicle/simulate-valuation"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newServeCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, when camunda is enabled, the job workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	zapLog, log := newLogger(cfg)
	defer zapLog.Sync()
	log.Info("Starting vehicle financing service...", map[string]interface{}{"environment": cfg.App.Environment})

	obs, err := observability.New(cfg.App.Name, cfg.Observability)
	if err != nil {
		log.Warn("observability degraded", map[string]interface{}{"error": err.Error()})
	}
	defer obs.Shutdown(context.Background())

	// --- Storage ---
	pg, err := connectPostgres(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pg.Close()
	if err := postgres.Migrate(ctx, pg.DB); err != nil {
		return err
	}

	vehicles := postgres.NewVehicleRepository(pg.DB)
	users := postgres.NewUserRepository(pg.DB)
	loans := postgres.NewLoanRepository(pg.DB, log)
	valuations := postgres.NewValuationRepository(pg.DB)
	if err := pg.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		log.Warn("postgres pool metrics disabled", map[string]interface{}{"error": err.Error()})
	}

	readiness := map[string]api.Pinger{"postgres": pg}

	// --- Valuation ---
	var lookup vinlookup.Lookuper = vinlookup.NewClient(cfg.VINLookup, log)
	if cfg.VINLookup.CacheTTL > 0 {
		rdb := database.NewRedis(cfg.Database.Redis)
		defer rdb.Close()
		readiness["redis"] = rdb
		if err := rdb.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
			log.Warn("redis pool metrics disabled", map[string]interface{}{"error": err.Error()})
		}
		lookup = vinlookup.NewCachedLookup(lookup, rdb.Client, config.GetDuration(cfg.VINLookup.CacheTTL), log)
	}

	var workflowOpts []valuation.WorkflowOption
	if cfg.Database.Elasticsearch.Enabled {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		readiness["elasticsearch"] = es
		index := cfg.Database.Elasticsearch.ValuationsIndex
		created, err := es.EnsureIndex(ctx, index, search.ValuationMapping)
		if err != nil {
			log.Warn("valuation index not ensured", map[string]interface{}{"index": index, "error": err.Error()})
		} else if created {
			log.Info("Created valuation index", map[string]interface{}{"index": index})
		}
		indexer := search.NewValuationIndexer(es.Client, index)
		workflowOpts = append(workflowOpts, valuation.WithIndexer(indexer))
	}

	valuationService := valuation.NewService(
		vehicles,
		valuation.NewEstimator(lookup),
		valuation.NewWorkflow(valuations, log, workflowOpts...),
		log,
	)

	// --- Loans ---
	policy, err := eligibility.PolicyFromConfig(cfg.Eligibility)
	if err != nil {
		return err
	}
	lifecycleOpts := []loan.Option{loan.WithTransitionPolicy(loan.PolicyFor(cfg.Loans.StrictTransitions))}

	if cfg.Notifications.Enabled {
		awsCfg, err := commonaws.LoadConfig(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			return fmt.Errorf("load aws config: %w", err)
		}
		notifier := notification.NewNotifier(cfg.Notifications, commonaws.NewSESClient(awsCfg), commonaws.NewSNSClient(awsCfg), log)
		lifecycleOpts = append(lifecycleOpts, loan.WithNotifier(notifier))
	}

	var zeebe *camunda.Client
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(ctx, func() error {
			var err error
			zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				ConnectionTimeout:      10 * time.Second,
				RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
			})
			return err
		}, 10, 2*time.Second, log, "Zeebe client initialization")
		if err != nil {
			return err
		}
		defer zeebe.Close()
		readiness["zeebe"] = pingFunc(zeebe.HealthCheck)

		if cfg.Camunda.LoanReviewProcessID != "" {
			starter := loanprocess.NewStarter(zeebe, cfg.Camunda.LoanReviewProcessID, log)
			lifecycleOpts = append(lifecycleOpts, loan.WithNotifier(starter))
		}
	}

	lifecycle := loan.NewLifecycle(vehicles, users, loans, eligibility.NewEvaluator(policy), log, lifecycleOpts...)

	validator, err := validation.New()
	if err != nil {
		return err
	}

	// --- Workers ---
	if zeebe != nil {
		workers := registerWorkers(cfg, zeebe, lifecycle, valuationService, validator, log)
		defer workers.Stop(config.GetDuration(cfg.Server.ShutdownTimeout))
	}

	// --- HTTP ---
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, config.GetDuration(cfg.Auth.TokenTTL), cfg.App.Name)
	router := api.NewRouter(api.Deps{
		Auth:          auth.NewService(users, tokens, log),
		Authenticator: tokens,
		Vehicles:      vehicles,
		Valuations:    valuationService,
		History:       valuations,
		Loans:         lifecycle,
		Validator:     validator,
		Observability: obs,
		Readiness:     readiness,
		Logger:        log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received", nil)
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	log.Info("Service stopped gracefully", nil)
	return nil
}

// registerWorkers opens every enabled job worker on the broker.
func registerWorkers(cfg *config.Config, zeebe *camunda.Client, lifecycle *loan.Lifecycle, valuations *valuation.Service, validator *validation.Validator, log logger.Logger) *camunda.WorkerManager {
	manager := camunda.NewWorkerManager(zeebe.GetClient(), log)

	createCfg := config.GetWorkerConfig(cfg, createloan.TaskType)
	manager.Register(createloan.TaskType, createCfg,
		createloan.NewHandler(createloan.LoadConfig(createCfg), lifecycle, validator, log).Handle)

	reviewCfg := config.GetWorkerConfig(cfg, reviewloan.TaskType)
	manager.Register(reviewloan.TaskType, reviewCfg,
		reviewloan.NewHandler(reviewloan.LoadConfig(reviewCfg), lifecycle, validator, log).Handle)

	valuationCfg := config.GetWorkerConfig(cfg, simval.TaskType)
	manager.Register(simval.TaskType, valuationCfg,
		simval.NewHandler(simval.LoadConfig(valuationCfg), valuations, validator, log).Handle)

	log.Info("Job workers registered", map[string]interface{}{"taskTypes": manager.TaskTypes()})
	return manager
}
