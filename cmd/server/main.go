package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/STRATINT/zonewatch/internal/api"
	"github.com/STRATINT/zonewatch/internal/auth"
	"github.com/STRATINT/zonewatch/internal/classifier"
	"github.com/STRATINT/zonewatch/internal/cloudsql"
	"github.com/STRATINT/zonewatch/internal/config"
	"github.com/STRATINT/zonewatch/internal/database"
	"github.com/STRATINT/zonewatch/internal/gateway"
	"github.com/STRATINT/zonewatch/internal/hub"
	"github.com/STRATINT/zonewatch/internal/logging"
	"github.com/STRATINT/zonewatch/internal/metrics"
	"github.com/STRATINT/zonewatch/internal/scheduler"
	"github.com/STRATINT/zonewatch/internal/server"
	"github.com/STRATINT/zonewatch/internal/store"
	"github.com/STRATINT/zonewatch/internal/threat"
	"golang.org/x/sync/errgroup"
)

const (
	activityRetention  = 30 * 24 * time.Hour
	activityPruneEvery = time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting zonewatch")

	collector, err := metrics.NewCollector()
	if err != nil {
		return err
	}

	h := hub.New(logger,
		hub.WithBufferSize(cfg.Hub.BufferSize),
		hub.WithObserver(collector),
	)
	defer h.Close()

	st := store.Bootstrap()
	threats := threat.NewAggregator(st)

	authConfig, err := auth.LoadConfigFromEnv()
	if err != nil {
		return err
	}
	if !authConfig.Required {
		logger.Warn("mutating routes are unauthenticated; set AUTH_REQUIRED=true to protect them")
	}

	probes := []gateway.Option{gateway.WithProbe("openai", openAIProbe(cfg.Classifier))}

	db, err := openDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	var activity api.ActivityLister
	var journal *database.Journal
	if db != nil {
		defer db.Close()
		repo := database.NewActivityLogRepository(db)
		activity = repo
		journal = database.NewJournal(h, repo, logger, database.WithRetention(activityRetention, activityPruneEvery))
		probes = append(probes, gateway.WithProbe("database", func(ctx context.Context) string {
			if err := database.HealthCheck(ctx, db); err != nil {
				return "disconnected"
			}
			return "connected"
		}))
	} else {
		probes = append(probes, gateway.WithProbe("database", func(context.Context) string { return "disabled" }))
	}

	svc := gateway.NewService(st, h, threats, logger, probes...)

	router := api.NewRouter(api.Dependencies{
		Gateway:  svc,
		Hub:      h,
		Metrics:  collector,
		Auth:     authConfig,
		Activity: activity,
		Logger:   logger,
	})
	// Closing the hub ends open streams so shutdown does not wait them out.
	srv := server.New(cfg.Server, logger, router, server.OnShutdown(h.Close))

	g, gctx := errgroup.WithContext(ctx)

	if journal != nil {
		g.Go(func() error { return journal.Run(gctx) })
	}

	var sim *scheduler.Simulator
	if cfg.Simulation.Enabled {
		sim = scheduler.New(st, h, newClassifier(cfg.Classifier, logger), logger,
			scheduler.WithInterval(cfg.Simulation.Interval),
			scheduler.WithClassifyTimeout(cfg.Simulation.ClassifyTimeout),
			scheduler.WithObserver(collector),
		)
		g.Go(func() error {
			sim.Start(gctx)
			return nil
		})
	} else {
		logger.Info("alert simulation disabled")
	}

	g.Go(func() error { return srv.Run(gctx) })

	err = g.Wait()
	if sim != nil {
		sim.Stop()
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newClassifier(cfg config.ClassifierConfig, logger *slog.Logger) classifier.Classifier {
	if cfg.OpenAIAPIKey == "" {
		logger.Info("OPENAI_API_KEY not set, using rule-based classifier")
		return classifier.NewRuleClassifier()
	}

	oc := classifier.DefaultOpenAIConfig()
	oc.APIKey = cfg.OpenAIAPIKey
	oc.Model = cfg.OpenAIModel
	oc.BaseURL = cfg.OpenAIBaseURL
	logger.Info("using OpenAI classifier", "model", oc.Model)
	return classifier.NewOpenAIClassifier(oc, logger)
}

func openAIProbe(cfg config.ClassifierConfig) gateway.Probe {
	status := "disconnected"
	if cfg.OpenAIAPIKey != "" {
		status = "connected"
	}
	return func(context.Context) string { return status }
}

// openDatabase connects the activity journal. It returns a nil db when no
// database is configured.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*sql.DB, error) {
	dbURL, err := cloudsql.BuildDatabaseURL(cfg)
	if errors.Is(err, cloudsql.ErrNotConfigured) {
		logger.Info("no database configured, activity journal disabled")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	logger.Info("database configuration", "config", cloudsql.GetConnectionConfig(cfg))

	dbCfg := database.DefaultConfig()
	dbCfg.URL = dbURL
	db, err := database.Connect(ctx, dbCfg)
	if err != nil {
		return nil, err
	}
	logger.Info("database connected")

	if err := database.RunMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
