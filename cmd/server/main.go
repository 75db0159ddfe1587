package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	appfund "github.com/openfund/backend/internal/application/fund"
	"github.com/openfund/backend/internal/domain/extension"
	"github.com/openfund/backend/internal/domain/integration"
	"github.com/openfund/backend/internal/domain/release"
	"github.com/openfund/backend/internal/domain/shared"
	"github.com/openfund/backend/internal/domain/shared/valueobject"
	"github.com/openfund/backend/internal/domain/valuation"
	"github.com/openfund/backend/internal/infrastructure/config"
	"github.com/openfund/backend/internal/infrastructure/event"
	"github.com/openfund/backend/internal/infrastructure/logger"
	"github.com/openfund/backend/internal/infrastructure/persistence"
	httprouter "github.com/openfund/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting fund protocol backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database with GORM logging routed through zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Fund directory (the queryable registry of created funds)
	directoryRepo := persistence.NewGormFundDirectoryRepository(db.DB)
	if err := directoryRepo.Migrate(); err != nil {
		log.Fatal("Failed to migrate fund directory schema", zap.Error(err))
	}

	// Event bus with an audit journal subscribed to every event
	eventBus := event.NewInMemoryEventBus(log)
	journal := event.NewJournal(db.DB)
	if err := journal.Migrate(); err != nil {
		log.Fatal("Failed to migrate event journal schema", zap.Error(err))
	}
	eventBus.Subscribe(journal)

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Protocol collaborators
	clock := shared.SystemClock{}
	oracle := valuation.NewFixedRateOracle()
	integrationRouter := integration.NewRouter(log)
	catalog := extension.DefaultCatalog()

	coordinator, err := release.NewCoordinator(cfg.Protocol.MigrationTimelock, clock, log)
	if err != nil {
		log.Fatal("Failed to create migration coordinator", zap.Error(err))
	}

	releaseOwner, err := resolveReleaseOwner(cfg, log)
	if err != nil {
		log.Fatal("Invalid release owner", zap.Error(err))
	}

	rel, err := release.NewRelease(
		releaseOwner,
		coordinator,
		catalog,
		integrationRouter,
		oracle,
		clock,
		cfg.Protocol.SharesActionTimelock,
		log,
	)
	if err != nil {
		log.Fatal("Failed to create release", zap.Error(err))
	}

	for _, denom := range cfg.Protocol.ApprovedDenominations {
		if err := rel.ApproveDenomination(releaseOwner, valueobject.AssetID(denom)); err != nil {
			log.Fatal("Failed to approve denomination",
				zap.String("denomination", denom), zap.Error(err))
		}
	}
	if err := rel.SetStatus(releaseOwner, release.StatusLive); err != nil {
		log.Fatal("Failed to set release live", zap.Error(err))
	}
	log.Info("Release is live",
		zap.String("owner", releaseOwner.String()),
		zap.Strings("approved_denominations", cfg.Protocol.ApprovedDenominations),
		zap.Duration("migration_timelock", cfg.Protocol.MigrationTimelock),
		zap.Duration("shares_action_timelock", cfg.Protocol.SharesActionTimelock),
	)

	fundService := appfund.NewService(rel, coordinator, directoryRepo, eventBus, log)

	engine := httprouter.New(httprouter.Dependencies{
		Config:      cfg,
		Logger:      log,
		Database:    db,
		FundService: fundService,
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// resolveReleaseOwner parses the configured governance principal. In
// development an ephemeral owner is generated when none is configured;
// production requires an explicit one (enforced by config validation).
func resolveReleaseOwner(cfg *config.Config, log *zap.Logger) (uuid.UUID, error) {
	if cfg.Protocol.ReleaseOwner == "" {
		owner := uuid.New()
		log.Warn("No release owner configured, generated an ephemeral one",
			zap.String("owner", owner.String()))
		return owner, nil
	}
	return uuid.Parse(cfg.Protocol.ReleaseOwner)
}
