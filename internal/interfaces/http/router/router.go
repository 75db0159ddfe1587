package router

import (
	"github.com/gin-gonic/gin"
	appfund "github.com/openfund/backend/internal/application/fund"
	"github.com/openfund/backend/internal/infrastructure/config"
	"github.com/openfund/backend/internal/infrastructure/logger"
	"github.com/openfund/backend/internal/infrastructure/persistence"
	"github.com/openfund/backend/internal/interfaces/http/handler"
	"github.com/openfund/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Dependencies holds everything the router needs
type Dependencies struct {
	Config      *config.Config
	Logger      *zap.Logger
	Database    *persistence.Database
	FundService *appfund.Service
}

// New builds the HTTP router with all routes and middleware wired
func New(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()
	if len(deps.Config.HTTP.TrustedProxies) > 0 {
		_ = engine.SetTrustedProxies(deps.Config.HTTP.TrustedProxies)
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = deps.Config.HTTP.CORSAllowOrigins
	if len(deps.Config.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = deps.Config.HTTP.CORSAllowMethods
	}
	if len(deps.Config.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = deps.Config.HTTP.CORSAllowHeaders
	}

	engine.Use(
		middleware.RequestID(),
		logger.RequestLogger(deps.Logger),
		logger.Recovery(deps.Logger),
		middleware.CORSWithConfig(corsCfg),
	)

	fundHandler := handler.NewFundHandler(deps.FundService)
	migrationHandler := handler.NewMigrationHandler(deps.FundService)
	systemHandler := handler.NewSystemHandler(deps.FundService, deps.Database)

	engine.GET("/healthz", systemHandler.Health)

	api := engine.Group("/api/v1")
	api.GET("/releases/status", systemHandler.ReleaseStatus)
	api.PUT("/releases/status", middleware.Principal(), systemHandler.SetReleaseStatus)

	funds := api.Group("/funds")
	funds.Use(middleware.Principal())
	{
		funds.POST("", fundHandler.Create)
		funds.GET("", fundHandler.List)
		funds.GET("/:id", fundHandler.Get)
		funds.GET("/:id/valuation", fundHandler.Valuation)
		funds.GET("/:id/balance", fundHandler.Balance)
		funds.POST("/:id/buy", fundHandler.Buy)
		funds.POST("/:id/redeem", fundHandler.Redeem)
		funds.POST("/:id/transfer", fundHandler.Transfer)
		funds.POST("/:id/integrations", fundHandler.Integrate)
		funds.POST("/:id/fees/settle", fundHandler.SettleFees)

		funds.GET("/:id/migration", migrationHandler.Get)
		funds.POST("/:id/migration/signal", migrationHandler.Signal)
		funds.POST("/:id/migration/execute", migrationHandler.Execute)
		funds.POST("/:id/migration/cancel", migrationHandler.Cancel)
	}

	return engine
}
