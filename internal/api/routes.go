package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/synthseries/internal/api/handlers"
	"github.com/irfndi/synthseries/internal/middleware"
)

// Dependencies are the collaborators the routes are wired to. Cache and
// Redis are nil when Redis is disabled.
type Dependencies struct {
	Generator handlers.SeriesGenerator
	Analyzer  handlers.SeriesAnalyzer
	Cache     handlers.CacheStore
	Redis     handlers.HealthChecker
	Decimals  int32
	Version   string
	Logger    *logrus.Logger
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler(deps.Redis, deps.Version)
	seriesHandler := handlers.NewSeriesHandler(deps.Generator, deps.Analyzer, deps.Decimals, deps.Logger)
	cacheHandler := handlers.NewCacheHandler(deps.Cache, deps.Logger)

	// Health check endpoint
	router.GET("/health", middleware.HealthCheckTelemetryMiddleware(), healthHandler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/frequencies", seriesHandler.GetFrequencies)

		series := v1.Group("/series")
		{
			series.POST("/generate", seriesHandler.Generate)
			series.POST("/batch", seriesHandler.GenerateBatch)
			series.POST("/diagnostics", seriesHandler.Diagnostics)
		}

		cacheGroup := v1.Group("/cache")
		{
			cacheGroup.GET("/stats", cacheHandler.GetCacheStats)
			cacheGroup.DELETE("", cacheHandler.ClearCache)
		}
	}
}
