package handlers

import (
	"net/http"

	"cngflow/config"
	"cngflow/middleware"
	"cngflow/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Deps struct {
	Stations *services.StationService
	Queues   *services.QueueService
	Cache    *services.CacheService
	CORS     config.CORSConfig
}

// NewRouter wires every API route onto a fresh gin engine.
func NewRouter(d Deps) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger())
	engine.Use(gin.Recovery())
	engine.Use(middleware.SetupCORS(d.CORS))
	engine.Use(middleware.Metrics())

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "UP",
			"message": "CNG queue API is running",
			"redis":   d.Cache.Available(),
		})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	stations := NewStationHandler(d.Stations)
	queues := NewQueueHandler(d.Queues, d.Stations)
	stats := NewStatsHandler(d.Stations)

	api := engine.Group("/api")
	{
		api.GET("/stations", stations.List)
		api.GET("/stations/:id", stations.Get)
		api.GET("/stations/:id/alternatives", stations.Alternatives)

		api.POST("/queues/update", queues.Update)
		api.GET("/queues/history/:id", queues.History)
		api.GET("/queues/analytics/:id", queues.Analytics)

		api.GET("/stats/overview", stats.Overview)
		api.GET("/stats/busiest", stats.Busiest)
	}

	engine.GET("/ws/live", LiveWebSocket(d.Cache))

	return engine
}
