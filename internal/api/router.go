package api

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/satwatch/internal/api/handlers"
	"github.com/frostdev-ops/satwatch/internal/api/middleware"
	"github.com/frostdev-ops/satwatch/internal/config"
	"github.com/frostdev-ops/satwatch/internal/core/metrics"
	"github.com/frostdev-ops/satwatch/internal/core/monitor"
	"github.com/frostdev-ops/satwatch/internal/websocket"
	"github.com/frostdev-ops/satwatch/pkg/logger"
	"github.com/frostdev-ops/satwatch/pkg/utils"
)

// Deps are the pieces every service router needs
type Deps struct {
	Config    *config.Config
	Logger    *logger.BatchLogger
	Collector metrics.MetricsCollector
	Checker   *metrics.HealthChecker
}

// NewIngestRouter serves POST /telemetry plus health and Prometheus at /metrics
func NewIngestRouter(deps Deps, store handlers.SampleStore) *gin.Engine {
	router := newEngine(deps)

	ingest := handlers.NewIngestHandler(store, deps.Collector, deps.Logger.Logger)
	router.POST("/telemetry", ingest.PostTelemetry)

	finish(router, deps, config.ServiceIngest, "/metrics")
	return router
}

// NewAggregatorRouter serves GET /metrics window statistics plus health and
// Prometheus at /prom
func NewAggregatorRouter(deps Deps, query handlers.StatsQuerier) *gin.Engine {
	router := newEngine(deps)

	agg := handlers.NewAggregatorHandler(query, deps.Logger.Logger)
	router.GET("/metrics", agg.GetMetrics)

	finish(router, deps, config.ServiceAggregator, "/prom")
	return router
}

// NewControlPlaneRouter serves the status and configuration API, the fleet
// view and the live WebSocket stream. hub may be nil.
func NewControlPlaneRouter(deps Deps, svc *monitor.Service, hub *websocket.Hub) *gin.Engine {
	router := newEngine(deps)

	cp := handlers.NewControlPlaneHandler(svc, deps.Logger.Logger)
	router.GET("/alerts", cp.GetAlerts)
	router.GET("/config", cp.GetConfig)
	router.POST("/config", cp.PostConfig)
	router.GET("/watched", cp.GetWatched)
	router.POST("/watched", cp.PostWatched)
	router.GET("/fleet", cp.GetFleet)

	if hub != nil {
		router.GET("/ws", websocket.HandleWebSocketGin(hub))
		router.GET("/ws/stats", websocket.HandleStatsGin(hub))
	}

	finish(router, deps, config.ServiceControlPlane, "/prom")
	return router
}

func newEngine(deps Deps) *gin.Engine {
	switch deps.Config.Server.Mode {
	case "production", "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	if deps.Collector == nil {
		deps.Collector = metrics.NoopCollector{}
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true

	// Global middleware
	router.Use(middleware.ErrorHandlingMiddleware(deps.Logger.Logger))
	router.Use(middleware.LoggingMiddleware(deps.Logger))
	router.Use(middleware.MetricsMiddleware(deps.Collector))
	if deps.Config.Security.EnableCORS {
		router.Use(middleware.CORSMiddleware(deps.Config.Security))
	}

	return router
}

// finish registers the routes shared by every service and the fallbacks.
// It must run after the service routes so suggestions cover them.
func finish(router *gin.Engine, deps Deps, service config.Service, promPath string) {
	health := handlers.NewHealthHandler(string(service), deps.Checker)
	router.GET("/health", health.Health)
	router.GET("/ready", health.Ready)

	collector := deps.Collector
	if collector == nil {
		collector = metrics.NoopCollector{}
	}
	router.GET(promPath, gin.WrapH(collector.Handler()))

	endpoints := routePaths(router)
	router.NoRoute(func(c *gin.Context) {
		utils.SendNotFound(c, endpoints)
	})
	router.NoMethod(func(c *gin.Context) {
		utils.SendError(c, http.StatusMethodNotAllowed, "method not allowed: "+c.Request.Method+" "+c.Request.URL.Path)
	})
}

func routePaths(router *gin.Engine) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, r := range router.Routes() {
		if !seen[r.Path] {
			seen[r.Path] = true
			paths = append(paths, r.Path)
		}
	}
	sort.Strings(paths)
	return paths
}
