package api

import (
	"github.com/gin-gonic/gin"

	"github.com/davet/jobdigest/internal/api/handler"
	"github.com/davet/jobdigest/internal/api/middleware"
	"github.com/davet/jobdigest/internal/service"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	dispatcher *service.Dispatcher,
	mode string,
	cors middleware.CORSConfig,
) *gin.Engine {
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cors))

	healthHandler := handler.NewHealthHandler("jobdigest")
	dispatchHandler := handler.NewDispatchHandler(dispatcher)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/queue/stats", dispatchHandler.Stats)
		v1.POST("/dispatch/run", dispatchHandler.Run)
		v1.POST("/queue/cleanup", dispatchHandler.Cleanup)
	}

	return r
}
