package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nutrigate/backend/config"
)

// SetupRouter creates and configures the Gin router.
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/search", handler.Search)
		v1.GET("/foods/barcode/:code", handler.LookupBarcode)
		v1.GET("/providers", handler.ListProviders)
		v1.GET("/providers/default", handler.GetDefaultProvider)
		v1.GET("/providers/:name", handler.GetProvider)

		admin := v1.Group("", AdminAuthMiddleware(cfg.Auth.JWTSecret))
		{
			admin.PATCH("/providers/:name", handler.UpdateProvider)
			admin.GET("/providers/:name/credentials", handler.GetCredentials)
			admin.POST("/providers/:name/credentials", handler.SetCredentials)
			admin.DELETE("/providers/:name/credentials", handler.ClearCredentials)
			admin.POST("/providers/default", handler.SetDefaultProvider)
			admin.POST("/import", handler.ImportFoods)
			admin.DELETE("/cache", handler.ClearCache)
			admin.GET("/analytics", handler.Analytics)
		}
	}

	return router
}
