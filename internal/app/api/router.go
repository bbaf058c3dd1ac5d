package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	pantryhttp "github.com/Apurer/pantry-partner-api/internal/domains/pantry/adapters/http"
)

// NewRouter builds the gin engine with tracing, recovery, health and pantry routes.
func NewRouter(serviceName string, pantryAPI *pantryhttp.PantryAPI) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	pantryAPI.RegisterRoutes(router)
	return router
}
