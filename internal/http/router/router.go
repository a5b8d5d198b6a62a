// Package router assembles the Gin engine from the registered modules.
package router

import (
	"net/http"
	"time"

	apphttp "artisan_dispatch_backend/internal/http"
	"artisan_dispatch_backend/platform/httpkit"
	"artisan_dispatch_backend/platform/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// New builds the HTTP engine: shared middleware, the health probe and every
// module's routes.
func New(env string, pool *pgxpool.Pool, modules []apphttp.Module, log *logger.Logger) *gin.Engine {
	if env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestLogger(log))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	engine.GET("/api/health", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	rctx := &apphttp.RouterContext{
		Engine:                engine,
		V1:                    engine.Group("/api/v1"),
		Cron:                  engine.Group("/api/cron"),
		SubmissionRateLimiter: httpkit.NewSubmissionRateLimiter(log),
	}

	for _, module := range modules {
		module.RegisterRoutes(rctx)
		log.Info("module routes registered", "module", module.Name())
	}

	return engine
}
