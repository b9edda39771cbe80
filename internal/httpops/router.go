// Package httpops exposes the bot's operational HTTP surface: liveness,
// readiness, and Prometheus metrics. It is deliberately tiny — the bot has no
// public REST API, this endpoint exists for probes and scraping only.
package httpops

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// NewRouter builds the ops router.
//
// Routes:
//   - GET /healthz  → liveness, always 200 while the process runs
//   - GET /readyz   → readiness, 200 only when the database answers a ping
//   - GET /metrics  → Prometheus exposition
func NewRouter(db *gorm.DB) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/readyz", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
