package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthCheck 依存先のヘルスチェック
type HealthCheck func(ctx context.Context) error

// RouterDeps ルーターの依存
type RouterDeps struct {
	MapPins      *MapPinsHandler
	Sessions     *MapSessionHandler
	Webhook      *RealtimeWebhookHandler
	Gatherer     prometheus.Gatherer
	HealthChecks map[string]HealthCheck
}

// NewRouter Ginルーターのセットアップ
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	{
		api.GET("/health", healthHandler(deps.HealthChecks))

		mapGroup := api.Group("/map")
		mapGroup.GET("/pins", deps.MapPins.GetMapPins)

		if deps.Sessions != nil {
			sessions := mapGroup.Group("/sessions")
			sessions.POST("", deps.Sessions.CreateSession)
			sessions.GET("/:id", deps.Sessions.GetSession)
			sessions.PUT("/:id", deps.Sessions.UpdateSession)
			sessions.DELETE("/:id", deps.Sessions.DeleteSession)
			sessions.POST("/:id/refetch", deps.Sessions.RefetchSession)
		}

		if deps.Webhook != nil {
			api.POST("/realtime/webhook", deps.Webhook.PostDatabaseChange)
		}
	}

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
	return r
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		results := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}

		state := "healthy"
		if status != http.StatusOK {
			state = "unhealthy"
		}
		c.JSON(status, gin.H{
			"status":  state,
			"service": "Spotmap-App",
			"checks":  results,
		})
	}
}
