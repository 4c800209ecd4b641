package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/waxfeed-backend/internal/http/handlers"
	httpMW "github.com/yungbote/waxfeed-backend/internal/http/middleware"
	"github.com/yungbote/waxfeed-backend/internal/observability"
	"github.com/yungbote/waxfeed-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	AuthMiddleware *httpMW.AuthMiddleware

	TasteHandler  *httpH.TasteHandler
	WaxHandler    *httpH.WaxHandler
	RatingHandler *httpH.RatingHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "waxfeed"
	}
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.RequestIdentity())
	r.Use(httpMW.RequestObserver(cfg.Log, cfg.Metrics))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Taste
		if cfg.TasteHandler != nil {
			protected.POST("/taste/recompute", cfg.TasteHandler.Recompute)
			protected.GET("/taste/profile", cfg.TasteHandler.GetProfile)
			protected.GET("/taste/history", cfg.TasteHandler.History)
			protected.GET("/taste/matches", cfg.TasteHandler.Matches)
		}

		// Wax
		if cfg.WaxHandler != nil {
			protected.GET("/wax/balance", cfg.WaxHandler.Balance)
			protected.GET("/wax/transactions", cfg.WaxHandler.Transactions)
			protected.POST("/wax/claim-daily", cfg.WaxHandler.ClaimDaily)
			protected.POST("/wax/spend", cfg.WaxHandler.Spend)
			protected.POST("/wax/reconcile", cfg.WaxHandler.Reconcile)
		}

		// Ratings
		if cfg.RatingHandler != nil {
			protected.PUT("/albums/:id/rating", cfg.RatingHandler.Upsert)
			protected.DELETE("/albums/:id/rating", cfg.RatingHandler.Delete)
		}
	}

	return r
}
