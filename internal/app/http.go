package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/waxfeed-backend/internal/http"
	httpH "github.com/yungbote/waxfeed-backend/internal/http/handlers"
	httpMW "github.com/yungbote/waxfeed-backend/internal/http/middleware"
	"github.com/yungbote/waxfeed-backend/internal/observability"
	"github.com/yungbote/waxfeed-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health *httpH.HealthHandler
	Taste  *httpH.TasteHandler
	Wax    *httpH.WaxHandler
	Rating *httpH.RatingHandler
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: httpH.NewHealthHandler(db),
		Taste:  httpH.NewTasteHandler(services.Taste),
		Wax:    httpH.NewWaxHandler(services.Wax),
		Rating: httpH.NewRatingHandler(services.Rating),
	}
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *http.Server {
	return http.NewServer(http.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		ServiceName:    cfg.ServiceName,
		AuthMiddleware: middleware.Auth,
		TasteHandler:   handlers.Taste,
		WaxHandler:     handlers.Wax,
		RatingHandler:  handlers.Rating,
		HealthHandler:  handlers.Health,
	})
}
