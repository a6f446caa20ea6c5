package app

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-mastery/internal/config"
	httpserver "github.com/yungbote/neurobridge-mastery/internal/http"
	httpH "github.com/yungbote/neurobridge-mastery/internal/http/handlers"
	httpMW "github.com/yungbote/neurobridge-mastery/internal/http/middleware"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
	"github.com/yungbote/neurobridge-mastery/internal/realtime"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Mastery  *httpH.MasteryHandler
	Realtime *httpH.RealtimeHandler
}

func wireMiddleware(cfg *config.Config, log *logger.Logger) Middleware {
	log.Info("Wiring middleware...")
	auth := httpMW.NewAuthMiddleware(log, cfg.Auth.JWTSecret)
	if auth == nil {
		log.Warn("JWT secret not set; /v1 routes are unauthenticated")
	}
	return Middleware{Auth: auth}
}

func wireHandlers(log *logger.Logger, svc Services, hub *realtime.Hub, checks map[string]httpH.Pinger) Handlers {
	log.Info("Wiring handlers...")
	deps := httpH.MasteryHandlerDeps{Log: log, Mastery: svc.Mastery}
	if svc.Dispatcher != nil {
		deps.Async = svc.Dispatcher
	}
	return Handlers{
		Health:   httpH.NewHealthHandler(svc.Mastery.Ready, checks),
		Mastery:  httpH.NewMasteryHandler(deps),
		Realtime: httpH.NewRealtimeHandler(log, hub),
	}
}

func wireRouter(cfg *config.Config, log *logger.Logger, mw Middleware, h Handlers) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	serviceName := ""
	if cfg.OTel.Enabled {
		serviceName = cfg.OTel.ServiceName
	}
	return httpserver.NewRouter(httpserver.RouterConfig{
		Log:             log,
		ServiceName:     serviceName,
		CORSOrigins:     cfg.HTTP.CORSOrigins,
		AuthMiddleware:  mw.Auth,
		MasteryHandler:  h.Mastery,
		RealtimeHandler: h.Realtime,
		HealthHandler:   h.Health,
	})
}

// readinessChecks probes every backing store that is configured.
func (a *App) readinessChecks() map[string]httpH.Pinger {
	checks := map[string]httpH.Pinger{}
	if a.DB != nil {
		theDB := a.DB
		checks["database"] = httpH.PingFunc(func(ctx context.Context) error {
			sqlDB, err := theDB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		})
	}
	if a.Clients.Redis != nil {
		rdb := a.Clients.Redis
		checks["redis"] = httpH.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	if a.Clients.Neo4j != nil {
		checks["neo4j"] = a.Clients.Neo4j
	}
	return checks
}
