package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/neurobridge-mastery/internal/http/handlers"
	httpMW "github.com/yungbote/neurobridge-mastery/internal/http/middleware"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string

	// AuthMiddleware is nil when bearer auth is disabled.
	AuthMiddleware *httpMW.AuthMiddleware

	MasteryHandler  *httpH.MasteryHandler
	RealtimeHandler *httpH.RealtimeHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.ReadyCheck)
	}

	v1 := r.Group("/v1")
	if cfg.AuthMiddleware != nil {
		v1.Use(cfg.AuthMiddleware.RequireAuth())
	}

	if cfg.MasteryHandler != nil {
		v1.GET("/actions", cfg.MasteryHandler.ListActions)
		v1.GET("/skill-graph", cfg.MasteryHandler.SkillGraph)
	}

	user := v1.Group("/users/:userID")
	if cfg.AuthMiddleware != nil {
		user.Use(cfg.AuthMiddleware.RequireSelf())
	}
	{
		if cfg.MasteryHandler != nil {
			h := cfg.MasteryHandler
			// Knowledge
			user.POST("/skills/:skillID/observations", h.Observe)
			user.GET("/skills/:skillID/mastery", h.GetMastery)
			user.GET("/mastery", h.ListMastery)
			user.GET("/gaps", h.IdentifyGaps)

			// Modules
			user.GET("/modules/:moduleID/readiness", h.CheckReadiness)
			user.POST("/modules/:moduleID/outcomes", h.ProcessOutcome)
			user.GET("/modules/:moduleID/outcomes", h.ListOutcomes)

			// Policy
			user.GET("/modules/:moduleID/policy", h.PolicyValues)
			user.POST("/modules/:moduleID/policy/select", h.SelectAction)
			user.POST("/modules/:moduleID/policy/update", h.UpdatePolicy)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			user.GET("/unlocks/stream", cfg.RealtimeHandler.UnlockStream)
		}
	}

	return r
}
