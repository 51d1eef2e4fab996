package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/replygen-backend/internal/http/handlers"
	httpMW "github.com/yungbote/replygen-backend/internal/http/middleware"
	"github.com/yungbote/replygen-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string

	HealthHandler   *httpH.HealthHandler
	MessageHandler  *httpH.MessageHandler
	RealtimeHandler *httpH.RealtimeHandler
	JobHandler      *httpH.JobHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "replygen"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.AttachRequestContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	api := r.Group("/api")
	api.Use(httpMW.RequireUser())
	{
		// Messages
		if cfg.MessageHandler != nil {
			api.POST("/messages/:id/generate", cfg.MessageHandler.Generate)
			api.POST("/messages/:id/cancel", cfg.MessageHandler.Cancel)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			api.GET("/conversations/:id/stream", cfg.RealtimeHandler.StreamConversation)
		}

		// Job
		if cfg.JobHandler != nil {
			api.GET("/jobs/:id", cfg.JobHandler.GetJob)
		}
	}

	return r
}
