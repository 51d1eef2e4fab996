package app

import (
	"context"

	"gorm.io/gorm"

	apphttp "github.com/yungbote/replygen-backend/internal/http"
	httpH "github.com/yungbote/replygen-backend/internal/http/handlers"
	"github.com/yungbote/replygen-backend/internal/platform/logger"
	"github.com/yungbote/replygen-backend/internal/realtime"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Message  *httpH.MessageHandler
	Realtime *httpH.RealtimeHandler
	Job      *httpH.JobHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, r Repos, s Services, clients *Clients, hub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: httpH.NewHealthHandler(map[string]httpH.ReadinessCheck{
			"db": func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"redis": clients.ping,
		}),
		Message:  httpH.NewMessageHandler(s.JobService, s.Cancellation),
		Realtime: httpH.NewRealtimeHandler(log, hub, r.Conversation),
		Job:      httpH.NewJobHandler(s.JobService),
	}
}

func wireServer(log *logger.Logger, cfg Config, h Handlers) *apphttp.Server {
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:             log,
		ServiceName:     cfg.Otel.ServiceName,
		CORSOrigins:     cfg.CORSOrigins,
		HealthHandler:   h.Health,
		MessageHandler:  h.Message,
		RealtimeHandler: h.Realtime,
		JobHandler:      h.Job,
	})
}
