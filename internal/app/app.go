package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/replygen-backend/internal/data/db"
	apphttp "github.com/yungbote/replygen-backend/internal/http"
	"github.com/yungbote/replygen-backend/internal/platform/logger"
	"github.com/yungbote/replygen-backend/internal/platform/secretbox"
	"github.com/yungbote/replygen-backend/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Services Services
	Clients  Clients
	SSEHub   *realtime.SSEHub
	Server   *apphttp.Server
}

func New(log *logger.Logger, cfg Config) (*App, error) {
	if err := installCredentialsBox(log, cfg); err != nil {
		return nil, err
	}
	theDB, err := openDB(log, cfg)
	if err != nil {
		return nil, err
	}

	ssehub := realtime.NewSSEHub(log)
	clients, err := wireClients(log, cfg, ssehub)
	if err != nil {
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(theDB, log, cfg, reposet, clients)
	if err != nil {
		clients.Close()
		return nil, err
	}

	a := &App{
		Log:      log,
		DB:       theDB,
		Cfg:      cfg,
		Repos:    reposet,
		Services: serviceset,
		Clients:  clients,
		SSEHub:   ssehub,
	}
	handlerset := wireHandlers(log, theDB, reposet, serviceset, &a.Clients, ssehub)
	a.Server = wireServer(log, cfg, handlerset)
	return a, nil
}

// installCredentialsBox keys the encrypted columns. Only the in-memory
// database may run without a configured secret.
func installCredentialsBox(log *logger.Logger, cfg Config) error {
	if cfg.CredentialsSecret == "" {
		if cfg.DBDriver != DBDriverSQLite {
			return fmt.Errorf("missing CREDENTIALS_ENCRYPTION_KEY")
		}
		log.Warn("CREDENTIALS_ENCRYPTION_KEY not set; using an ephemeral key")
		b, err := secretbox.RandomBox()
		if err != nil {
			return err
		}
		secretbox.Install(b)
		return nil
	}
	b, err := secretbox.NewBox(cfg.CredentialsSecret)
	if err != nil {
		return fmt.Errorf("init credentials box: %w", err)
	}
	secretbox.Install(b)
	return nil
}

func openDB(log *logger.Logger, cfg Config) (*gorm.DB, error) {
	if cfg.DBDriver == DBDriverSQLite {
		log.Warn("Using in-memory sqlite; data does not survive restarts")
		return db.OpenSQLiteMemory("replygen")
	}
	pg, err := db.NewPostgresService(log, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	return pg.DB(), nil
}

// Run serves HTTP, runs the job worker and, with redis, forwards bus
// messages into the local hub. It returns when ctx is done or any part fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	if a.Clients.SSEBus != nil {
		if err := a.Clients.SSEBus.StartForwarder(gctx, a.SSEHub.Broadcast); err != nil {
			return fmt.Errorf("start SSE forwarder: %w", err)
		}
	}
	g.Go(func() error {
		return a.Services.JobWorker.Run(gctx)
	})
	g.Go(func() error {
		a.Log.Info("Server listening", "port", a.Cfg.Port)
		return a.Server.Run(gctx, ":"+a.Cfg.Port)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
