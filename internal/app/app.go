package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-mastery/internal/config"
	"github.com/yungbote/neurobridge-mastery/internal/data/repos"
	httpserver "github.com/yungbote/neurobridge-mastery/internal/http"
	"github.com/yungbote/neurobridge-mastery/internal/observability"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
	"github.com/yungbote/neurobridge-mastery/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	Cfg      *config.Config
	DB       *gorm.DB
	Repos    repos.Set
	Clients  Clients
	Services Services
	Hub      *realtime.Hub
	Server   *httpserver.Server

	shutdownOTel func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.NewWithOptions(logger.Options{Mode: cfg.Log.Mode, Redact: cfg.Log.Redact, HashSalt: cfg.Log.HashSalt})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log.Info("Config loaded", "env", cfg.Env, "database", cfg.Database.Driver, "skill_graph", cfg.SkillGraph.Source)

	shutdownOTel := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.OTel.Enabled,
		ServiceName: cfg.OTel.ServiceName,
		Environment: cfg.Env,
		Version:     cfg.Version,
		Endpoint:    cfg.OTel.Endpoint,
		Insecure:    cfg.OTel.Insecure,
		Headers:     observability.ParseHeaders(cfg.OTel.Headers),
		SampleRatio: cfg.OTel.SampleRatio,
	})

	a := &App{Log: log, Cfg: cfg, shutdownOTel: shutdownOTel}
	if err := a.wire(ctx); err != nil {
		a.Shutdown(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context) error {
	theDB, reposet, err := wireRepos(a.Cfg, a.Log)
	if err != nil {
		return err
	}
	a.DB, a.Repos = theDB, reposet

	clients, err := wireClients(ctx, a.Cfg, a.Log)
	a.Clients = clients
	if err != nil {
		return err
	}

	a.Hub = realtime.NewHub(a.Log)

	serviceset, err := wireServices(ctx, a.Cfg, a.Log, reposet, clients)
	if err != nil {
		return err
	}
	a.Services = serviceset

	engine := wireRouter(a.Cfg, a.Log, wireMiddleware(a.Cfg, a.Log), wireHandlers(a.Log, serviceset, a.Hub, a.readinessChecks()))
	a.Server = httpserver.NewServer(engine, httpserver.ServerOptions{
		Addr:              a.Cfg.HTTP.Addr,
		ReadHeaderTimeout: a.Cfg.HTTP.ReadHeaderTimeout.Duration,
		IdleTimeout:       a.Cfg.HTTP.IdleTimeout.Duration,
		MaxRequestBytes:   a.Cfg.HTTP.MaxRequestBytes,
	})
	return nil
}

// Start launches background work: the unlock forwarder and, when enabled,
// the in-process Temporal worker.
func (a *App) Start(ctx context.Context) error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.Services.Bus.StartForwarder(ctx, a.Hub.Broadcast); err != nil {
		return fmt.Errorf("start unlock forwarder: %w", err)
	}
	if a.Services.Worker != nil {
		if err := a.Services.Worker.Start(ctx); err != nil {
			return fmt.Errorf("start temporal worker: %w", err)
		}
	}
	return nil
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return errors.New("app not initialized")
	}
	a.Log.Info("HTTP server listening", "addr", a.Cfg.HTTP.Addr)
	return a.Server.Run()
}

// Shutdown stops the server first so in-flight requests can still reach
// their dependencies, then tears those down.
func (a *App) Shutdown(ctx context.Context) {
	if a == nil {
		return
	}
	timeout := 15 * time.Second
	if a.Cfg != nil && a.Cfg.HTTP.ShutdownTimeout.Duration > 0 {
		timeout = a.Cfg.HTTP.ShutdownTimeout.Duration
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			a.Log.Warn("HTTP shutdown failed", "error", err)
		}
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Services.Bus != nil {
		_ = a.Services.Bus.Close()
	}
	a.Clients.Close(ctx, a.Log)
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.shutdownOTel != nil {
		if err := a.shutdownOTel(ctx); err != nil {
			a.Log.Warn("OTel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
