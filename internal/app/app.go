package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/postforge-backend/internal/db"
	"github.com/yungbote/postforge-backend/internal/observability"
	"github.com/yungbote/postforge-backend/internal/pkg/logger"
)

type App struct {
	Log          *logger.Logger
	DB           *gorm.DB
	Cfg          Config
	Repos        Repos
	Clients      Clients
	Services     Services
	cancel       context.CancelFunc
	group        *errgroup.Group
	traceFlusher func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	traceFlusher := observability.InitTracing(context.Background(), log, observability.TracingConfig{
		ServiceName: "postforge-backend",
		Environment: os.Getenv("APP_ENV"),
		Version:     os.Getenv("APP_VERSION"),
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	clientset, err := wireClients(log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, clientset)

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clientset,
		Services:     serviceset,
		traceFlusher: traceFlusher,
	}, nil
}

// Start launches the deferred-learning flush loop. Safe to call once;
// subsequent calls are no-ops.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	g, gctx := errgroup.WithContext(ctx)
	a.group = g
	g.Go(func() error {
		ticker := time.NewTicker(a.Cfg.FlushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := a.Services.Learning.FlushDue(gctx); err != nil {
					a.Log.Warn("learning flush pass failed", "error", err)
				}
			}
		}
	})
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.group != nil {
		_ = a.group.Wait()
		a.group = nil
	}
	if a.traceFlusher != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.traceFlusher(flushCtx); err != nil && a.Log != nil {
			a.Log.Warn("trace flush on shutdown failed", "error", err)
		}
		cancel()
		a.traceFlusher = nil
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
