package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	server "github.com/yungbote/ordersignal-backend/internal/http"
	"github.com/yungbote/ordersignal-backend/internal/observability"
	"github.com/yungbote/ordersignal-backend/internal/platform/envutil"
	"github.com/yungbote/ordersignal-backend/internal/platform/logger"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Clients  Clients
	Services Services
	Metrics  *observability.Metrics
	Router   *gin.Engine

	shutdownTracing func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	shutdownTracing := observability.InitOTel(ctx, log, cfg.Otel)

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.New(cfg.MetricsInterval)
	}

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	services, err := wireServices(log, cfg, clients, metrics)
	if err != nil {
		clients.Close()
		log.Sync()
		return nil, err
	}
	middleware, err := wireMiddleware(log, cfg)
	if err != nil {
		clients.Close()
		log.Sync()
		return nil, err
	}
	handlers := wireHandlers(log, cfg, services)
	router := wireRouter(log, cfg, metrics, handlers, middleware)

	return &App{
		Log:             log,
		Cfg:             cfg,
		Clients:         clients,
		Services:        services,
		Metrics:         metrics,
		Router:          router,
		shutdownTracing: shutdownTracing,
	}, nil
}

// Run serves HTTP and runs the background workers until ctx is cancelled,
// then drains them. It returns the first fatal error.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	if err := a.Services.Notifier.Start(gctx); err != nil {
		// Long-pollers still see new events on their retry tick.
		a.Log.Warn("Cross-process wake bus unavailable", "error", err)
	}

	a.Metrics.StartServer(gctx, a.Log, a.Cfg.MetricsAddr)
	a.Metrics.StartRedisCollector(gctx, a.Log, a.Clients.Redis)
	a.Metrics.StartEmailQueueCollector(gctx, a.Log, a.Services.EmailQueue)

	if a.Cfg.WorkerEnabled {
		a.Services.EmailWorker.Start(gctx)
	}

	srv := server.NewServer(server.ServerConfig{
		Addr:            a.Cfg.ListenAddr(),
		LongPollTimeout: a.Cfg.Coordinator.LongPollTimeout,
	}, a.Router)

	g.Go(func() error {
		a.Log.Info("HTTP server listening", "addr", a.Cfg.ListenAddr(), "environment", a.Cfg.Environment)
		return srv.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		a.Log.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		a.Services.EmailWorker.Stop()
		if err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.shutdownTracing(ctx); err != nil {
			a.Log.Warn("Tracer shutdown failed", "error", err)
		}
		cancel()
	}
	a.Clients.Close()
	if a.Log != nil {
		a.Log.Sync()
	}
}
