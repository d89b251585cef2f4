// Package app wires configuration, stores, services, the matching engine
// and the HTTP surface into one server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/haze-team/haze-server/src/config"
	"github.com/haze-team/haze-server/src/lib"
	"github.com/haze-team/haze-server/src/matching"
	"github.com/haze-team/haze-server/src/repositories"
	"github.com/haze-team/haze-server/src/routes"
	"github.com/haze-team/haze-server/src/services"
	"github.com/haze-team/haze-server/src/socket"
	"github.com/haze-team/haze-server/src/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	cfg    config.Config
	log    *slog.Logger
	fiber  *fiber.App
	engine *matching.Engine
	hub    *socket.Hub

	closers []func(context.Context) error
}

type Option func(*options)

type options struct {
	memory *repositories.Memory
}

// WithMemoryStore backs the server with mem regardless of STORE_DRIVER
func WithMemoryStore(mem *repositories.Memory) Option {
	return func(o *options) { o.memory = mem }
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, version string, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{cfg: cfg, log: logger}

	repos, err := a.openStore(ctx, o)
	if err != nil {
		return nil, err
	}

	images, err := a.imageService(ctx)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	matchLogs := services.NewMatchLogService(repos.Users, repos.MatchLogs)
	activity := services.NewLogService(repos.Logs, logger)
	reports := services.NewReportService(repos.Users, matchLogs)
	blockLogs := services.NewBlockLogService(repos.Users, repos.BlockLogs)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a.hub = socket.NewHub(logger)
	a.engine = matching.New(matching.Deps{
		Users:       repos.Users,
		Images:      repos.Images,
		BlockLogs:   repos.BlockLogs,
		MatchLogs:   matchLogs,
		Activity:    activity,
		Reports:     reports,
		ProfileURLs: images,
		Emitter:     a.hub,
	}, matchingConfig(cfg.Matching),
		matching.WithLogger(logger),
		matching.WithMetrics(matching.NewMetrics(registry)),
	)

	a.fiber = fiber.New(fiber.Config{
		AppName:               "haze-server",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
	})
	a.fiber.Use(recover.New())
	a.fiber.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	deps := routes.Deps{
		BlockLogs:       blockLogs,
		Reports:         reports,
		Logs:            activity,
		Stats:           a.engine,
		Gatherer:        registry,
		Logger:          logger,
		JWTSecret:       cfg.JWTSecret,
		Version:         version,
		RateLimitMax:    cfg.RateLimitMax,
		RateLimitWindow: cfg.RateLimitWindow,
	}
	routes.APIRoutes(a.fiber, deps)
	routes.MetricsRoutes(a.fiber, deps)
	routes.SocketRoutes(a.fiber, socket.NewServer(a.engine, a.hub, logger), cfg.JWTSecret, cfg.SocketAuthRequired)

	return a, nil
}

func (a *App) openStore(ctx context.Context, o options) (repositories.Repositories, error) {
	if o.memory != nil {
		return o.memory.Repositories(), nil
	}
	if a.cfg.StoreDriver == config.StoreMemory {
		a.log.Warn("using the in-memory store, nothing will be persisted")
		return repositories.NewMemory().Repositories(), nil
	}

	client, db, err := lib.ConnectDB(ctx, a.cfg.DBHost, a.cfg.DBName, a.log)
	if err != nil {
		return repositories.Repositories{}, err
	}
	a.closers = append(a.closers, client.Disconnect)
	return repositories.NewMongoRepositories(db), nil
}

func (a *App) imageService(ctx context.Context) (*services.ImageService, error) {
	if a.cfg.Images.URLMode != config.ImageURLPresign {
		return services.NewImageService(nil), nil
	}
	presigner, err := storage.NewS3Presigner(ctx, storage.S3Config{
		Bucket:          a.cfg.Images.Bucket,
		Region:          a.cfg.Images.Region,
		Endpoint:        a.cfg.Images.Endpoint,
		AccessKeyID:     a.cfg.Images.AccessKeyID,
		SecretAccessKey: a.cfg.Images.SecretAccessKey,
		UsePathStyle:    a.cfg.Images.UsePathStyle,
		URLTTL:          a.cfg.Images.URLTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("image presigner: %w", err)
	}
	return services.NewImageService(presigner), nil
}

func matchingConfig(m config.Matching) matching.Config {
	cfg := matching.DefaultConfig()
	cfg.IntroduceTimeout = m.IntroduceTimeout
	cfg.FaceRecognitionWindow = m.FaceRecognitionWindow
	cfg.WebchatTimeout = m.WebchatTimeout
	cfg.RematchDelayFirst = m.RematchDelayFirst
	cfg.RematchDelaySecond = m.RematchDelaySecond
	cfg.LookupTimeout = m.LookupTimeout
	return cfg
}

// Fiber exposes the HTTP app, mainly for app.Test
func (a *App) Fiber() *fiber.App {
	return a.fiber
}

func (a *App) Engine() *matching.Engine {
	return a.engine
}

// Run listens on the configured port until ctx is cancelled
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+a.cfg.Port)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.cfg.Port, err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the engine and the HTTP server on ln until ctx is cancelled,
// then drains sockets, the engine and pending side effects in that order
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	engineCtx, stopEngine := context.WithCancel(context.Background())
	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		_ = a.engine.Run(engineCtx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- a.fiber.Listener(ln)
	}()
	a.log.Info("server is running", "addr", ln.Addr().String(), "env", a.cfg.AppEnv, "store", a.cfg.StoreDriver)

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}

	if shutdownErr := a.fiber.ShutdownWithTimeout(shutdownTimeout); shutdownErr != nil {
		a.log.Warn("http shutdown", "error", shutdownErr)
	}
	a.hub.CloseAll()
	stopEngine()
	<-engineDone
	a.engine.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.close(closeCtx)

	a.log.Info("server stopped")
	return err
}

func (a *App) close(ctx context.Context) {
	for _, closer := range a.closers {
		if err := closer(ctx); err != nil {
			a.log.Warn("closing resource", "error", err)
		}
	}
	a.closers = nil
}

func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Server error"
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		}
		return c.Status(code).JSON(lib.MessageResponse(message))
	}
}
