package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"brand-catalog-service/internal/ai"
	"brand-catalog-service/internal/api"
	"brand-catalog-service/internal/auth"
	"brand-catalog-service/internal/catalog"
	"brand-catalog-service/internal/config"
	"brand-catalog-service/internal/export"
	"brand-catalog-service/internal/jobs"
	"brand-catalog-service/internal/logging"
	"brand-catalog-service/internal/metrics"
	"brand-catalog-service/internal/store"
	"brand-catalog-service/internal/tracing"
	"brand-catalog-service/internal/workflow"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("INFO: No .env file found or failed to load, relying on system environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Error loading configuration: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("service stopped with error", zap.Error(err))
	}
	logger.Info("service shutdown sequence finished")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting service", zap.String("env", cfg.AppEnv), zap.String("store", cfg.StoreDriver))

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, cfg.AppEnv, logger)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	m := metrics.New()

	tm, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		return err
	}

	// --- Persistence ---
	hub := jobs.NewHub(logger, m)
	var (
		st       store.Store
		listener *jobs.Listener
	)
	switch cfg.StoreDriver {
	case "memory":
		mem := store.NewMemoryStore(logger)
		mem.SetJobObserver(hub.Publish)
		st = mem
		logger.Warn("using in-memory store; data is lost on restart")
	default:
		db, err := store.OpenPostgres(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		pg := store.NewPostgresStore(db, logger)
		st = pg
		listener = jobs.NewListener(cfg.Postgres.DSN(), pg, hub, logger)
		logger.Info("database connection established")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("error closing store", zap.Error(err))
		}
	}()

	sessions, closeSessions, err := sessionStore(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer closeSessions()

	// --- Services ---
	generator, err := ai.New(ctx, cfg.AI, logger, m)
	if err != nil {
		return err
	}
	if !generator.Configured() {
		logger.Warn("GEMINI_API_KEY not set; wizard generation will fail until configured")
	}

	var archiver export.Archiver
	if cfg.Export.S3Bucket != "" {
		s3a, err := export.NewS3Archiver(ctx, cfg.Export)
		if err != nil {
			return err
		}
		archiver = s3a
		logger.Info("csv exports archived to s3", zap.String("bucket", cfg.Export.S3Bucket))
	}

	catalogSvc := catalog.NewService(st, logger, m)
	exporter := export.NewExporter(st, archiver, logger, m)
	brandWizard := workflow.NewBrandWizard(sessions, generator, catalogSvc, logger, m)
	defer brandWizard.Close()
	catalogWizard := workflow.NewCatalogWizard(catalogSvc, generator, logger, m)
	jobSvc := jobs.NewService(st, catalogSvc.Resolver(), logger, m)

	httpHandler := api.NewHTTPHandler(api.Deps{
		Catalog:       catalogSvc,
		Exporter:      exporter,
		BrandWizard:   brandWizard,
		CatalogWizard: catalogWizard,
		Jobs:          jobSvc,
		JobStream:     jobs.NewStreamHandler(hub, logger, cfg.HttpServer.AllowedOrigins),
		Logger:        logger,
	})

	// --- HTTP Server ---
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logging.RequestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(m.Middleware)
	router.Use(auth.Middleware(tm, logger))
	router.Handle("/metrics", m.Handler())
	httpHandler.RegisterRoutes(router)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HttpServer.Port,
		Handler:      tracing.Handler(router, "http.server"),
		ReadTimeout:  cfg.HttpServer.TimeoutRead,
		WriteTimeout: cfg.HttpServer.TimeoutWrite,
		IdleTimeout:  cfg.HttpServer.TimeoutIdle,
	}

	// --- gRPC Server ---
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		api.LoggingInterceptor(logger.Named("grpc")),
		api.AuthInterceptor(tm, logger),
	))
	api.RegisterCatalogService(grpcServer, api.NewGRPCHandler(catalogSvc, exporter, logger))
	grpc_health_v1.RegisterHealthServer(grpcServer, health.NewServer())
	reflection.Register(grpcServer)

	grpcListener, err := net.Listen("tcp", ":"+cfg.GrpcServer.Port)
	if err != nil {
		return fmt.Errorf("listen for grpc on port %s: %w", cfg.GrpcServer.Port, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", zap.String("port", cfg.HttpServer.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("grpc server listening", zap.String("port", cfg.GrpcServer.Port))
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	if listener != nil {
		g.Go(func() error { return listener.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		waitForShutdown(logger, httpServer, grpcServer)
		return nil
	})
	return g.Wait()
}

func sessionStore(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (workflow.SessionStore, func(), error) {
	if cfg.URL == "" {
		logger.Info("brand wizard sessions kept in memory")
		return workflow.NewMemorySessionStore(cfg.SessionTTL), func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("brand wizard sessions kept in redis", zap.String("addr", opts.Addr))
	return workflow.NewRedisSessionStore(rdb, cfg.SessionTTL), func() { _ = rdb.Close() }, nil
}

func waitForShutdown(logger *zap.Logger, httpServer *http.Server, grpcServer *grpc.Server) {
	logger.Info("starting graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	stoppedGrpc := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stoppedGrpc)
	}()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("http server gracefully shut down")
	}

	select {
	case <-stoppedGrpc:
		logger.Info("grpc server gracefully shut down")
	case <-shutdownCtx.Done():
		logger.Warn("grpc server graceful shutdown timed out, forcing stop")
		grpcServer.Stop()
	}
}
