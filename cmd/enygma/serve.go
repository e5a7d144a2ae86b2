package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/enygma/config"
	"github.com/Ramsey-B/enygma/internal/repositories/savedconfig"
	"github.com/Ramsey-B/enygma/internal/services/engine"
	"github.com/Ramsey-B/enygma/pkg/alphabet"
	"github.com/Ramsey-B/enygma/pkg/database"
	"github.com/Ramsey-B/enygma/pkg/health"
	"github.com/Ramsey-B/enygma/pkg/kafka"
	"github.com/Ramsey-B/enygma/pkg/metrics"
	"github.com/Ramsey-B/enygma/pkg/middleware"
	"github.com/Ramsey-B/enygma/pkg/persistence"
	routes "github.com/Ramsey-B/enygma/pkg/routes/engine"
	"github.com/Ramsey-B/enygma/pkg/startup"
	"github.com/Ramsey-B/enygma/pkg/tracing"
	"github.com/Ramsey-B/enygma/pkg/tracing/exporters"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const (
	depDatabase = "database"
	depRedis    = "redis"
	depStore    = "store"
	depKafka    = "kafka"
	depEngine   = "engine"
	depHTTP     = "http"
)

// maxRequestBody leaves room above persistence.MaxImportSize for the
// largest accepted import.
const maxRequestBody = "2M"

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the chain editor API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, flush, err := newLogger(cfg.LogLevel, cfg.PrettyLogs)
			if err != nil {
				return err
			}
			defer flush()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return newServer(cfg, logger).run(ctx)
		},
	}
}

// server holds the dependencies started for the API.
type server struct {
	cfg      *config.Config
	logger   ectologger.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	health   *health.Checker

	db        *database.DatabaseInstance
	redis     *redis.Client
	store     persistence.Store
	publisher *kafka.Producer
	service   *engine.Service
	http      *http.Server
}

func newServer(cfg *config.Config, logger ectologger.Logger) *server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &server{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		metrics:  metrics.New(registry),
		health:   health.NewChecker(version),
	}
}

func (s *server) run(ctx context.Context) error {
	if s.cfg.TracingEnabled {
		shutdown := tracing.Setup(s.cfg.AppName, exporters.NewLoggerExporter(s.logger))
		defer func() { _ = shutdown(context.Background()) }()
	}

	st := startup.NewStartup(s.logger, s.cfg.StartupMaxAttempts)
	for _, dep := range s.dependencies() {
		st.AddDependency(dep)
	}

	if err := st.Start(ctx); err != nil {
		_ = st.Stop(context.Background())
		return err
	}

	s.health.SetReady(true)
	s.logger.WithContext(ctx).WithField("port", s.cfg.Port).Info("server started")
	<-ctx.Done()
	s.health.SetReady(false)

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return st.Stop(stopCtx)
}

func (s *server) dependencies() []startup.Dependency {
	storeRequires := []string{}
	deps := []startup.Dependency{}

	switch s.cfg.StoreBackend {
	case "postgres":
		deps = append(deps, startup.Func{Name: depDatabase, OnStart: s.startDatabase, OnStop: s.stopDatabase})
		storeRequires = append(storeRequires, depDatabase)
	case "redis":
		deps = append(deps, startup.Func{Name: depRedis, OnStart: s.startRedis, OnStop: s.stopRedis})
		storeRequires = append(storeRequires, depRedis)
	}
	deps = append(deps, startup.Func{Name: depStore, Requires: storeRequires, OnStart: s.startStore})

	engineRequires := []string{depStore}
	if s.cfg.KafkaEnabled {
		deps = append(deps, startup.Func{Name: depKafka, OnStart: s.startKafka, OnStop: s.stopKafka})
		engineRequires = append(engineRequires, depKafka)
	}

	return append(deps,
		startup.Func{Name: depEngine, Requires: engineRequires, OnStart: s.startEngine},
		startup.Func{Name: depHTTP, Requires: []string{depEngine}, OnStart: s.startHTTP, OnStop: s.stopHTTP},
	)
}

func (s *server) startDatabase(ctx context.Context) error {
	db, err := database.Connect(ctx, database.ConnectionConfig{
		Driver:          s.cfg.DatabaseDriver,
		Host:            s.cfg.DatabaseHost,
		Port:            s.cfg.DatabasePort,
		User:            s.cfg.DatabaseUserName,
		Password:        s.cfg.DatabasePassword,
		Name:            s.cfg.DatabaseName,
		SSLMode:         s.cfg.DatabaseSSLMode,
		MaxOpenConns:    s.cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    s.cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: s.cfg.DatabaseConnMaxLifetime,
	}, s.logger)
	if err != nil {
		return err
	}

	if err := migrationService(s.cfg, s.logger).MigratePostgres(s.cfg.DatabaseName, db.DB.DB); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	s.health.AddCheck(depDatabase, db.PingContext)
	return nil
}

func (s *server) stopDatabase(_ context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *server) startRedis(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", s.cfg.RedisHost, s.cfg.RedisPort),
		Password: s.cfg.RedisPassword,
		DB:       s.cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to reach redis: %w", err)
	}
	s.redis = client
	s.health.AddCheck(depRedis, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	return nil
}

func (s *server) stopRedis(_ context.Context) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Close()
}

func (s *server) startStore(_ context.Context) error {
	switch s.cfg.StoreBackend {
	case "postgres":
		s.store = savedconfig.NewRepository(s.db, s.logger)
	case "redis":
		s.store = persistence.NewRedisStore(s.redis, s.cfg.RedisNamespace, s.cfg.RedisTTL, s.logger)
	case "file", "":
		store, err := persistence.NewFileStore(s.cfg.StoreDirectory, s.logger)
		if err != nil {
			return err
		}
		s.store = store
	default:
		return fmt.Errorf("unknown store backend %q", s.cfg.StoreBackend)
	}
	store := s.store
	s.health.AddCheck(depStore, func(ctx context.Context) error {
		_, err := store.List(ctx)
		return err
	})
	return nil
}

func (s *server) startKafka(_ context.Context) error {
	producerConfig := kafka.DefaultProducerConfig()
	producerConfig.Brokers = s.cfg.KafkaBrokers
	producerConfig.Topic = s.cfg.KafkaOutputTopic
	producerConfig.BatchSize = s.cfg.KafkaBatchSize
	producerConfig.BatchTimeout = time.Duration(s.cfg.KafkaBatchTimeout) * time.Millisecond
	producerConfig.RequiredAcks = s.cfg.KafkaRequiredAcks
	producerConfig.Compression = s.cfg.KafkaCompression

	producer, err := kafka.NewProducer(producerConfig, s.logger)
	if err != nil {
		return err
	}
	s.publisher = producer
	return nil
}

func (s *server) stopKafka(_ context.Context) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.Close()
}

func (s *server) startEngine(ctx context.Context) error {
	opts := []engine.Option{
		engine.WithStore(s.store),
		engine.WithMetrics(s.metrics),
	}
	if s.publisher != nil {
		opts = append(opts, engine.WithPublisher(s.publisher))
	}
	service := engine.NewService(s.logger, opts...)

	if err := service.SetCharacterSet(ctx, alphabet.CharacterSet(s.cfg.CharacterSet)); err != nil {
		return err
	}
	if s.cfg.StartupPreset != "" {
		if err := service.LoadPreset(ctx, s.cfg.StartupPreset); err != nil {
			return err
		}
	}

	s.service = service
	return nil
}

func (s *server) startHTTP(_ context.Context) error {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(s.logger)
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: s.cfg.AllowOrigins,
		AllowMethods: s.cfg.AllowMethods,
	}))
	e.Use(echomiddleware.BodyLimit(maxRequestBody))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(s.logger))

	s.health.RegisterRoutes(e)
	routes.RegisterMetrics(e, s.registry)

	if _, err := routes.NewContainer(s.cfg.AppName, s.service, s.logger); err != nil {
		return err
	}
	routes.Register(e.Group("/api/v1", middleware.Container(s.cfg.AppName)))

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           e,
		ReadTimeout:       time.Duration(s.cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    s.cfg.MaxHeaderBytes,
	}

	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("http server stopped")
		}
	}()
	return nil
}

func (s *server) stopHTTP(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
