package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpcAdapter "github.com/Abdurahmanit/GroupProject/location-service/internal/adapter/grpc"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/adapter/http/handler"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/adapter/http/router"
	natsAdapter "github.com/Abdurahmanit/GroupProject/location-service/internal/adapter/messaging/nats"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/adapter/repository/cache"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/adapter/repository/fallback"
	mongoRepo "github.com/Abdurahmanit/GroupProject/location-service/internal/adapter/repository/mongodb"
	pgRepo "github.com/Abdurahmanit/GroupProject/location-service/internal/adapter/repository/postgres"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/adapter/storage/httpfetch"
	s3Storage "github.com/Abdurahmanit/GroupProject/location-service/internal/adapter/storage/s3"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/config"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/domain"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/token"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/usecase"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/mailer"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/metrics"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/tracer"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// stores bundles the selected persistence backend and its cleanup.
type stores struct {
	locations domain.LocationRepository
	shares    domain.ShareRepository
	close     func()
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("INFO: .env file not found or error loading: %v. Relying on OS environment variables.\n", err)
	}

	appLogger := logger.NewLogger()
	defer appLogger.Sync()

	cfg, err := config.Load(appLogger)
	if err != nil {
		// a missing map token ends up here as well
		appLogger.Fatal("Failed to load configuration", zap.Error(err))
	}
	appLogger = logger.New(logger.ConfigFrom(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output))
	appLogger.Info("Application starting...", zap.String("service_name", cfg.ServiceName))

	tp := tracer.InitTracer(tracer.Config{
		ServiceName: cfg.ServiceName,
		Version:     version,
		Endpoint:    cfg.OTel.Endpoint,
		SampleRatio: cfg.OTel.SampleRatio,
	}, appLogger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			appLogger.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}()

	metricsManager := metrics.NewMetricsManager(cfg.ServiceName)

	st, err := openStores(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer st.close()

	var queryCache domain.QueryCache = cache.NewMemoryQueryCache()
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(cfg.Redis, appLogger)
		if err != nil {
			appLogger.Warn("Redis unavailable, using in-process query cache", zap.Error(err))
		} else {
			defer redisClient.Close()
			queryCache = cache.NewRedisQueryCache(redisClient, appLogger)
		}
	}

	var publisher domain.EventPublisher = natsAdapter.NewNoopPublisher(appLogger)
	if cfg.NATS.Enabled {
		natsPublisher, err := natsAdapter.NewPublisher(cfg.NATS, appLogger, cfg.ServiceName)
		if err != nil {
			appLogger.Warn("NATS unavailable, events will not be published", zap.Error(err))
		} else {
			defer natsPublisher.Close()
			publisher = natsPublisher
		}
	}

	var imageStorage domain.ImageStorage
	if s3, err := s3Storage.NewS3Storage(cfg.MinIO, appLogger); err != nil {
		appLogger.Warn("Object storage unavailable, inline image uploads will fail", zap.Error(err))
	} else {
		imageStorage = s3
	}
	fetcher := httpfetch.New(cfg.Images.FetchTimeout, cfg.Images.MaxImageBytes)

	var notifier domain.ShareNotifier
	if cfg.SMTP.Enabled {
		shareMailer, err := mailer.NewShareMailer(cfg.SMTP, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize share mailer", zap.Error(err))
		}
		notifier = shareMailer
	}

	fallbackStore, err := fallback.NewStore(cfg.Fallback.Path, cfg.Fallback.MaxRecords, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open fallback dataset", zap.String("path", cfg.Fallback.Path), zap.Error(err))
	}

	reader := usecase.NewLocationReader(st.locations, queryCache, cfg.Redis.TTL, appLogger, metricsManager)
	resolver := usecase.NewAccessResolver(reader, st.shares, appLogger, metricsManager)
	images := usecase.NewImageBatch(imageStorage, fetcher, cfg.Images.UploadConcurrency, appLogger, metricsManager)
	locationUsecase := usecase.NewLocationUsecase(st.locations, st.shares, reader, resolver, fallbackStore, images, publisher, appLogger, metricsManager)
	shareUsecase := usecase.NewShareUsecase(st.locations, st.shares, token.NewGenerator(), publisher, notifier, usecase.ShareSettings{
		BaseURL:       cfg.HTTP.PublicBaseURL,
		RequireExpiry: cfg.Share.RequireExpiry,
		DefaultTTL:    cfg.Share.DefaultTTL,
	}, appLogger, metricsManager)

	locationHandler := handler.NewLocationHandler(locationUsecase, shareUsecase, cfg.Map, cfg.HTTP.MaxBodyBytes, appLogger)
	mux := router.New(locationHandler, router.Options{
		JWTSecret:      cfg.Auth.JWTSecret,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RequestTimeout: cfg.HTTP.WriteTimeout,
	}, appLogger, metricsManager)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	go func() {
		appLogger.Info("Starting HTTP server", zap.String("port", cfg.HTTP.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	lis, err := net.Listen("tcp", ":"+cfg.GRPC.Port)
	if err != nil {
		appLogger.Fatal("Failed to listen for gRPC", zap.String("port", cfg.GRPC.Port), zap.Error(err))
	}
	grpcSrv, healthServer := grpcAdapter.NewGRPCServer(appLogger)
	go func() {
		appLogger.Info("Starting gRPC health server", zap.String("port", cfg.GRPC.Port))
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			appLogger.Fatal("gRPC server Serve error", zap.Error(err))
		}
	}()
	grpcAdapter.SetServing(healthServer, true)

	if cfg.Metrics.Port != "" {
		go func() {
			if err := metrics.StartMetricsServer(cfg.Metrics.Port, appLogger, metricsManager.Registry); err != nil && !errors.Is(err, http.ErrServerClosed) {
				appLogger.Error("Prometheus metrics server failed", zap.Error(err))
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	appLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	grpcAdapter.SetServing(healthServer, false)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		appLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	grpcSrv.GracefulStop()

	appLogger.Info("Application shutting down...")
}

func openStores(cfg *config.Config, appLogger *logger.Logger) (*stores, error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		db, err := pgRepo.NewPostgresConnection(&cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.AutoMigrate {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := pgRepo.Migrate(ctx, db); err != nil {
				db.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
			appLogger.Info("Postgres schema applied")
		}
		return &stores{
			locations: pgRepo.NewLocationRepository(db, appLogger),
			shares:    pgRepo.NewShareRepository(db, appLogger),
			close:     closeSQL(db, appLogger),
		}, nil

	case config.StoreMongo:
		client, err := mongoRepo.NewMongoDBConnection(&cfg.Mongo)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.Mongo.Database)
		locations, err := mongoRepo.NewLocationRepository(db, appLogger)
		if err != nil {
			disconnect(client, appLogger)()
			return nil, err
		}
		shares, err := mongoRepo.NewShareRepository(db, appLogger)
		if err != nil {
			disconnect(client, appLogger)()
			return nil, err
		}
		return &stores{locations: locations, shares: shares, close: disconnect(client, appLogger)}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func closeSQL(db *sql.DB, appLogger *logger.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			appLogger.Error("Error closing Postgres pool", zap.Error(err))
		}
	}
}

func disconnect(client *mongo.Client, appLogger *logger.Logger) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			appLogger.Error("Error disconnecting from MongoDB", zap.Error(err))
		}
	}
}
