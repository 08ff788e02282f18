package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/D-keii/NextNation-RentSafe/internal/applications"
	"github.com/D-keii/NextNation-RentSafe/internal/config"
	"github.com/D-keii/NextNation-RentSafe/internal/documents"
	"github.com/D-keii/NextNation-RentSafe/internal/export"
	"github.com/D-keii/NextNation-RentSafe/internal/middleware"
	"github.com/D-keii/NextNation-RentSafe/internal/notifications"
	"github.com/D-keii/NextNation-RentSafe/internal/properties"
	"github.com/D-keii/NextNation-RentSafe/internal/saved"
	"github.com/D-keii/NextNation-RentSafe/pkg/storage"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		bootLogger, _ := zap.NewDevelopment()
		bootLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	logger.Info("Connecting to database",
		zap.String("host", cfg.Database.Host),
		zap.String("db", cfg.Database.DBName))
	db, err := gorm.Open(postgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("Failed to get database handle", zap.Error(err))
	}
	defer sqlDB.Close()
	sqlDB.SetMaxOpenConns(cfg.Database.MaxConnections)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if cfg.Database.AutoMigrate {
		if err := properties.AutoMigrate(db); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
		if err := applications.AutoMigrate(db); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	// Redis backs saved listings and the staged-upload index.
	var (
		savedStore  saved.Store
		stagedStore documents.StagedStore
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		savedStore = saved.NewRedisStore(rdb)
		stagedStore = documents.NewRedisStagedStore(rdb)
	} else {
		logger.Warn("Redis not configured, using in-memory stores")
		savedStore = saved.NewMemoryStore()
		stagedStore = documents.NewMemoryStagedStore()
	}

	// Object storage
	var objects storage.S3Client
	switch cfg.Storage.Driver {
	case "memory":
		logger.Warn("Using in-memory object storage")
		objects = storage.NewMemoryClient()
	default:
		objects, err = storage.NewS3Client(ctx, storage.Options{
			Region:          cfg.Storage.Region,
			Endpoint:        cfg.Storage.Endpoint,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
		})
		if err != nil {
			logger.Fatal("Failed to create S3 client", zap.Error(err))
		}
	}
	docs := documents.NewStorageProvider(objects, cfg.Storage.Bucket, stagedStore, logger)

	sweeper := documents.NewSweeper(docs, cfg.Uploads.StagedTTL, logger)
	if err := sweeper.Start(ctx, cfg.Uploads.SweepSchedule); err != nil {
		logger.Fatal("Failed to start upload sweeper", zap.Error(err))
	}
	defer sweeper.Stop()

	// Notifications
	var notifier notifications.Notifier = notifications.NewLogChannel(logger)
	if cfg.Notifications.Enabled {
		email, err := notifications.NewSESEmailChannel(ctx, cfg.Storage.Region, cfg.Notifications.FromAddress, logger)
		if err != nil {
			logger.Fatal("Failed to create SES client", zap.Error(err))
		}
		notifier = email
	}

	// Services
	propertyRepo := properties.NewRepository(db)
	propertyService := properties.NewService(propertyRepo, docs, notifier, logger)
	propertyHandler := properties.NewHandler(propertyService, logger)
	savedHandler := saved.NewHandler(savedStore, propertyService, logger)
	exportHandler := export.NewHandler(propertyService, logger)
	applicationService := applications.NewService(applications.NewRepository(db), propertyService, notifier, logger)
	applicationHandler := applications.NewHandler(applicationService, logger)

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	go limiter.Run(time.Minute, ctx.Done())

	// Router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(logger),
		middleware.Recovery(logger),
		limiter.Middleware(),
	)

	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{"status": "healthy", "timestamp": time.Now()}
		if err := sqlDB.PingContext(c.Request.Context()); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["database"] = err.Error()
		}
		c.JSON(status, body)
	})

	api := router.Group("/api/v1", middleware.Auth(cfg.Security.JWTSecret))
	{
		propertyHandler.RegisterRoutes(api)
		savedHandler.RegisterRoutes(api)
		exportHandler.RegisterRoutes(api)
		applicationHandler.RegisterRoutes(api)
	}

	corsOptions := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      corsOptions.Handler(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()
	logger.Info("Server started", zap.String("addr", srv.Addr))

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exiting")
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
