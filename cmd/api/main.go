package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/mysteryforum/forum-api/internal/config"
	"github.com/mysteryforum/forum-api/internal/database"
	"github.com/mysteryforum/forum-api/internal/handler"
	"github.com/mysteryforum/forum-api/internal/middleware"
	"github.com/mysteryforum/forum-api/internal/observability"
	"github.com/mysteryforum/forum-api/internal/repository"
	"github.com/mysteryforum/forum-api/internal/router"
	"github.com/mysteryforum/forum-api/internal/service"
	cloud "github.com/mysteryforum/forum-api/pkg/cloudinary"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger = logger.With().Str("service", cfg.AppName).Str("env", cfg.AppEnv).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := database.RunMigrations(ctx, db); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	var (
		redisClient      *redis.Client
		rateLimitStorage fiber.Storage
	)
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		rateLimitStorage = middleware.NewRedisStorage(redisClient, cfg.NotificationChannel+":ratelimit:")
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to nats")
	}
	if natsConn != nil {
		defer natsConn.Drain()
	}

	var blobs service.BlobStore
	if cfg.BlobStoreEnabled() {
		blobStore, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create cloudinary client")
		}
		blobs = blobStore
	} else {
		logger.Warn().Msg("cloudinary credentials missing; removed media will not be destroyed")
	}

	observability.RegisterMetrics()
	validate := validator.New(validator.WithRequiredStructEnabled())

	store := repository.NewStore(db)
	repos := store.Repositories()
	fanout := service.NewFanout(logger)

	notificationService := service.NewNotificationService(repos.Notifications, redisClient, cfg.NotificationChannel, natsConn, logger)
	notificationService.Start(ctx)

	postService := service.NewPostService(store, fanout, notificationService, validate, logger)
	commentService := service.NewCommentService(store, fanout, notificationService, validate, logger)
	voteService := service.NewVoteService(store, fanout, notificationService, logger)
	followService := service.NewCachedFollowService(service.NewFollowService(store, logger), redisClient, cfg.CountCacheTTL, logger)
	resolutionService := service.NewResolutionService(store, fanout, notificationService, logger)
	reportService := service.NewReportService(store, fanout, notificationService, blobs, validate, logger)
	activityService := service.NewActivityService(repos.Activity, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSOrigins,
		AccessLog:    cfg.AppEnv == "development",
	})
	router.Register(app, cfg, router.Dependencies{
		PostHandler:         handler.NewPostHandler(postService, voteService, resolutionService, logger),
		CommentHandler:      handler.NewCommentHandler(commentService, voteService, logger),
		FollowHandler:       handler.NewFollowHandler(followService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger, cfg.StreamKeepAlive),
		ReportHandler:       handler.NewReportHandler(reportService, logger),
		ActivityHandler:     handler.NewActivityHandler(activityService, logger),
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
		BanMiddleware:       middleware.RejectBanned(repos.Users),
		RateLimitStorage:    rateLimitStorage,
		DependencyChecks:    dependencyChecks(db, redisClient),
		EnableMetrics:       true,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(ctx, app, logger)
}

func dependencyChecks(db *gorm.DB, redisClient *redis.Client) map[string]handler.DependencyCheck {
	checks := map[string]handler.DependencyCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}

func waitForShutdown(ctx context.Context, app *fiber.App, logger zerolog.Logger) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
