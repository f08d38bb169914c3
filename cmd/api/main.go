package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment-api/internal/config"
	"github.com/noah-isme/gema-assessment-api/internal/database"
	"github.com/noah-isme/gema-assessment-api/internal/handler"
	"github.com/noah-isme/gema-assessment-api/internal/middleware"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
	"github.com/noah-isme/gema-assessment-api/internal/router"
	"github.com/noah-isme/gema-assessment-api/internal/service"
	"github.com/noah-isme/gema-assessment-api/internal/utils"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && level != zerolog.NoLevel {
		logger = logger.Level(level)
	}
	logger = logger.With().Str("service", cfg.AppName).Str("env", cfg.AppEnv).Logger()

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	ctx := context.Background()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not configured; caching and redis events disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Drain()
	}

	validate := utils.NewValidator()

	questionRepo := repository.NewQuestionRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	events := service.NewEventPublisher(natsConn, redisClient, cfg.NATSSubject, logger)
	cache := service.NewResultCache(redisClient, logger)
	activityService := service.NewActivityService(activityRepo, validate, logger)

	questionService := service.NewQuestionService(questionRepo, validate, activityService, cache, logger)
	adminAssignmentService := service.NewAdminAssignmentService(assignmentRepo, questionRepo, studentRepo, validate, activityService, events, cache, logger)
	gradingService := service.NewGradingService(assignmentRepo, submissionRepo, validate, activityService, events, cache, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, submissionRepo, logger)
	submissionService := service.NewSubmissionService(assignmentRepo, submissionRepo, validate, events, cache, service.SubmissionPolicy{
		EnforceDeadline: cfg.EnforceDeadline,
		DeadlineGrace:   cfg.DeadlineGrace,
	}, logger)
	leaderboardService := service.NewLeaderboardService(assignmentRepo, submissionRepo, redisClient, cfg.LeaderboardCacheTTL, logger)
	dashboardService := service.NewStudentDashboardService(assignmentRepo, submissionRepo, redisClient, cfg.DashboardCacheTTL, logger)
	analyticsService := service.NewAssignmentAnalyticsService(assignmentRepo, submissionRepo, redisClient, cfg.AnalyticsCacheTTL, logger)
	studentService := service.NewStudentService(studentRepo, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:    &logger,
		AccessLog: cfg.AppEnv == "development",
	})
	router.Register(app, cfg, router.Dependencies{
		QuestionHandler:         handler.NewQuestionHandler(questionService, logger),
		AdminAssignmentHandler:  handler.NewAdminAssignmentHandler(adminAssignmentService, gradingService, logger),
		AdminGradingHandler:     handler.NewAdminGradingHandler(gradingService, logger),
		AdminStudentHandler:     handler.NewAdminStudentHandler(studentService, logger),
		AdminActivityHandler:    handler.NewAdminActivityHandler(activityService, logger),
		AdminAnalyticsHandler:   handler.NewAdminAnalyticsHandler(analyticsService, logger),
		AssignmentHandler:       handler.NewAssignmentHandler(assignmentService, submissionService, leaderboardService, logger),
		StudentDashboardHandler: handler.NewStudentDashboardHandler(dashboardService, logger),
		JWTMiddleware:           middleware.JWTProtected(cfg.JWTSecret),
		SubmitLimiter:           middleware.RateLimit("submission", cfg.SubmissionRateLimit, cfg.SubmissionRateInterval),
		HealthProbes:            database.Probes(db, redisClient, natsConn),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
